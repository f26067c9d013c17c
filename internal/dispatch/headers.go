package dispatch

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const (
	defaultRegion      = "us-east-1"
	defaultKiroVersion = "0.8.0"
	sdkUserAgent       = "aws-sdk-js/1.0.27"
)

// ClientConfig controls upstream connectivity, independent of any single
// account (SPEC_FULL §6).
type ClientConfig struct {
	Region      string
	KiroVersion string
	ProxyURL    string

	MaxIdleConns   int
	RequestTimeout time.Duration
}

func (c ClientConfig) region() string {
	if c.Region != "" {
		return c.Region
	}
	return defaultRegion
}

func (c ClientConfig) kiroVersion() string {
	if c.KiroVersion != "" {
		return c.KiroVersion
	}
	return defaultKiroVersion
}

// endpointURL returns the region-qualified generateAssistantResponse URL.
func (c ClientConfig) endpointURL() string {
	return fmt.Sprintf("https://q.%s.amazonaws.com/generateAssistantResponse", c.region())
}

// buildHTTPClient constructs the single shared client reused by every
// dispatch, proxy-aware, matching the shape of the prior system's
// provider.BuildHTTPClient (one client, configured Transport, no per-request
// construction).
func buildHTTPClient(cfg ClientConfig) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
	}
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("dispatch: invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}
	return &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}, nil
}

// randomMachineID generates a fresh 32-byte hex machineId for an account
// that has none recorded (SPEC_FULL §6).
func randomMachineID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// buildHeaders assembles the exact required header set for one upstream
// call (SPEC_FULL §6).
func buildHeaders(cfg ClientConfig, token, machineID string) (http.Header, error) {
	invocationID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	version := cfg.kiroVersion()
	suffix := fmt.Sprintf("KiroIDE-%s-%s", version, machineID)

	h := make(http.Header, 10)
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+token)
	h.Set("Host", fmt.Sprintf("q.%s.amazonaws.com", cfg.region()))
	h.Set("x-amzn-codewhisperer-optout", "true")
	h.Set("x-amzn-kiro-agent-mode", "vibe")
	h.Set("x-amz-user-agent", sdkUserAgent+" "+suffix)
	h.Set("User-Agent", fmt.Sprintf("%s ua/2.1 os/windows lang/js md/nodejs#20.0.0 api/codewhispererstreaming#1.0.27 m/E %s", sdkUserAgent, suffix))
	h.Set("amz-sdk-invocation-id", invocationID.String())
	h.Set("amz-sdk-request", "attempt=1; max=3")
	h.Set("Connection", "close")
	return h, nil
}
