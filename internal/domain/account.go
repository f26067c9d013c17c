package domain

import (
	"context"
	"time"
)

// AccountStatus is a pool account's position in the status machine.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusCooldown AccountStatus = "cooldown"
	StatusInvalid  AccountStatus = "invalid"
	StatusDisabled AccountStatus = "disabled"
)

// UsageInfo is the result of a usage-quota probe, reported by the external
// UsageProbe collaborator. Not computed by this gateway.
type UsageInfo struct {
	UsageLimit       int       `json:"usageLimit"`
	CurrentUsage     int       `json:"currentUsage"`
	Available        bool      `json:"available"`
	UserEmail        string    `json:"userEmail,omitempty"`
	SubscriptionType string    `json:"subscriptionType,omitempty"`
	NextReset        time.Time `json:"nextReset,omitempty"`
}

// Account is one upstream credential in the pool's roster.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	MachineID    string        `json:"machineId,omitempty"`
	ProfileArn   string        `json:"profileArn,omitempty"`
	Status       AccountStatus `json:"status"`
	RequestCount int64         `json:"requestCount"`
	ErrorCount   int64         `json:"errorCount"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastUsedAt   time.Time     `json:"lastUsedAt,omitempty"`
	Usage        *UsageInfo    `json:"usage,omitempty"`
}

// TokenProvider ensures a valid bearer token for an account, refreshing it
// if necessary. Implemented externally; credentials themselves are opaque
// to this gateway.
type TokenProvider interface {
	EnsureValidToken(ctx context.Context, accountID string) (string, error)
}

// ModelMapping is the result of a successful model-label resolution.
type ModelMapping struct {
	InternalID string
}

// ModelMappingStore looks up a rule-table mapping for a client-supplied
// model label. Returns ok=false if no rule matches.
type ModelMappingStore interface {
	FindMapping(clientModel string) (ModelMapping, bool)
}

// UsageProbe checks an account's remaining quota against the upstream.
type UsageProbe interface {
	CheckUsageLimits(ctx context.Context, token string) (UsageInfo, error)
}

// LogRow is one request-telemetry record handed to the LogSink.
type LogRow struct {
	Timestamp    time.Time
	AccountID    string
	Model        string
	Success      bool
	ErrorMessage string
}

// LogSink persists request telemetry. The schema and storage engine are
// owned externally (§1/§6); this gateway only ever calls InsertLog.
type LogSink interface {
	InsertLog(ctx context.Context, row LogRow) error
}
