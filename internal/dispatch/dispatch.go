// Package dispatch implements the Dispatcher: it binds a translated request
// to a selected pool account, attaches upstream headers, issues the
// streaming POST, and maps failures back to pool transitions and log rows.
// Grounded on the adaptive dispatch shape of the reference codebase's
// gateway/dispatcher.go, narrowed from a worker-pool fan-out to a
// single-shot per-request bind, and on provider.BuildHTTPClient for the
// shared proxy-aware client.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"modelgate/internal/domain"
	"modelgate/internal/translate"
)

// Metrics is the subset of telemetry the Dispatcher reports through. Nil
// fields are skipped, so a Dispatcher can run metrics-free in tests.
type Metrics interface {
	ObserveDispatchDuration(outcome string, seconds float64)
	IncDispatchTotal(outcome string)
	IncTranslateTotal(outcome string)
}

// Response is a successful dispatch: the upstream stream plus the
// per-request tool-name map the caller needs to translate tool-use events
// back to client-facing names.
type Response struct {
	Body    io.ReadCloser
	ToolMap map[string]string
}

// Dispatcher executes the end-to-end request/response cycle for one client
// request (SPEC_FULL §4.F).
type Dispatcher struct {
	translator *translate.Translator
	pool       Pool
	tokens     domain.TokenProvider
	logs       domain.LogSink
	metrics    Metrics

	httpClient *http.Client
	config     ClientConfig
}

// Pool is the subset of *pool.Pool the Dispatcher depends on.
type Pool interface {
	SelectAccount() (domain.Account, error)
	RecordRateLimit(accountID string)
	RecordError(accountID string)
	MarkInvalid(accountID string)
}

// New constructs a Dispatcher with its own shared HTTP client.
func New(translator *translate.Translator, p Pool, tokens domain.TokenProvider, logs domain.LogSink, cfg ClientConfig, metrics Metrics) (*Dispatcher, error) {
	client, err := buildHTTPClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		translator: translator,
		pool:       p,
		tokens:     tokens,
		logs:       logs,
		metrics:    metrics,
		httpClient: client,
		config:     cfg,
	}, nil
}

// Dispatch runs the full translate -> select -> token -> POST cycle
// (SPEC_FULL §4.F). Translation failures (UnsupportedModel, EmptyMessages)
// are raised before any account work and produce no log row; every other
// failure produces a log row with success=false (SPEC_FULL §7).
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.ClientRequest) (Response, error) {
	result, err := d.translator.Translate(req, "")
	if err != nil {
		switch {
		case errors.Is(err, translate.ErrEmptyMessages):
			d.incTranslate("empty_messages")
			return Response{}, &EmptyMessagesError{Err: err}
		default:
			d.incTranslate("unsupported_model")
			return Response{}, &UnsupportedModelError{Err: err}
		}
	}
	d.incTranslate("success")

	account, err := d.pool.SelectAccount()
	if err != nil {
		return Response{}, &NoAccountAvailableError{Err: err}
	}
	if result.Envelope.ProfileArn == "" && account.ProfileArn != "" {
		result.Envelope.ProfileArn = account.ProfileArn
	}

	start := time.Now()
	body, dispatchErr := d.call(ctx, account, result)
	elapsed := time.Since(start).Seconds()

	outcome := "success"
	if dispatchErr != nil {
		outcome = "error"
	}
	d.observe(outcome, elapsed)
	d.recordLog(ctx, account.ID, req.Model, dispatchErr)

	if dispatchErr != nil {
		d.updatePool(account.ID, dispatchErr)
		return Response{}, dispatchErr
	}
	return Response{Body: body, ToolMap: result.ToolMap}, nil
}

// call performs steps (iii)-(vi) of SPEC_FULL §4.F: token acquisition,
// header construction, and the streaming POST itself.
func (d *Dispatcher) call(ctx context.Context, account domain.Account, result translate.Result) (io.ReadCloser, error) {
	token, err := d.tokens.EnsureValidToken(ctx, account.ID)
	if err != nil {
		return nil, &TokenError{Err: err, Persistent: true}
	}

	machineID := account.MachineID
	if machineID == "" {
		machineID, err = randomMachineID()
		if err != nil {
			return nil, &TransportError{Err: err}
		}
	}

	headers, err := buildHeaders(d.config, token, machineID)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	payload, err := json.Marshal(result.Envelope)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.endpointURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	httpReq.Header = headers

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, &UpstreamError{
			Status:  resp.StatusCode,
			Body:    raw,
			Summary: SummarizeJSON(payload),
		}
	}

	return resp.Body, nil
}

// updatePool applies the pool-transition side effects of a dispatch error
// (SPEC_FULL §7): throttling transitions active->cooldown, a persistent
// token failure transitions to invalid, everything else just bumps the
// error counter.
func (d *Dispatcher) updatePool(accountID string, err error) {
	var upstream *UpstreamError
	if e, ok := err.(*UpstreamError); ok {
		upstream = e
	}
	switch {
	case upstream != nil && upstream.Throttled():
		d.pool.RecordRateLimit(accountID)
	case isPersistentTokenError(err):
		d.pool.MarkInvalid(accountID)
	default:
		d.pool.RecordError(accountID)
	}
}

func isPersistentTokenError(err error) bool {
	te, ok := err.(*TokenError)
	return ok && te.Persistent
}

func (d *Dispatcher) observe(outcome string, seconds float64) {
	if d.metrics == nil {
		return
	}
	d.metrics.ObserveDispatchDuration(outcome, seconds)
	d.metrics.IncDispatchTotal(outcome)
}

// incTranslate records one translation outcome (SPEC_FULL §2A).
func (d *Dispatcher) incTranslate(outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.IncTranslateTotal(outcome)
}

func (d *Dispatcher) recordLog(ctx context.Context, accountID, model string, dispatchErr error) {
	if d.logs == nil {
		return
	}
	row := domain.LogRow{
		Timestamp: time.Now(),
		AccountID: accountID,
		Model:     model,
		Success:   dispatchErr == nil,
	}
	if dispatchErr != nil {
		row.ErrorMessage = dispatchErr.Error()
	}
	_ = d.logs.InsertLog(ctx, row)
}
