// Package pool implements the Account Pool: a roster of upstream
// credentials with a status machine, a selection policy, and JSON-file
// persistence. Grounded on the key-selector and circuit-breaker shapes of
// the reference codebase, adapted from SQL-backed to in-memory + JSON.
package pool

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"modelgate/internal/domain"
)

// ErrNoAccountAvailable is returned when no account in the roster is
// currently active.
var ErrNoAccountAvailable = errors.New("pool: no account available")

// CooldownInterval is the fixed duration an account spends in cooldown
// before a deferred transition returns it to active (SPEC_FULL §4.E).
const CooldownInterval = 5 * time.Minute

// Policy selects which active account to hand out next.
type Policy string

const (
	PolicyRoundRobin Policy = "round-robin"
	PolicyRandom     Policy = "random"
	PolicyLeastUsed  Policy = "least-used"
)

// Store persists the roster. Implemented by JSONFileStore; tests may supply
// a no-op.
type Store interface {
	Load() ([]domain.Account, error)
	Save(accounts []domain.Account) error
}

// Pool is a mutex-guarded roster of accounts. All mutation, including the
// metrics status hook, happens while holding mu, so a transition and its
// gauge mirror are never observed out of order; I/O (persistence, deferred
// timers firing) happens after release, per SPEC_FULL §5.
type Pool struct {
	mu sync.Mutex

	accounts map[string]*domain.Account
	order    []string // stable iteration order for round-robin and ties
	rrIndex  int
	policy   Policy

	generation map[string]uint64 // bumped on every status change; guards deferred timers

	store            Store
	onStatus         func(accountID string, status domain.AccountStatus) // metrics hook, invoked under mu
	cooldownInterval time.Duration

	rng *rand.Rand
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithPolicy sets the selection policy. Default is round-robin.
func WithPolicy(p Policy) Option { return func(pl *Pool) { pl.policy = p } }

// WithStatusHook registers a callback invoked while holding mu, immediately
// after a status transition is committed, for metrics/telemetry mirroring
// (SPEC_FULL §4.E). The hook must not block or re-enter the pool.
func WithStatusHook(fn func(accountID string, status domain.AccountStatus)) Option {
	return func(pl *Pool) { pl.onStatus = fn }
}

// WithCooldownInterval overrides the duration an account spends in
// cooldown before a deferred transition returns it to active. Default is
// CooldownInterval.
func WithCooldownInterval(d time.Duration) Option {
	return func(pl *Pool) { pl.cooldownInterval = d }
}

// New creates a Pool from an already-loaded roster. Use Open to load from a
// Store.
func New(accounts []domain.Account, store Store, opts ...Option) *Pool {
	p := &Pool{
		accounts:         make(map[string]*domain.Account, len(accounts)),
		generation:       make(map[string]uint64, len(accounts)),
		policy:           PolicyRoundRobin,
		store:            store,
		cooldownInterval: CooldownInterval,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for i := range accounts {
		a := accounts[i]
		p.accounts[a.ID] = &a
		p.order = append(p.order, a.ID)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open loads the roster from store and constructs a Pool.
func Open(store Store, opts ...Option) (*Pool, error) {
	accounts, err := store.Load()
	if err != nil {
		return nil, err
	}
	return New(accounts, store, opts...), nil
}

// SelectAccount picks the next eligible account per the configured policy,
// bumps its requestCount and lastUsedAt, and schedules (non-blocking)
// persistence of the new state.
func (p *Pool) SelectAccount() (domain.Account, error) {
	p.mu.Lock()

	active := p.activeIDsLocked()
	if len(active) == 0 {
		p.mu.Unlock()
		return domain.Account{}, ErrNoAccountAvailable
	}

	var id string
	switch p.policy {
	case PolicyRandom:
		id = active[p.rng.Intn(len(active))]
	case PolicyLeastUsed:
		id = active[0]
		for _, candidate := range active[1:] {
			if p.accounts[candidate].RequestCount < p.accounts[id].RequestCount {
				id = candidate
			}
		}
	default: // round-robin
		id = active[p.rrIndex%len(active)]
		p.rrIndex = (p.rrIndex + 1) % len(active)
	}

	account := p.accounts[id]
	account.RequestCount++
	account.LastUsedAt = time.Now()
	snapshot := *account

	p.mu.Unlock()

	p.persistAsync()
	return snapshot, nil
}

// activeIDsLocked returns the ids of active accounts in stable order.
// Caller must hold mu.
func (p *Pool) activeIDsLocked() []string {
	var ids []string
	for _, id := range p.order {
		if a, ok := p.accounts[id]; ok && a.Status == domain.StatusActive {
			ids = append(ids, id)
		}
	}
	return ids
}

// RecordRateLimit transitions an active account to cooldown and schedules
// the deferred cooldown -> active transition.
func (p *Pool) RecordRateLimit(accountID string) {
	p.mu.Lock()
	account, ok := p.accounts[accountID]
	if !ok {
		p.mu.Unlock()
		return
	}
	account.ErrorCount++
	account.Status = domain.StatusCooldown
	p.generation[accountID]++
	gen := p.generation[accountID]
	interval := p.cooldownInterval
	p.notifyStatus(accountID, domain.StatusCooldown)
	p.mu.Unlock()

	p.persistAsync()

	time.AfterFunc(interval, func() { p.fireCooldownExpiry(accountID, gen) })
}

// fireCooldownExpiry re-reads the account's status and generation; the
// transition back to active is suppressed if either has changed since the
// timer was scheduled (SPEC_FULL §5, §9).
func (p *Pool) fireCooldownExpiry(accountID string, gen uint64) {
	p.mu.Lock()
	account, ok := p.accounts[accountID]
	if !ok || p.generation[accountID] != gen || account.Status != domain.StatusCooldown {
		p.mu.Unlock()
		return
	}
	account.Status = domain.StatusActive
	p.notifyStatus(accountID, domain.StatusActive)
	p.mu.Unlock()

	p.persistAsync()
}

// RecordError increments the error counter without a status transition
// (non-throttling UpstreamError/TransportError, SPEC_FULL §7).
func (p *Pool) RecordError(accountID string) {
	p.mu.Lock()
	if account, ok := p.accounts[accountID]; ok {
		account.ErrorCount++
	}
	p.mu.Unlock()
	p.persistAsync()
}

// MarkInvalid transitions an account to invalid (persistent TokenError,
// SPEC_FULL §7) or an explicit admin action.
func (p *Pool) MarkInvalid(accountID string) {
	p.setStatus(accountID, domain.StatusInvalid)
}

// SetDisabled and SetActive implement the admin-driven disabled<->active
// transition (SPEC_FULL §4.E).
func (p *Pool) SetDisabled(accountID string) { p.setStatus(accountID, domain.StatusDisabled) }
func (p *Pool) SetActive(accountID string)   { p.setStatus(accountID, domain.StatusActive) }

func (p *Pool) setStatus(accountID string, status domain.AccountStatus) {
	p.mu.Lock()
	account, ok := p.accounts[accountID]
	if !ok {
		p.mu.Unlock()
		return
	}
	account.Status = status
	p.generation[accountID]++
	p.notifyStatus(accountID, status)
	p.mu.Unlock()

	p.persistAsync()
}

// notifyStatus invokes the metrics hook. Caller must hold mu, so the gauge
// write commits in the same order as the status transition that triggered
// it (SPEC_FULL §4.E).
func (p *Pool) notifyStatus(accountID string, status domain.AccountStatus) {
	if p.onStatus != nil {
		p.onStatus(accountID, status)
	}
}

// Snapshot returns a copy of the current roster, for admin surfaces and
// tests.
func (p *Pool) Snapshot() []domain.Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Account, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.accounts[id])
	}
	return out
}

// persistAsync schedules a roster write without blocking the caller
// (SPEC_FULL §5). Concurrent calls coalesce onto the latest snapshot taken
// at call time; the store is the pool's sole writer.
func (p *Pool) persistAsync() {
	if p.store == nil {
		return
	}
	snapshot := p.Snapshot()
	go func() {
		_ = p.store.Save(snapshot)
	}()
}
