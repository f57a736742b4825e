// Package preview meters the daily free PDF-preview quota. Each user gets a
// fixed budget of preview seconds per UTC calendar day; an active preview
// burns one second per tick and access is revoked once the budget is gone.
// The tracker owns no timer, ticks arrive from the caller.
package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/meghatales/bookstore/internal/clock"
	"github.com/meghatales/bookstore/internal/docstore"
)

// DefaultQuotaSeconds is 30 minutes, the storefront's free daily allowance.
const DefaultQuotaSeconds = 1800

const collection = "entitlements"

var (
	ErrQuotaExhausted = errors.New("preview: daily quota exhausted")
	ErrNoUser         = errors.New("preview: no signed-in user")
)

type State string

const (
	StateAvailable State = "available"
	StateConsuming State = "consuming"
	StateExhausted State = "exhausted"
)

// Entitlement is the persisted per-user counter. It survives reloads within
// the same day; the date flip resets it.
type Entitlement struct {
	UserID          string `json:"userId"`
	QuotaSeconds    int    `json:"quotaSeconds"`
	ConsumedSeconds int    `json:"consumedSeconds"`
	LastResetDate   string `json:"lastResetDate"`
}

func (e Entitlement) remaining() int {
	r := e.QuotaSeconds - e.ConsumedSeconds
	if r < 0 {
		return 0
	}
	return r
}

// Tracker gates preview access against the stored entitlement. One tracker
// serves every user of the process, so the active map is mutex-guarded.
// Two devices on one account still double-consume, there is no cross-device
// lock.
type Tracker struct {
	store docstore.Store
	clock clock.Clock
	quota int

	mu     sync.Mutex
	active map[string]string // userID -> resourceID being previewed
}

func NewTracker(store docstore.Store, clk clock.Clock, quotaSeconds int) *Tracker {
	if quotaSeconds <= 0 {
		quotaSeconds = DefaultQuotaSeconds
	}
	return &Tracker{
		store:  store,
		clock:  clk,
		quota:  quotaSeconds,
		active: make(map[string]string),
	}
}

// load fetches the user's entitlement, lazily creating it, and applies the
// daily reset before anything reads the counter. The advanced reset date is
// persisted so the record never resets twice for the same day.
func (t *Tracker) load(ctx context.Context, userID string) (Entitlement, error) {
	today := clock.Today(t.clock)

	rec, err := t.store.Get(ctx, collection, userID)
	if errors.Is(err, docstore.ErrNotFound) {
		ent := Entitlement{
			UserID:        userID,
			QuotaSeconds:  t.quota,
			LastResetDate: today,
		}
		if err := t.save(ctx, ent); err != nil {
			return Entitlement{}, err
		}
		return ent, nil
	}
	if err != nil {
		return Entitlement{}, err
	}

	ent := fromRecord(rec)
	if ent.QuotaSeconds == 0 {
		ent.QuotaSeconds = t.quota
	}
	if ent.LastResetDate != today {
		ent.ConsumedSeconds = 0
		ent.LastResetDate = today
		if err := t.save(ctx, ent); err != nil {
			return Entitlement{}, err
		}
	}
	return ent, nil
}

func (t *Tracker) save(ctx context.Context, ent Entitlement) error {
	if err := t.store.Put(ctx, collection, ent.UserID, toRecord(ent)); err != nil {
		return fmt.Errorf("preview: persist entitlement: %w", err)
	}
	return nil
}

// StartPreview opens a preview session for the resource and returns the
// remaining budget in seconds.
func (t *Tracker) StartPreview(ctx context.Context, userID, resourceID string) (int, error) {
	if userID == "" {
		return 0, ErrNoUser
	}

	ent, err := t.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	if ent.remaining() == 0 {
		return 0, ErrQuotaExhausted
	}

	t.mu.Lock()
	t.active[userID] = resourceID
	t.mu.Unlock()
	return ent.remaining(), nil
}

// Tick records one elapsed preview second. revoke turns true on the tick
// that exhausts the quota; the caller must then pull the previewed resource.
// Ticks for a user with no open preview, or past exhaustion, are no-ops.
func (t *Tracker) Tick(ctx context.Context, userID string) (remaining int, revoke bool, err error) {
	if userID == "" {
		return 0, false, ErrNoUser
	}

	ent, err := t.load(ctx, userID)
	if err != nil {
		return 0, false, err
	}

	if !t.consuming(userID) {
		return ent.remaining(), false, nil
	}
	if ent.remaining() == 0 {
		t.stop(userID)
		return 0, false, nil
	}

	ent.ConsumedSeconds++
	if ent.ConsumedSeconds > ent.QuotaSeconds {
		ent.ConsumedSeconds = ent.QuotaSeconds
	}
	if err := t.save(ctx, ent); err != nil {
		return 0, false, err
	}

	if ent.remaining() == 0 {
		t.stop(userID)
		return 0, true, nil
	}
	return ent.remaining(), false, nil
}

func (t *Tracker) consuming(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.active[userID]
	return ok
}

func (t *Tracker) stop(userID string) {
	t.mu.Lock()
	delete(t.active, userID)
	t.mu.Unlock()
}

// StopPreview closes the user's preview session. Idempotent, safe to call
// at any time including after exhaustion.
func (t *Tracker) StopPreview(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrNoUser
	}
	t.stop(userID)
	return nil
}

// RemainingSeconds reports today's unused budget, applying the daily reset
// first.
func (t *Tracker) RemainingSeconds(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrNoUser
	}
	ent, err := t.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	return ent.remaining(), nil
}

// StateOf reports where the user sits in the available/consuming/exhausted
// cycle.
func (t *Tracker) StateOf(ctx context.Context, userID string) (State, error) {
	if userID == "" {
		return "", ErrNoUser
	}
	ent, err := t.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if ent.remaining() == 0 {
		return StateExhausted, nil
	}
	if t.consuming(userID) {
		return StateConsuming, nil
	}
	return StateAvailable, nil
}

func toRecord(ent Entitlement) docstore.Record {
	return docstore.Record{
		"userId":          ent.UserID,
		"quotaSeconds":    ent.QuotaSeconds,
		"consumedSeconds": ent.ConsumedSeconds,
		"lastResetDate":   ent.LastResetDate,
	}
}

func fromRecord(rec docstore.Record) Entitlement {
	ent := Entitlement{}
	if v, ok := rec["userId"].(string); ok {
		ent.UserID = v
	}
	if v, ok := rec["quotaSeconds"].(float64); ok {
		ent.QuotaSeconds = int(v)
	}
	if v, ok := rec["consumedSeconds"].(float64); ok {
		ent.ConsumedSeconds = int(v)
	}
	if v, ok := rec["lastResetDate"].(string); ok {
		ent.LastResetDate = v
	}
	return ent
}
