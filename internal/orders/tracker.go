// Package orders tracks resting orders placed from trade signals through
// expiry, cancellation and venue reconciliation.
package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"smc-trading-bot/internal/signal"
)

// Tracker errors.
var (
	// ErrMaxPending is returned when the per-symbol resting-order cap is
	// reached. Placement is refused, never queued.
	ErrMaxPending = errors.New("max pending orders reached for symbol")
)

// PlaceRequest is everything the execution gateway needs to rest an order.
type PlaceRequest struct {
	Symbol     string
	Kind       signal.OrderKind
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Volume     float64
	ExpiresAt  time.Time
}

// Gateway is the external order-execution venue. Implementations own all
// network concerns; the tracker only calls them synchronously.
type Gateway interface {
	// PlacePending rests an order at the venue and returns its ticket.
	PlacePending(ctx context.Context, req PlaceRequest) (int64, error)
	// CancelPending removes a resting order by ticket.
	CancelPending(ctx context.Context, symbol string, ticket int64) error
}

// PendingOrder is one tracked resting order.
type PendingOrder struct {
	Ticket     int64            `json:"ticket"`
	Symbol     string           `json:"symbol"`
	Kind       signal.OrderKind `json:"kind"`
	EntryPrice float64          `json:"entry_price"`
	StopLoss   float64          `json:"stop_loss"`
	TakeProfit float64          `json:"take_profit"`
	Volume     float64          `json:"volume"`
	PlacedAt   time.Time        `json:"placed_at"`
	ExpiresAt  time.Time        `json:"expires_at"`
	Setup      string           `json:"setup"` // Originating setup type
}

// Expired reports whether the order's expiry has passed.
func (o PendingOrder) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Store persists tracked orders so a restarted process can re-adopt them.
// Implementations must tolerate being nil-checked away.
type Store interface {
	Save(ctx context.Context, order PendingOrder) error
	Remove(ctx context.Context, ticket int64) error
	LoadAll(ctx context.Context) ([]PendingOrder, error)
}

// Tracker owns the ticket map. All mutation paths take the mutex; the
// engine contract is single-writer per cycle, the lock covers embedding in
// threaded hosts.
type Tracker struct {
	mu           sync.Mutex
	gateway      Gateway
	store        Store // Optional, may be nil
	orders       map[int64]PendingOrder
	maxPerSymbol int
	expiry       time.Duration
	log          zerolog.Logger
}

// NewTracker creates a tracker. store may be nil for memory-only tracking.
func NewTracker(gateway Gateway, store Store, maxPerSymbol int, expiry time.Duration, log zerolog.Logger) *Tracker {
	return &Tracker{
		gateway:      gateway,
		store:        store,
		orders:       make(map[int64]PendingOrder),
		maxPerSymbol: maxPerSymbol,
		expiry:       expiry,
		log:          log.With().Str("component", "order_tracker").Logger(),
	}
}

// Restore re-adopts persisted orders after a restart. Orders already
// expired are left for the next SweepExpired pass.
func (t *Tracker) Restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	restored, err := t.store.LoadAll(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, order := range restored {
		t.orders[order.Ticket] = order
	}
	if len(restored) > 0 {
		t.log.Info().Int("count", len(restored)).Msg("restored tracked orders")
	}
	return nil
}

// Place rests an order derived from the signal. The per-symbol cap is
// checked before the gateway is contacted; a refusal costs nothing at the
// venue.
func (t *Tracker) Place(ctx context.Context, sig *signal.Signal, volume float64) (int64, error) {
	now := time.Now().UTC()

	t.mu.Lock()
	count := 0
	for _, order := range t.orders {
		if order.Symbol == sig.Symbol {
			count++
		}
	}
	if count >= t.maxPerSymbol {
		t.mu.Unlock()
		t.log.Warn().Str("symbol", sig.Symbol).Int("cap", t.maxPerSymbol).Msg("placement refused, cap reached")
		return 0, ErrMaxPending
	}
	t.mu.Unlock()

	req := PlaceRequest{
		Symbol:     sig.Symbol,
		Kind:       sig.OrderKind,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Volume:     volume,
		ExpiresAt:  now.Add(t.expiry),
	}

	ticket, err := t.gateway.PlacePending(ctx, req)
	if err != nil {
		return 0, err
	}

	order := PendingOrder{
		Ticket:     ticket,
		Symbol:     sig.Symbol,
		Kind:       sig.OrderKind,
		EntryPrice: sig.EntryPrice,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
		Volume:     volume,
		PlacedAt:   now,
		ExpiresAt:  req.ExpiresAt,
		Setup:      string(sig.SetupType),
	}

	t.mu.Lock()
	t.orders[ticket] = order
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Save(ctx, order); err != nil {
			t.log.Warn().Err(err).Int64("ticket", ticket).Msg("order persist failed")
		}
	}

	t.log.Info().
		Int64("ticket", ticket).
		Str("symbol", sig.Symbol).
		Str("kind", string(sig.OrderKind)).
		Float64("entry", sig.EntryPrice).
		Time("expires_at", req.ExpiresAt).
		Msg("pending order placed")

	return ticket, nil
}

// Cancel removes one resting order at the venue and drops it locally.
func (t *Tracker) Cancel(ctx context.Context, ticket int64) error {
	t.mu.Lock()
	order, ok := t.orders[ticket]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	if err := t.gateway.CancelPending(ctx, order.Symbol, ticket); err != nil {
		return err
	}

	t.drop(ctx, ticket)
	t.log.Info().Int64("ticket", ticket).Msg("pending order cancelled")
	return nil
}

// SweepExpired proactively cancels every order whose expiry has passed,
// without waiting for reconciliation. It returns the cancelled tickets.
func (t *Tracker) SweepExpired(ctx context.Context, now time.Time) []int64 {
	t.mu.Lock()
	var expired []PendingOrder
	for _, order := range t.orders {
		if order.Expired(now) {
			expired = append(expired, order)
		}
	}
	t.mu.Unlock()

	var cancelled []int64
	for _, order := range expired {
		if err := t.gateway.CancelPending(ctx, order.Symbol, order.Ticket); err != nil {
			t.log.Error().Err(err).Int64("ticket", order.Ticket).Msg("expiry cancel failed")
		}
		// Dropped even when the venue cancel fails: the order is past its
		// expiry and reconciliation will confirm the terminal state.
		t.drop(ctx, order.Ticket)
		cancelled = append(cancelled, order.Ticket)
		t.log.Info().Int64("ticket", order.Ticket).Str("symbol", order.Symbol).Msg("pending order expired")
	}

	return cancelled
}

// Reconcile drops every tracked ticket the venue no longer reports open.
// A vanished ticket means the order filled or was cancelled externally;
// the two are indistinguishable without venue trade history, so both are
// reported as closed. Returns the dropped tickets.
func (t *Tracker) Reconcile(ctx context.Context, openTickets map[int64]struct{}) []int64 {
	t.mu.Lock()
	var gone []int64
	for ticket := range t.orders {
		if _, open := openTickets[ticket]; !open {
			gone = append(gone, ticket)
		}
	}
	t.mu.Unlock()

	for _, ticket := range gone {
		t.drop(ctx, ticket)
		t.log.Info().Int64("ticket", ticket).Msg("pending order closed at venue (filled or cancelled)")
	}

	return gone
}

// Orders returns a snapshot of the tracked orders.
func (t *Tracker) Orders() []PendingOrder {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]PendingOrder, 0, len(t.orders))
	for _, order := range t.orders {
		snapshot = append(snapshot, order)
	}
	return snapshot
}

// Count returns the number of tracked orders for a symbol.
func (t *Tracker) Count(symbol string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, order := range t.orders {
		if order.Symbol == symbol {
			count++
		}
	}
	return count
}

func (t *Tracker) drop(ctx context.Context, ticket int64) {
	t.mu.Lock()
	delete(t.orders, ticket)
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.Remove(ctx, ticket); err != nil {
			t.log.Warn().Err(err).Int64("ticket", ticket).Msg("order unpersist failed")
		}
	}
}
