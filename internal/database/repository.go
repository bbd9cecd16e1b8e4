package database

import (
	"context"
	"fmt"
	"time"

	"smc-trading-bot/internal/analysis"
	"smc-trading-bot/internal/market"
	"smc-trading-bot/internal/orders"
	"smc-trading-bot/internal/signal"
)

// Repository provides persistence for signals and order events.
type Repository struct {
	db *DB
}

// NewRepository creates a repository backed by the given database.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SignalRecord is a persisted signal row.
type SignalRecord struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Direction  string    `json:"direction"`
	OrderKind  string    `json:"order_kind"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Confidence float64   `json:"confidence"`
	SetupType  string    `json:"setup_type"`
	H4Bias     string    `json:"h4_bias"`
	H1Bias     string    `json:"h1_bias"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveSignal stores one generated signal.
func (r *Repository) SaveSignal(ctx context.Context, sig *signal.Signal) error {
	h4 := string(analysis.Ranging)
	h1 := string(analysis.Ranging)
	if b, ok := sig.TimeframeBias[market.H4]; ok {
		h4 = string(b)
	}
	if b, ok := sig.TimeframeBias[market.H1]; ok {
		h1 = string(b)
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO signals (id, symbol, direction, order_kind, entry_price, stop_loss,
			take_profit, confidence, setup_type, h4_bias, h1_bias, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sig.ID, sig.Symbol, string(sig.Direction), string(sig.OrderKind),
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Confidence,
		string(sig.SetupType), h4, h1, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save signal %s: %w", sig.ID, err)
	}
	return nil
}

// RecentSignals returns the latest signals for a symbol, newest first.
func (r *Repository) RecentSignals(ctx context.Context, symbol string, limit int) ([]SignalRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, symbol, direction, order_kind, entry_price, stop_loss,
			take_profit, confidence, setup_type, h4_bias, h1_bias, created_at
		FROM signals WHERE symbol = $1
		ORDER BY created_at DESC LIMIT $2`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query signals for %s: %w", symbol, err)
	}
	defer rows.Close()

	var records []SignalRecord
	for rows.Next() {
		var rec SignalRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Direction, &rec.OrderKind,
			&rec.EntryPrice, &rec.StopLoss, &rec.TakeProfit, &rec.Confidence,
			&rec.SetupType, &rec.H4Bias, &rec.H1Bias, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveOrderEvent appends one order lifecycle transition.
func (r *Repository) SaveOrderEvent(ctx context.Context, order orders.PendingOrder, event string, at time.Time) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO order_events (ticket, symbol, event, kind, entry_price, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		order.Ticket, order.Symbol, event, string(order.Kind), order.EntryPrice, at,
	)
	if err != nil {
		return fmt.Errorf("save order event %s for ticket %d: %w", event, order.Ticket, err)
	}
	return nil
}
