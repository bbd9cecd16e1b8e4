package orders

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LoggingGateway is a paper trading gateway. It assigns tickets locally
// and logs every action instead of reaching a venue, which makes the full
// order lifecycle runnable without broker credentials.
type LoggingGateway struct {
	mu         sync.Mutex
	nextTicket int64
	open       map[int64]struct{}
	log        zerolog.Logger
}

// NewLoggingGateway creates a paper gateway.
func NewLoggingGateway(logger zerolog.Logger) *LoggingGateway {
	return &LoggingGateway{
		nextTicket: 1,
		open:       make(map[int64]struct{}),
		log:        logger.With().Str("component", "paper_gateway").Logger(),
	}
}

// PlacePending records a simulated pending order and returns its ticket.
func (g *LoggingGateway) PlacePending(ctx context.Context, req PlaceRequest) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	g.mu.Lock()
	ticket := g.nextTicket
	g.nextTicket++
	g.open[ticket] = struct{}{}
	g.mu.Unlock()

	g.log.Info().
		Int64("ticket", ticket).
		Str("symbol", req.Symbol).
		Str("kind", string(req.Kind)).
		Float64("entry", req.EntryPrice).
		Float64("stop_loss", req.StopLoss).
		Float64("take_profit", req.TakeProfit).
		Float64("volume", req.Volume).
		Msg("paper order placed")

	return ticket, nil
}

// CancelPending removes a simulated pending order.
func (g *LoggingGateway) CancelPending(ctx context.Context, symbol string, ticket int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	delete(g.open, ticket)
	g.mu.Unlock()

	g.log.Info().
		Int64("ticket", ticket).
		Str("symbol", symbol).
		Msg("paper order cancelled")

	return nil
}

// OpenTickets returns the set of tickets still pending at the simulated
// venue, in the shape Reconcile expects.
func (g *LoggingGateway) OpenTickets() map[int64]struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()

	open := make(map[int64]struct{}, len(g.open))
	for t := range g.open {
		open[t] = struct{}{}
	}
	return open
}
