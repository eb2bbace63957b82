package stockbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"

	"stockchat/internal/domain"
)

// consumeRetryDelay spaces out retries after a non-cancellation consume error
// to avoid a tight error loop.
const consumeRetryDelay = time.Second

type workerBroker interface {
	domain.RequestQueue
	PublishResponse(resp domain.StockResponse)
}

// Worker drains the broker queue and resolves each request against the quote
// provider. One worker runs for the lifetime of the process; each dequeued
// request is processed on its own goroutine, gated by a weighted semaphore so
// a burst of commands cannot spawn unbounded upstream calls.
type Worker struct {
	broker workerBroker
	quotes domain.QuoteService
	sem    *semaphore.Weighted
	clock  clockwork.Clock
}

func NewWorker(b workerBroker, quotes domain.QuoteService, maxInFlight int64, clock clockwork.Clock) *Worker {
	return &Worker{
		broker: b,
		quotes: quotes,
		sem:    semaphore.NewWeighted(maxInFlight),
		clock:  clock,
	}
}

// Run blocks until ctx is cancelled. Cancellation is the only clean exit and
// is not logged as an error. In-flight lookups started before cancellation
// run to completion.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("Stock bot worker started")
	defer slog.Info("Stock bot worker stopped")

	for {
		req, err := w.broker.ConsumeRequest(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			slog.Error("Failed to consume stock request", "error", err)
			select {
			case <-w.clock.After(consumeRetryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := w.sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting for a slot; the request is dropped
			// along with the rest of the shutdown.
			return
		}

		go func(req domain.StockRequest) {
			defer w.sem.Release(1)
			w.process(req)
		}(req)
	}
}

func (w *Worker) process(req domain.StockRequest) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while processing stock request", "symbol", req.Symbol, "room_id", req.RoomID, "panic", fmt.Sprintf("%v", r))
		}
	}()

	slog.Info("Processing stock request", "symbol", req.Symbol, "room_id", req.RoomID, "requested_by", req.RequestedBy)

	result := w.quotes.GetQuote(context.Background(), req.Symbol)

	resp := domain.StockResponse{
		Symbol:      req.Symbol,
		RoomID:      req.RoomID,
		RequestedBy: req.RequestedBy,
		RespondedAt: w.clock.Now().UTC(),
		IsError:     !result.IsSuccess,
		DisplayText: result.DisplayText,
	}
	if !result.IsSuccess {
		resp.ErrorDetail = result.ErrorDetail
		resp.DisplayText = fmt.Sprintf("Error getting stock quote for %s: %s", req.Symbol, result.ErrorDetail)
		slog.Warn("Stock quote lookup failed", "symbol", req.Symbol, "room_id", req.RoomID, "error_detail", result.ErrorDetail)
	}

	// The room gets a terminal message for every request it issued, even on
	// failure.
	w.broker.PublishResponse(resp)
}
