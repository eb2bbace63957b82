package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"stockchat/internal/domain"
	"stockchat/internal/metrics"
)

// Broker is the in-memory implementation of domain.RequestQueue and
// domain.ResponseBus. One instance is created at startup and injected into
// the worker and every connection handler.
type Broker struct {
	mu      sync.Mutex
	pending []domain.StockRequest
	wake    chan struct{}

	handlersMu sync.RWMutex
	handlers   map[string][]domain.ResponseHandler
}

func New() *Broker {
	return &Broker{
		wake:     make(chan struct{}, 1),
		handlers: make(map[string][]domain.ResponseHandler),
	}
}

// PublishRequest enqueues a stock request. The queue is unbounded, so
// producers never block; backpressure here would stall chat delivery.
func (b *Broker) PublishRequest(req domain.StockRequest) {
	b.mu.Lock()
	b.pending = append(b.pending, req)
	depth := len(b.pending)
	b.mu.Unlock()

	metrics.StockRequestsQueuedTotal.Inc()
	metrics.BrokerQueueDepth.Set(float64(depth))
	slog.Info("Stock request queued", "symbol", req.Symbol, "room_id", req.RoomID, "requested_by", req.RequestedBy)

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// ConsumeRequest blocks until a request is available or ctx is cancelled.
// Each request is delivered to at most one caller.
func (b *Broker) ConsumeRequest(ctx context.Context) (domain.StockRequest, error) {
	for {
		b.mu.Lock()
		if len(b.pending) > 0 {
			req := b.pending[0]
			b.pending = b.pending[1:]
			depth := len(b.pending)
			// Re-arm the wake signal if items remain, so concurrent
			// consumers are not left sleeping on a non-empty queue.
			if depth > 0 {
				select {
				case b.wake <- struct{}{}:
				default:
				}
			}
			b.mu.Unlock()
			metrics.BrokerQueueDepth.Set(float64(depth))
			return req, nil
		}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.StockRequest{}, ctx.Err()
		case <-b.wake:
		}
	}
}

// SubscribeRoom appends a handler to the room's handler list. Repeated
// subscribes without an unsubscribe accumulate handlers; callers that rejoin
// a room are responsible for unsubscribing first if duplicate delivery is
// undesired.
func (b *Broker) SubscribeRoom(roomID string, handler domain.ResponseHandler) {
	b.handlersMu.Lock()
	b.handlers[roomID] = append(b.handlers[roomID], handler)
	count := len(b.handlers[roomID])
	b.handlersMu.Unlock()

	slog.Debug("Subscribed to stock responses", "room_id", roomID, "handler_count", count)
}

// UnsubscribeRoom removes all handlers for the room. Calling it on a room
// with no subscribers is a no-op.
func (b *Broker) UnsubscribeRoom(roomID string) {
	b.handlersMu.Lock()
	delete(b.handlers, roomID)
	b.handlersMu.Unlock()

	slog.Debug("Unsubscribed from stock responses", "room_id", roomID)
}

// PublishResponse snapshots the room's handler list and invokes every handler
// on its own goroutine. A handler failure or panic is logged and never reaches
// sibling handlers or the caller. With no subscribers the response is silently
// dropped: everyone left the room before the quote came back.
func (b *Broker) PublishResponse(resp domain.StockResponse) {
	b.handlersMu.RLock()
	snapshot := make([]domain.ResponseHandler, len(b.handlers[resp.RoomID]))
	copy(snapshot, b.handlers[resp.RoomID])
	b.handlersMu.RUnlock()

	if len(snapshot) == 0 {
		metrics.StockResponsesPublishedTotal.WithLabelValues("dropped").Inc()
		slog.Debug("Dropping stock response with no subscribers", "room_id", resp.RoomID, "symbol", resp.Symbol)
		return
	}

	slog.Info("Publishing stock response", "room_id", resp.RoomID, "symbol", resp.Symbol, "is_error", resp.IsError, "handlers", len(snapshot))
	metrics.StockResponsesPublishedTotal.WithLabelValues("delivered").Inc()

	for _, handler := range snapshot {
		go invokeHandler(handler, resp)
	}
}

func invokeHandler(handler domain.ResponseHandler, resp domain.StockResponse) {
	defer func() {
		if r := recover(); r != nil {
			metrics.StockHandlerErrorsTotal.Inc()
			slog.Error("Stock response handler panicked", "room_id", resp.RoomID, "panic", fmt.Sprintf("%v", r))
		}
	}()

	if err := handler(resp); err != nil {
		metrics.StockHandlerErrorsTotal.Inc()
		slog.Error("Stock response handler failed", "room_id", resp.RoomID, "error", err)
	}
}
