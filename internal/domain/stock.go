package domain

import (
	"context"
	"time"
)

// StockRequest is a queued quote lookup. Created when a stock command is
// recognized, consumed exactly once by the worker.
type StockRequest struct {
	Symbol      string
	RoomID      string
	RequestedBy string
	RequestedAt time.Time
}

// StockResponse is the terminal result of a StockRequest. It is delivered to
// whoever is subscribed to the room at publish time and never persisted.
type StockResponse struct {
	Symbol      string
	RoomID      string
	RequestedBy string
	RespondedAt time.Time
	IsError     bool
	ErrorDetail string
	DisplayText string
}

// QuoteResult is the outcome of a single upstream quote lookup. Failures are
// encoded in the value: DisplayText is always populated, so callers never need
// a nil check.
type QuoteResult struct {
	Symbol      string
	Price       float64
	IsSuccess   bool
	DisplayText string
	ErrorDetail string
}

// QuoteService fetches a price snapshot for a ticker symbol.
type QuoteService interface {
	GetQuote(ctx context.Context, symbol string) QuoteResult
}

// ResponseHandler renders a StockResponse for one room subscription. A
// returned error is logged by the broker and isolated from sibling handlers.
type ResponseHandler func(StockResponse) error

// RequestQueue decouples stock command producers from the single worker.
type RequestQueue interface {
	PublishRequest(req StockRequest)
	ConsumeRequest(ctx context.Context) (StockRequest, error)
}

// ResponseBus fans a worker response out to the handlers subscribed to the
// room at publish time.
type ResponseBus interface {
	SubscribeRoom(roomID string, handler ResponseHandler)
	UnsubscribeRoom(roomID string)
	PublishResponse(resp StockResponse)
}
