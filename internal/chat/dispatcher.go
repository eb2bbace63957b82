package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"stockchat/internal/domain"
	"stockchat/internal/metrics"
	"stockchat/internal/stockbot"
)

// Connection is the transport-side surface a Session talks back through. The
// websocket layer implements it; tests substitute a fake.
type Connection interface {
	SendToCaller(event string, payload any)
	JoinRoom(roomID string)
	LeaveRoom(roomID string)
}

type brokerPort interface {
	domain.ResponseBus
	PublishRequest(req domain.StockRequest)
}

// Dispatcher holds the shared collaborators for all connection sessions.
type Dispatcher struct {
	svc      *Service
	broker   brokerPort
	notifier domain.Notifier
	presence domain.PresenceStore
	clock    clockwork.Clock

	stockRate  rate.Limit
	stockBurst int
}

func NewDispatcher(svc *Service, broker brokerPort, notifier domain.Notifier, presence domain.PresenceStore, clock clockwork.Clock, stockRate rate.Limit, stockBurst int) *Dispatcher {
	return &Dispatcher{
		svc:        svc,
		broker:     broker,
		notifier:   notifier,
		presence:   presence,
		clock:      clock,
		stockRate:  stockRate,
		stockBurst: stockBurst,
	}
}

// Session is the per-connection dispatch state: the authenticated identity,
// the rooms joined on this connection, and a rate limiter for stock commands.
type Session struct {
	d        *Dispatcher
	username string
	conn     Connection
	limiter  *rate.Limiter

	mu     sync.Mutex
	joined map[string]struct{}
}

// NewSession creates the dispatch state for one connection. username may be
// empty for an unauthenticated connection; every operation then fails with an
// auth error.
func (d *Dispatcher) NewSession(username string, conn Connection) *Session {
	return &Session{
		d:        d,
		username: username,
		conn:     conn,
		limiter:  rate.NewLimiter(d.stockRate, d.stockBurst),
		joined:   make(map[string]struct{}),
	}
}

func (s *Session) sendError(message, code string) {
	s.conn.SendToCaller(EventError, ErrorDTO{Message: message, Code: code})
}

// HandleMessage routes one inbound text submission: input rejection, stock
// command dispatch, or the ordinary persist-and-broadcast path.
func (s *Session) HandleMessage(ctx context.Context, roomID, text string) {
	if s.username == "" {
		s.sendError("Authentication required", "AUTH_REQUIRED")
		return
	}
	if strings.TrimSpace(text) == "" {
		s.sendError("Message cannot be empty", "EMPTY_MESSAGE")
		return
	}
	roomIDInt, err := parseRoomID(roomID)
	if err != nil {
		s.sendError("Invalid room ID", "INVALID_ROOM_ID")
		return
	}

	if stockbot.HasCommandPrefix(text) {
		s.handleStockCommand(roomID, text)
		return
	}

	msg, err := s.d.svc.SendMessage(ctx, roomIDInt, text, s.username)
	if err != nil {
		slog.Error("Failed to send message", "room_id", roomID, "username", s.username, "error", err)
		s.sendError("Failed to send message", "SEND_MESSAGE_ERROR")
		return
	}

	s.d.notifier.BroadcastToRoom(roomID, EventMessageReceived, MessageDTO{
		ID:        strconv.FormatInt(msg.ID, 10),
		Content:   msg.Content,
		Author:    msg.Author,
		RoomID:    roomID,
		CreatedAt: msg.CreatedAt,
		IsBot:     false,
	})
}

// handleStockCommand enqueues a stock request and immediately acknowledges it
// to the sender only. The actual quote arrives asynchronously through the
// room subscription.
func (s *Session) handleStockCommand(roomID, text string) {
	symbol, ok := stockbot.ExtractSymbol(text)
	if !ok {
		metrics.StockCommandsTotal.WithLabelValues("invalid").Inc()
		s.sendError("Invalid stock command format. Use: /stock=SYMBOL", "INVALID_STOCK_COMMAND")
		return
	}

	if !s.limiter.Allow() {
		metrics.StockCommandsTotal.WithLabelValues("rate_limited").Inc()
		s.sendError("Too many stock requests, slow down", "RATE_LIMITED")
		return
	}

	s.d.broker.PublishRequest(domain.StockRequest{
		Symbol:      symbol,
		RoomID:      roomID,
		RequestedBy: s.username,
		RequestedAt: s.d.clock.Now().UTC(),
	})
	metrics.StockCommandsTotal.WithLabelValues("accepted").Inc()

	s.conn.SendToCaller(EventMessageReceived, MessageDTO{
		ID:        uuid.NewString(),
		Content:   fmt.Sprintf("Stock request for %s is being processed...", symbol),
		Author:    BotName,
		RoomID:    roomID,
		CreatedAt: s.d.clock.Now().UTC(),
		IsBot:     true,
	})
}

// HandleJoin validates the room, registers the connection with the hub, and
// subscribes the room to stock responses.
func (s *Session) HandleJoin(ctx context.Context, roomID string) {
	if s.username == "" {
		s.sendError("Authentication required", "AUTH_REQUIRED")
		return
	}
	roomIDInt, err := parseRoomID(roomID)
	if err != nil {
		s.sendError("Invalid room ID", "INVALID_ROOM_ID")
		return
	}

	if _, err := s.d.svc.GetRoom(ctx, roomIDInt); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			s.sendError("Room not found", "ROOM_NOT_FOUND")
			return
		}
		slog.Error("Failed to look up room", "room_id", roomID, "error", err)
		s.sendError("Failed to join room", "JOIN_ROOM_ERROR")
		return
	}

	s.conn.JoinRoom(roomID)
	s.d.broker.SubscribeRoom(roomID, s.d.stockResponseHandler(roomID))

	s.mu.Lock()
	s.joined[roomID] = struct{}{}
	s.mu.Unlock()

	s.trackPresence(ctx, roomID, true)
	s.d.notifier.BroadcastToRoom(roomID, EventUserJoined, PresenceDTO{Username: s.username, RoomID: roomID})
	s.conn.SendToCaller(EventJoinedRoom, roomID)

	slog.Info("User joined room", "room_id", roomID, "username", s.username)
}

// HandleLeave removes the connection from the room and drops every stock
// response handler registered for it.
func (s *Session) HandleLeave(ctx context.Context, roomID string) {
	if s.username == "" {
		s.sendError("Authentication required", "AUTH_REQUIRED")
		return
	}

	s.leaveRoom(ctx, roomID)
	s.conn.SendToCaller(EventLeftRoom, roomID)
}

// Close tears the session down when the connection drops, leaving every room
// it had joined.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	rooms := make([]string, 0, len(s.joined))
	for roomID := range s.joined {
		rooms = append(rooms, roomID)
	}
	s.mu.Unlock()

	for _, roomID := range rooms {
		s.leaveRoom(ctx, roomID)
	}
}

func (s *Session) leaveRoom(ctx context.Context, roomID string) {
	s.mu.Lock()
	delete(s.joined, roomID)
	s.mu.Unlock()

	s.conn.LeaveRoom(roomID)
	s.d.broker.UnsubscribeRoom(roomID)

	s.trackPresence(ctx, roomID, false)
	s.d.notifier.BroadcastToRoom(roomID, EventUserLeft, PresenceDTO{Username: s.username, RoomID: roomID})

	slog.Info("User left room", "room_id", roomID, "username", s.username)
}

// trackPresence records the membership change and broadcasts fresh room
// stats. Presence is best-effort: a failing store never blocks dispatch.
func (s *Session) trackPresence(ctx context.Context, roomID string, joining bool) {
	var err error
	if joining {
		err = s.d.presence.Join(ctx, roomID, s.username)
	} else {
		err = s.d.presence.Leave(ctx, roomID, s.username)
	}
	if err != nil {
		slog.Warn("Failed to update room presence", "room_id", roomID, "username", s.username, "error", err)
		return
	}

	count, err := s.d.presence.Count(ctx, roomID)
	if err != nil {
		slog.Warn("Failed to read room presence", "room_id", roomID, "error", err)
		return
	}
	s.d.notifier.BroadcastToRoom(roomID, EventRoomStats, RoomStatsDTO{RoomID: roomID, MemberCount: count})
}

// stockResponseHandler renders a stock response as a bot-authored message
// broadcast to the whole room.
func (d *Dispatcher) stockResponseHandler(roomID string) domain.ResponseHandler {
	return func(resp domain.StockResponse) error {
		d.notifier.BroadcastToRoom(roomID, EventMessageReceived, MessageDTO{
			ID:        uuid.NewString(),
			Content:   resp.DisplayText,
			Author:    BotName,
			RoomID:    roomID,
			CreatedAt: resp.RespondedAt,
			IsBot:     true,
		})
		return nil
	}
}

func parseRoomID(roomID string) (int64, error) {
	id, err := strconv.ParseInt(roomID, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", roomID)
	}
	return id, nil
}
