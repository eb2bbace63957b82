package server

import (
	"log/slog"
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"stockchat/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin in development; auth happens via
	// the signed token, not the origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket authenticates the access_token query param and hands the
// upgraded connection to the chat client loop.
func (s *Server) handleWebSocket(c echo.Context) error {
	token := c.QueryParam("access_token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access_token")
	}

	identity, err := s.tokens.Verify(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return nil
	}

	client := websocket.NewClient(s.hub, conn, s.dispatcher, identity.Username)
	client.Run(c.Request().Context())
	return nil
}
