package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth routes
	s.echo.POST("/api/auth/register", s.handleRegister)
	s.echo.POST("/api/auth/login", s.handleLogin)

	// Chat REST routes (authenticated)
	api := s.echo.Group("/api/chat", s.requireAuth)
	api.GET("/rooms", s.handleListRooms)
	api.POST("/rooms", s.handleCreateRoom)
	api.GET("/rooms/:id/messages", s.handleListMessages)

	// WebSocket upgrade (token via access_token query param)
	s.echo.GET("/ws", s.handleWebSocket)
}
