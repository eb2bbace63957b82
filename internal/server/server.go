// Package server is the HTTP control surface: thin echo handlers over the
// auth and chat services, plus the websocket upgrade endpoint.
package server

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"stockchat/internal/auth"
	"stockchat/internal/chat"
	"stockchat/internal/config"
	"stockchat/internal/websocket"
)

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	authSvc    *auth.Service
	tokens     *auth.TokenService
	chatSvc    *chat.Service
	dispatcher *chat.Dispatcher
	hub        *websocket.Hub
	pool       *pgxpool.Pool
	redis      *goredis.Client
}

// NewServer wires the HTTP surface. redis may be nil when presence is not
// configured; readiness then only checks the database.
func NewServer(cfg *config.Config, authSvc *auth.Service, tokens *auth.TokenService, chatSvc *chat.Service, dispatcher *chat.Dispatcher, hub *websocket.Hub, pool *pgxpool.Pool, redis *goredis.Client) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:       e,
		config:     cfg,
		authSvc:    authSvc,
		tokens:     tokens,
		chatSvc:    chatSvc,
		dispatcher: dispatcher,
		hub:        hub,
		pool:       pool,
		redis:      redis,
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
