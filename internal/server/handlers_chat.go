package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"stockchat/internal/domain"
)

type roomResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageResponse struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"roomId"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	IsBot     bool      `json:"isBot"`
	CreatedAt time.Time `json:"createdAt"`
}

type createRoomRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListRooms(c echo.Context) error {
	rooms, err := s.chatSvc.ListRooms(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list rooms")
	}

	out := make([]roomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, roomResponse{ID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateRoom(c echo.Context) error {
	var req createRoomRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	room, err := s.chatSvc.CreateRoom(c.Request().Context(), req.Name)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNameTaken) {
			return echo.NewHTTPError(http.StatusConflict, "room name already taken")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, roomResponse{ID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt})
}

func (s *Server) handleListMessages(c echo.Context) error {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
	}

	messages, err := s.chatSvc.RecentMessages(c.Request().Context(), roomID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}

	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageResponse{
			ID:        msg.ID,
			RoomID:    msg.RoomID,
			Author:    msg.Author,
			Content:   msg.Content,
			IsBot:     msg.IsBot,
			CreatedAt: msg.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}
