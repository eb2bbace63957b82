package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"stockchat/internal/auth"
)

const identityContextKey = "identity"

// requireAuth verifies the bearer token and stores the identity in the echo
// context.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		identity, err := s.tokens.Verify(token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		c.Set(identityContextKey, identity)
		return next(c)
	}
}

func identityFrom(c echo.Context) *auth.Identity {
	identity, _ := c.Get(identityContextKey).(*auth.Identity)
	return identity
}
