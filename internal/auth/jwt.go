// Package auth issues and verifies the JWTs that identify chat users, and
// hashes their passwords.
package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// Identity is the verified content of an access token.
type Identity struct {
	UserID   int64
	Username string
}

// TokenService signs and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokenService(secret string, ttl time.Duration, clock clockwork.Clock) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, clock: clock}
}

// Issue returns a signed token for the user.
func (s *TokenService) Issue(userID int64, username string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, struct {
		jwt.RegisteredClaims
		Name string `json:"name"`
	}{RegisteredClaims: claims, Name: username})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// Verify parses and validates a token and returns the identity it carries.
func (s *TokenService) Verify(tokenString string) (*Identity, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", err)
	}
	if claims.Name == "" {
		return nil, fmt.Errorf("token missing name claim")
	}

	return &Identity{UserID: userID, Username: claims.Name}, nil
}
