package auth

import (
	"context"
	"fmt"
	"strings"

	"stockchat/internal/domain"
)

// Service implements user registration and login on top of the user
// repository and the token service.
type Service struct {
	users  domain.UserRepository
	tokens *TokenService
}

func NewService(users domain.UserRepository, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a user and returns it with a fresh access token.
func (s *Service) Register(ctx context.Context, email, username, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("a valid email is required")
	}
	if len(username) < 2 || len(username) > 30 {
		return nil, "", fmt.Errorf("username must be between 2 and 30 characters")
	}
	if len(password) < 8 {
		return nil, "", fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.users.Create(ctx, email, username, hash)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh access token.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
