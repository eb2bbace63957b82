package domain

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrRoomNotFound       = errors.New("room not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrRoomNameTaken      = errors.New("room name already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
