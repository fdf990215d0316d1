package game

import "errors"

var (
	ErrRoomExists          = errors.New("room already exists")
	ErrRoomNotFound        = errors.New("room not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrRoomFull            = errors.New("room is full")
	ErrInvalidState        = errors.New("invalid room state for action")
	ErrTimerActive         = errors.New("countdown already active")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrUnauthorized        = errors.New("only the room creator may do that")
)
