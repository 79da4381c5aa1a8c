package giveaway

import "errors"

var (
	ErrNotFound        = errors.New("giveaway not found or already ended")
	ErrNameTaken       = errors.New("an active giveaway with this name already exists")
	ErrInvalidName     = errors.New("invalid giveaway name")
	ErrInvalidDuration = errors.New("invalid duration")
	ErrEmptyPool       = errors.New("no rewards provided")
)
