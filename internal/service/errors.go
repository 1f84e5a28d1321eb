package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// Matchmaking service specific errors
var (
	ErrDuplicateEntry   = errors.New("user already in waitlist")
	ErrLocationNotFound = errors.New("location not found")
	ErrMatchNotFound    = errors.New("match not found")
)
