package domain

import "errors"

var (
	ErrInvalidPort      = errors.New("invalid port number")
	ErrInvalidName      = errors.New("server name is required")
	ErrPortInUse        = errors.New("port already in use")
	ErrDuplicateName    = errors.New("server name already in use")
	ErrEmptyMatcher     = errors.New("at least one of domain, name or port is required")
	ErrServerNotFound   = errors.New("server matching criteria not found")
	ErrProtectedDefault = errors.New("default server cannot be removed")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)
