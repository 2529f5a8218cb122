package repository

import "errors"

// Errors returned by every store implementation. Services translate them into
// domain errors; nothing above the service layer should see them.
var (
	ErrNotFound  = errors.New("repository: not found")
	ErrDuplicate = errors.New("repository: duplicate key")
	ErrReference = errors.New("repository: referenced row missing")
)
