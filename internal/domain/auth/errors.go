package auth

import "errors"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrManagerAccessRequired = errors.New("manager access required")
	ErrOwnerAccessRequired   = errors.New("owner access required")
)
