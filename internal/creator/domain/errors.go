package domain

import "errors"

var (
	ErrCreatorNotFound = errors.New("creator_not_found")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
)
