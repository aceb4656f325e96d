package util

import "github.com/google/uuid"

// NewID returns a random request/session identifier.
func NewID() string {
	return uuid.NewString()
}
