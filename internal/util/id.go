package util

import "github.com/google/uuid"

// NewID returns a new record identifier.
func NewID() string {
	return uuid.NewString()
}
