package models

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a new record identifier as a hyphenless UUIDv4 string.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
