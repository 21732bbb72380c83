package id

import (
	"strings"

	"github.com/google/uuid"
)

// GetUUID returns a random UUID. IPC messages and websocket connections use it.
func GetUUID() string {
	return uuid.NewString()
}

func GetUUIDWithoutDashes() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
