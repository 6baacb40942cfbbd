package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Entry describes one action to record. Actor and request details are read
// from the context by the service.
type Entry struct {
	UserID     *snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

// Service records audit entries. Recording failures are logged, never
// surfaced to the caller.
type Service interface {
	Record(ctx context.Context, entry Entry)
}
