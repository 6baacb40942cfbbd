package domain

import (
	"context"
	"errors"
)

// Service exposes per-user dashboard data.
type Service interface {
	Stats(ctx context.Context) (*StatsResponse, error)
}

var (
	ErrInvalidUser = errors.New("invalid_user")
)
