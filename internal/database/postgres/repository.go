package repository

import (
	"context"
	"time"

	"weather-notifier/internal/entity"
)

type UserRepository interface {
	// GetByID fetches one user together with all of its requests, ordered
	// by request date ascending (ties by row id).
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// ListWithRequests fetches every user, each populated with its
	// requests in the same order. Unbounded; acceptable at current scale.
	ListWithRequests(ctx context.Context) ([]*entity.User, error)
}

type RequestRepository interface {
	// RecordRequest appends one weather request inside a single
	// transaction, creating the user and the city by their natural keys
	// when they do not exist yet. Any failure rolls the whole transaction
	// back; no partial state is ever visible.
	RecordRequest(ctx context.Context, user *entity.User, request *entity.WeatherRequest, when time.Time) error

	// RecordRequestsForExistingUsers bulk-appends requests whose users and
	// cities are already persisted. One transaction, all-or-nothing.
	RecordRequestsForExistingUsers(ctx context.Context, requests []*entity.WeatherRequest, when time.Time) error
}
