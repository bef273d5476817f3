package service

import (
	"context"

	"weather-notifier/internal/entity"
)

// WeatherProvider is the outbound weather lookup boundary.
type WeatherProvider interface {
	Fetch(ctx context.Context, city string) (string, error)
}

// MessageSender is the outbound chat delivery boundary.
type MessageSender interface {
	SendMessage(chatID int64, text string) error
}

// NotifyResult reports what happened to one notification. Delivery failures
// are captured here instead of being raised, so batch callers can aggregate
// them without one failure aborting the rest.
type NotifyResult struct {
	ChatID    int64  `json:"chat_id"`
	City      string `json:"city"`
	Delivered bool   `json:"delivered"`
	Degraded  bool   `json:"degraded"`

	DeliveryErr error `json:"-"`
}

// BroadcastSummary aggregates the outcome of one broadcast run. The view is
// always returned to the caller; the summary is how an interested caller
// observes what failed.
type BroadcastSummary struct {
	RunID        string         `json:"run_id"`
	Notified     int            `json:"notified"`
	Failed       int            `json:"failed"`
	PersistError string         `json:"persist_error,omitempty"`
	Results      []NotifyResult `json:"results,omitempty"`
}

type NotifyService interface {
	// Notify fetches the weather for city and delivers it to chatID,
	// degrading to placeholder text when the lookup fails.
	Notify(ctx context.Context, chatID int64, city string) NotifyResult
}

type BroadcastService interface {
	// SendWeather re-notifies one user with their most recent city and
	// records a new request. A user without history is a no-op.
	SendWeather(ctx context.Context, userID int64) (*entity.User, *BroadcastSummary, error)

	// SendWeatherToAll notifies every user with at least one prior
	// request, then bulk-records the batch with one shared timestamp.
	SendWeatherToAll(ctx context.Context) ([]*entity.User, *BroadcastSummary, error)
}

type UserService interface {
	GetUser(ctx context.Context, id int64) (*entity.User, error)
	ListUsers(ctx context.Context) ([]*entity.User, error)
}
