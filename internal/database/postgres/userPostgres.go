package repository

import (
	"context"
	"database/sql"
	"fmt"

	"weather-notifier/internal/entity"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT id, telegram_id, name FROM users WHERE id = $1`

	var user entity.User
	var userID int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&userID, &user.TelegramID, &user.Name)
	if err == sql.ErrNoRows {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.ID = entity.PersistedID(userID)

	requests, err := r.requestsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Requests = requests

	return &user, nil
}

func (r *userRepository) ListWithRequests(ctx context.Context) ([]*entity.User, error) {
	query := `SELECT id, telegram_id, name FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		var user entity.User
		var userID int64
		if err := rows.Scan(&userID, &user.TelegramID, &user.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.ID = entity.PersistedID(userID)
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, user := range users {
		requests, err := r.requestsForUser(ctx, user.ID.Value)
		if err != nil {
			return nil, err
		}
		user.Requests = requests
	}

	return users, nil
}

// requestsForUser loads the request history ascending by date; the row id
// breaks timestamp ties so the order is deterministic.
func (r *userRepository) requestsForUser(ctx context.Context, userID int64) ([]entity.WeatherRequest, error) {
	query := `
		SELECT wr.id, wr.user_id, wr.city_id, c.name, wr.request_date
		FROM weather_requests wr
		INNER JOIN cities c ON c.id = wr.city_id
		WHERE wr.user_id = $1
		ORDER BY wr.request_date, wr.id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requests: %w", err)
	}
	defer rows.Close()

	var requests []entity.WeatherRequest
	for rows.Next() {
		var req entity.WeatherRequest
		var reqID, cityID int64
		if err := rows.Scan(&reqID, &req.UserID, &cityID, &req.CityName, &req.RequestDate); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		req.ID = entity.PersistedID(reqID)
		req.CityID = entity.PersistedID(cityID)
		requests = append(requests, req)
	}

	return requests, rows.Err()
}
