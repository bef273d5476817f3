package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"weather-notifier/internal/entity"
)

type requestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) RequestRepository {
	return &requestRepository{db: db}
}

// RecordRequest resolves the user and the city by their natural keys and
// appends one request row, all inside one transaction. The caller-supplied
// ids are advisory; the resolved ids are written back into user and request.
func (r *requestRepository) RecordRequest(ctx context.Context, user *entity.User, request *entity.WeatherRequest, when time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Insert-if-absent keeps duplicate calls for the same TelegramID from
	// creating a second row.
	if !user.ID.Persisted {
		query := `INSERT INTO users (telegram_id, name) VALUES ($1, $2) ON CONFLICT (telegram_id) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, user.TelegramID, user.Name); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
	}

	// The stored row is authoritative from here on, regardless of whether
	// the insert above ran or raced with a concurrent one.
	var userID int64
	var storedName string
	query := `SELECT id, name FROM users WHERE telegram_id = $1`
	if err := tx.QueryRowContext(ctx, query, user.TelegramID).Scan(&userID, &storedName); err != nil {
		return fmt.Errorf("failed to resolve user by telegram id: %w", err)
	}

	if storedName != user.Name {
		query = `UPDATE users SET name = $1 WHERE id = $2`
		if _, err := tx.ExecContext(ctx, query, user.Name, userID); err != nil {
			return fmt.Errorf("failed to update user name: %w", err)
		}
	}

	cityID := request.CityID
	if !cityID.Persisted {
		query = `INSERT INTO cities (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`
		if _, err := tx.ExecContext(ctx, query, request.CityName); err != nil {
			return fmt.Errorf("failed to insert city: %w", err)
		}

		var id int64
		query = `SELECT id FROM cities WHERE name = $1`
		if err := tx.QueryRowContext(ctx, query, request.CityName).Scan(&id); err != nil {
			return fmt.Errorf("failed to resolve city by name: %w", err)
		}
		cityID = entity.PersistedID(id)
	}

	query = `INSERT INTO weather_requests (user_id, city_id, request_date) VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, query, userID, cityID.Value, when); err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	user.ID = entity.PersistedID(userID)
	request.UserID = userID
	request.CityID = cityID
	request.RequestDate = when

	return nil
}

// RecordRequestsForExistingUsers inserts one row per request with a single
// shared timestamp. No upsert logic runs; users and cities must exist.
func (r *requestRepository) RecordRequestsForExistingUsers(ctx context.Context, requests []*entity.WeatherRequest, when time.Time) error {
	if len(requests) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO weather_requests (user_id, city_id, request_date) VALUES ($1, $2, $3)`
	for _, request := range requests {
		if _, err := tx.ExecContext(ctx, query, request.UserID, request.CityID.Value, when); err != nil {
			return fmt.Errorf("failed to insert request for user %d: %w", request.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
