package service

import (
	"context"
	"sync"
	"time"

	repository "weather-notifier/internal/database/postgres"
	"weather-notifier/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type broadcastService struct {
	userRepo    repository.UserRepository
	requestRepo repository.RequestRepository
	notifier    NotifyService
}

func NewBroadcastService(
	userRepo repository.UserRepository,
	requestRepo repository.RequestRepository,
	notifier NotifyService,
) BroadcastService {
	return &broadcastService{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		notifier:    notifier,
	}
}

// SendWeather handles the single-user path. The request is recorded whether
// or not delivery succeeded; only a missing user is a hard error.
func (s *broadcastService) SendWeather(ctx context.Context, userID int64) (*entity.User, *BroadcastSummary, error) {
	summary := &BroadcastSummary{RunID: uuid.New().String()}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	last := user.LastRequest()
	if last == nil {
		// Nothing to re-notify.
		return user, summary, nil
	}

	result := s.notifier.Notify(ctx, user.TelegramID, last.CityName)
	summary.Results = append(summary.Results, result)
	if result.Delivered {
		summary.Notified++
	} else {
		summary.Failed++
	}

	request := &entity.WeatherRequest{CityID: last.CityID, CityName: last.CityName}
	if err := s.requestRepo.RecordRequest(ctx, user, request, time.Now()); err != nil {
		logrus.WithField("run_id", summary.RunID).Errorf("failed to record request for user %d: %v", userID, err)
		summary.PersistError = err.Error()
	}

	refreshed, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		// The view is returned unconditionally; fall back to the stale one.
		logrus.WithField("run_id", summary.RunID).Errorf("failed to refresh user %d: %v", userID, err)
		return user, summary, nil
	}

	return refreshed, summary, nil
}

// SendWeatherToAll runs in two phases: notify every user with history
// concurrently, then bulk-record one request per user with a shared
// timestamp. Notify failures never block persistence; the bulk write is
// all-or-nothing, so a persistence failure loses the whole batch's history
// even though individual notifies succeeded. That asymmetry is inherited
// behavior and is surfaced through the summary.
func (s *broadcastService) SendWeatherToAll(ctx context.Context) ([]*entity.User, *BroadcastSummary, error) {
	summary := &BroadcastSummary{RunID: uuid.New().String()}

	users, err := s.userRepo.ListWithRequests(ctx)
	if err != nil {
		return nil, nil, err
	}

	var targets []*entity.User
	for _, user := range users {
		if len(user.Requests) > 0 {
			targets = append(targets, user)
		}
	}

	logrus.WithField("run_id", summary.RunID).Infof("broadcasting weather to %d of %d users", len(targets), len(users))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []NotifyResult
	)

	for _, user := range targets {
		user := user
		wg.Add(1)
		go func() {
			defer wg.Done()

			r := s.notifier.Notify(ctx, user.TelegramID, user.LastRequest().CityName)

			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}

	wg.Wait()

	summary.Results = results
	for _, r := range results {
		if r.Delivered {
			summary.Notified++
		} else {
			summary.Failed++
		}
	}

	// Phase two: one bulk append covering every target, shared timestamp.
	requests := make([]*entity.WeatherRequest, 0, len(targets))
	for _, user := range targets {
		last := user.LastRequest()
		requests = append(requests, &entity.WeatherRequest{
			UserID:   user.ID.Value,
			CityID:   last.CityID,
			CityName: last.CityName,
		})
	}

	if err := s.requestRepo.RecordRequestsForExistingUsers(ctx, requests, time.Now()); err != nil {
		logrus.WithField("run_id", summary.RunID).Errorf("failed to record broadcast batch: %v", err)
		summary.PersistError = err.Error()
	}

	refreshed, err := s.userRepo.ListWithRequests(ctx)
	if err != nil {
		logrus.WithField("run_id", summary.RunID).Errorf("failed to refresh user list: %v", err)
		return users, summary, nil
	}

	return refreshed, summary, nil
}
