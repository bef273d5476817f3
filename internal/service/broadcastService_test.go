package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"weather-notifier/internal/entity"
)

type fakeUserRepo struct {
	users []*entity.User
	err   error
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.ID.Value == id {
			return u, nil
		}
	}
	return nil, entity.ErrUserNotFound
}

func (f *fakeUserRepo) ListWithRequests(_ context.Context) ([]*entity.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

type fakeRequestRepo struct {
	recordErr error
	bulkErr   error

	mu       sync.Mutex
	recorded []*entity.WeatherRequest
	bulk     []*entity.WeatherRequest
	bulkWhen time.Time
}

func (f *fakeRequestRepo) RecordRequest(_ context.Context, _ *entity.User, request *entity.WeatherRequest, when time.Time) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.mu.Lock()
	request.RequestDate = when
	f.recorded = append(f.recorded, request)
	f.mu.Unlock()
	return nil
}

func (f *fakeRequestRepo) RecordRequestsForExistingUsers(_ context.Context, requests []*entity.WeatherRequest, when time.Time) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	f.mu.Lock()
	f.bulk = append(f.bulk, requests...)
	f.bulkWhen = when
	f.mu.Unlock()
	return nil
}

type fakeNotifier struct {
	failFor map[int64]bool

	mu      sync.Mutex
	chatIDs []int64
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, city string) NotifyResult {
	f.mu.Lock()
	f.chatIDs = append(f.chatIDs, chatID)
	f.mu.Unlock()

	result := NotifyResult{ChatID: chatID, City: city, Delivered: true}
	if f.failFor[chatID] {
		result.Delivered = false
		result.DeliveryErr = errors.New("send failed")
	}
	return result
}

func userWithHistory(id, telegramID int64, city string, when time.Time) *entity.User {
	return &entity.User{
		ID:         entity.PersistedID(id),
		TelegramID: telegramID,
		Name:       "user",
		Requests: []entity.WeatherRequest{
			{ID: entity.PersistedID(id * 10), UserID: id, CityID: entity.PersistedID(1), CityName: city, RequestDate: when},
		},
	}
}

func TestSendWeatherToAll_IsolatesPerUserFailures(t *testing.T) {
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	users := &fakeUserRepo{users: []*entity.User{
		userWithHistory(1, 101, "Moscow", when),
		userWithHistory(2, 102, "London", when),
		userWithHistory(3, 103, "Paris", when),
		{ID: entity.PersistedID(4), TelegramID: 104, Name: "fresh"}, // no history, filtered out
	}}
	requests := &fakeRequestRepo{}
	notifier := &fakeNotifier{failFor: map[int64]bool{102: true}}

	svc := NewBroadcastService(users, requests, notifier)

	view, summary, err := svc.SendWeatherToAll(context.Background())
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if len(view) != 4 {
		t.Errorf("expected the full refreshed view, got %d users", len(view))
	}

	// All three users with history were notified despite the failure.
	if len(notifier.chatIDs) != 3 {
		t.Errorf("expected 3 notify calls, got %d", len(notifier.chatIDs))
	}
	if summary.Notified != 2 || summary.Failed != 1 {
		t.Errorf("unexpected summary counts: %+v", summary)
	}

	// The bulk persistence covers every filtered user, failed notify included.
	if len(requests.bulk) != 3 {
		t.Fatalf("expected 3 bulk requests, got %d", len(requests.bulk))
	}
	seen := map[int64]bool{}
	for _, r := range requests.bulk {
		seen[r.UserID] = true
	}
	for _, id := range []int64{1, 2, 3} {
		if !seen[id] {
			t.Errorf("user %d missing from bulk persistence", id)
		}
	}
}

func TestSendWeatherToAll_SurfacesPersistenceFailure(t *testing.T) {
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	users := &fakeUserRepo{users: []*entity.User{userWithHistory(1, 101, "Moscow", when)}}
	requests := &fakeRequestRepo{bulkErr: errors.New("deadlock detected")}
	notifier := &fakeNotifier{}

	svc := NewBroadcastService(users, requests, notifier)

	view, summary, err := svc.SendWeatherToAll(context.Background())
	if err != nil {
		t.Fatalf("the view is returned even when persistence fails: %v", err)
	}
	if view == nil {
		t.Fatal("expected a view")
	}
	if summary.PersistError == "" {
		t.Error("expected the persistence failure in the summary")
	}
	if summary.Notified != 1 {
		t.Errorf("notify phase should have completed, got %+v", summary)
	}
}

func TestSendWeather_NoHistoryIsNoOp(t *testing.T) {
	users := &fakeUserRepo{users: []*entity.User{
		{ID: entity.PersistedID(1), TelegramID: 101, Name: "fresh"},
	}}
	requests := &fakeRequestRepo{}
	notifier := &fakeNotifier{}

	svc := NewBroadcastService(users, requests, notifier)

	user, summary, err := svc.SendWeather(context.Background(), 1)
	if err != nil {
		t.Fatalf("send weather: %v", err)
	}
	if user == nil {
		t.Fatal("expected the user view back")
	}
	if len(notifier.chatIDs) != 0 {
		t.Error("no notify expected for a user without history")
	}
	if len(requests.recorded) != 0 {
		t.Error("no request expected for a user without history")
	}
	if summary.Notified != 0 || summary.Failed != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestSendWeather_RecordsDespiteDeliveryFailure(t *testing.T) {
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	users := &fakeUserRepo{users: []*entity.User{userWithHistory(1, 101, "Moscow", when)}}
	requests := &fakeRequestRepo{}
	notifier := &fakeNotifier{failFor: map[int64]bool{101: true}}

	svc := NewBroadcastService(users, requests, notifier)

	_, summary, err := svc.SendWeather(context.Background(), 1)
	if err != nil {
		t.Fatalf("send weather: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("expected the delivery failure in the summary: %+v", summary)
	}
	if len(requests.recorded) != 1 {
		t.Fatalf("history is recorded regardless of delivery, got %d records", len(requests.recorded))
	}
	if requests.recorded[0].CityName != "Moscow" {
		t.Errorf("expected the last-request city, got %q", requests.recorded[0].CityName)
	}
}

func TestSendWeather_UnknownUser(t *testing.T) {
	svc := NewBroadcastService(&fakeUserRepo{}, &fakeRequestRepo{}, &fakeNotifier{})

	_, _, err := svc.SendWeather(context.Background(), 99)
	if !errors.Is(err, entity.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
