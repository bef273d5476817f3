package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"weather-notifier/internal/entity"
	"weather-notifier/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeNotifier struct {
	mu      sync.Mutex
	chatIDs []int64
	cities  []string
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, city string) service.NotifyResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chatIDs = append(f.chatIDs, chatID)
	f.cities = append(f.cities, city)
	return service.NotifyResult{ChatID: chatID, City: city, Delivered: true}
}

type fakeRequestRepo struct {
	err error

	mu       sync.Mutex
	users    []*entity.User
	requests []*entity.WeatherRequest
}

func (f *fakeRequestRepo) RecordRequest(_ context.Context, user *entity.User, request *entity.WeatherRequest, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
	f.requests = append(f.requests, request)
	return nil
}

func (f *fakeRequestRepo) RecordRequestsForExistingUsers(_ context.Context, _ []*entity.WeatherRequest, _ time.Time) error {
	return f.err
}

func message(from *tgbotapi.User, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: from,
		Chat: &tgbotapi.Chat{ID: 500},
		Text: text,
	}
}

func TestHandleMessage_IgnoreRules(t *testing.T) {
	sender := &tgbotapi.User{ID: 12345, UserName: "johndoe"}

	cases := []struct {
		name string
		msg  *tgbotapi.Message
	}{
		{"no sender", message(nil, "/weather Moscow")},
		{"empty text", message(sender, "")},
		{"no command prefix", message(sender, "weather Moscow")},
		{"missing separator", message(sender, "/weatherMoscow")},
		{"wrong case", message(sender, "/Weather Moscow")},
		{"blank argument", message(sender, "/weather    ")},
		{"other command", message(sender, "/start")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := &fakeNotifier{}
			repo := &fakeRequestRepo{}
			l := NewListener(nil, notifier, repo, time.Second)

			l.handleMessage(context.Background(), tc.msg)

			if len(notifier.chatIDs) != 0 {
				t.Errorf("expected zero notify calls, got %d", len(notifier.chatIDs))
			}
			if len(repo.requests) != 0 {
				t.Errorf("expected zero store writes, got %d", len(repo.requests))
			}
		})
	}
}

func TestHandleMessage_WeatherCommand(t *testing.T) {
	notifier := &fakeNotifier{}
	repo := &fakeRequestRepo{}
	l := NewListener(nil, notifier, repo, time.Second)

	sender := &tgbotapi.User{ID: 12345, UserName: "johndoe", FirstName: "John"}
	l.handleMessage(context.Background(), message(sender, "/weather  Saint Petersburg "))

	if len(notifier.cities) != 1 || notifier.cities[0] != "Saint Petersburg" {
		t.Fatalf("expected trimmed city argument, got %v", notifier.cities)
	}
	if notifier.chatIDs[0] != 500 {
		t.Errorf("expected delivery to the chat id, got %d", notifier.chatIDs[0])
	}

	if len(repo.requests) != 1 {
		t.Fatalf("expected one store write, got %d", len(repo.requests))
	}
	if repo.requests[0].CityName != "Saint Petersburg" {
		t.Errorf("expected the city name on the request, got %q", repo.requests[0].CityName)
	}
	if repo.requests[0].CityID.Persisted {
		t.Error("an inbound request must not claim a persisted city id")
	}

	user := repo.users[0]
	if user.TelegramID != 12345 || user.Name != "johndoe" {
		t.Errorf("unexpected synthesized user: %+v", user)
	}
	if user.ID.Persisted {
		t.Error("a synthesized user must not claim a persisted id")
	}
}

func TestHandleMessage_RecordFailureIsSwallowed(t *testing.T) {
	notifier := &fakeNotifier{}
	repo := &fakeRequestRepo{err: context.DeadlineExceeded}
	l := NewListener(nil, notifier, repo, time.Second)

	sender := &tgbotapi.User{ID: 1, UserName: "u"}
	// Must not panic or propagate.
	l.handleMessage(context.Background(), message(sender, "/weather Moscow"))

	if len(notifier.cities) != 1 {
		t.Errorf("notify should have run before the failing write, got %v", notifier.cities)
	}
}

func TestSenderName_Fallbacks(t *testing.T) {
	cases := []struct {
		name string
		from *tgbotapi.User
		want string
	}{
		{"username first", &tgbotapi.User{ID: 1, UserName: "jd", LastName: "Doe", FirstName: "John"}, "jd"},
		{"then last name", &tgbotapi.User{ID: 1, LastName: "Doe", FirstName: "John"}, "Doe"},
		{"then first name", &tgbotapi.User{ID: 1, FirstName: "John"}, "John"},
		{"then the id", &tgbotapi.User{ID: 987}, "987"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := senderName(tc.from); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

type stubSource struct {
	updates []tgbotapi.Update
}

func (s *stubSource) Updates(offset int) ([]tgbotapi.Update, error) {
	var pending []tgbotapi.Update
	for _, u := range s.updates {
		if u.UpdateID >= offset {
			pending = append(pending, u)
		}
	}
	if pending == nil {
		time.Sleep(10 * time.Millisecond)
	}
	return pending, nil
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	notifier := &fakeNotifier{}
	repo := &fakeRequestRepo{}
	source := &stubSource{updates: []tgbotapi.Update{
		{UpdateID: 1, Message: message(&tgbotapi.User{ID: 1, UserName: "u"}, "/weather Moscow")},
		{UpdateID: 2}, // not a chat message, ignored
	}}
	l := NewListener(source, notifier, repo, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.cities) != 1 {
		t.Errorf("expected exactly one handled command, got %v", notifier.cities)
	}
}
