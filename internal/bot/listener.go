package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	repository "weather-notifier/internal/database/postgres"
	"weather-notifier/internal/entity"
	"weather-notifier/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// weatherCommand is the single recognized inbound command. The trailing
// space is significant: it separates the command from the city argument.
const weatherCommand = "/weather "

// UpdateSource produces inbound Telegram updates.
type UpdateSource interface {
	Updates(offset int) ([]tgbotapi.Update, error)
}

// Listener is the long-running inbound dispatcher. It polls for updates
// until the context is cancelled and handles each message in its own
// goroutine; a failure in one message never terminates the loop or affects
// another in-flight message.
type Listener struct {
	source       UpdateSource
	notifier     service.NotifyService
	requestRepo  repository.RequestRepository
	drainTimeout time.Duration

	wg sync.WaitGroup
}

func NewListener(source UpdateSource, notifier service.NotifyService, requestRepo repository.RequestRepository, drainTimeout time.Duration) *Listener {
	if drainTimeout <= 0 {
		drainTimeout = 30 * time.Second
	}
	return &Listener{
		source:       source,
		notifier:     notifier,
		requestRepo:  requestRepo,
		drainTimeout: drainTimeout,
	}
}

// Start polls for updates until ctx is cancelled, then waits for in-flight
// handlers bounded by the drain timeout.
func (l *Listener) Start(ctx context.Context) {
	logrus.Info("Bot listener started")

	offset := 0
	for {
		select {
		case <-ctx.Done():
			l.drain()
			logrus.Info("Bot listener stopped")
			return
		default:
		}

		updates, err := l.source.Updates(offset)
		if err != nil {
			l.logReceiveError(err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			if update.Message == nil {
				continue
			}

			msg := update.Message
			l.wg.Add(1)
			go func() {
				defer l.wg.Done()
				l.handleMessage(ctx, msg)
			}()
		}
	}
}

// logReceiveError classifies reception failures: a structured Bot API error
// carries a machine-readable code, everything else is a transport fault.
// Neither is fatal; the loop keeps polling.
func (l *Listener) logReceiveError(err error) {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		logrus.WithFields(logrus.Fields{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		}).Error("Telegram API error")
		return
	}
	logrus.Errorf("Telegram transport error: %v", err)
}

// handleMessage runs the per-message state machine. Anything that is not a
// well-formed weather command is silently ignored; any failure while
// notifying or recording is logged and swallowed.
func (l *Listener) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	if !strings.HasPrefix(msg.Text, weatherCommand) {
		return
	}

	city := strings.TrimSpace(msg.Text[len(weatherCommand):])
	if city == "" {
		return
	}

	user := &entity.User{
		TelegramID: msg.From.ID,
		Name:       senderName(msg.From),
	}

	l.notifier.Notify(ctx, msg.Chat.ID, city)

	request := &entity.WeatherRequest{CityName: city}
	if err := l.requestRepo.RecordRequest(ctx, user, request, time.Now()); err != nil {
		logrus.WithField("telegram_id", user.TelegramID).Errorf("failed to record request: %v", err)
	}
}

func (l *Listener) drain() {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(l.drainTimeout):
		logrus.Warn("Drain timeout reached, abandoning in-flight handlers")
	}
}

// senderName picks a display name for the sender: first non-empty of
// username, last name, first name, then the stringified id.
func senderName(from *tgbotapi.User) string {
	switch {
	case from.UserName != "":
		return from.UserName
	case from.LastName != "":
		return from.LastName
	case from.FirstName != "":
		return from.FirstName
	default:
		return strconv.FormatInt(from.ID, 10)
	}
}
