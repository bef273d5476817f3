package telegram

import (
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram Bot API client with the two operations the service
// needs: long-poll reception and plain text delivery.
type Bot struct {
	api         *tgbotapi.BotAPI
	pollTimeout int
}

// NewBot authorizes against the Bot API. pollTimeout is the long-poll window
// in seconds; the underlying HTTP client timeout is kept above it so a poll
// is never cut short by the transport.
func NewBot(token string, pollTimeout int) (*Bot, error) {
	if pollTimeout <= 0 {
		pollTimeout = 30
	}

	httpClient := &http.Client{Timeout: time.Duration(pollTimeout+10) * time.Second}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	return &Bot{api: api, pollTimeout: pollTimeout}, nil
}

func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// SendMessage delivers a plain text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, err)
	}
	return nil
}

// Updates long-polls for message updates starting at offset.
func (b *Bot) Updates(offset int) ([]tgbotapi.Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = b.pollTimeout
	cfg.AllowedUpdates = []string{"message"}
	return b.api.GetUpdates(cfg)
}
