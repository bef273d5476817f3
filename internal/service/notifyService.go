package service

import (
	"context"

	"weather-notifier/pkg/weather"

	"github.com/sirupsen/logrus"
)

type notifyService struct {
	provider WeatherProvider
	sender   MessageSender
}

func NewNotifyService(provider WeatherProvider, sender MessageSender) NotifyService {
	return &notifyService{
		provider: provider,
		sender:   sender,
	}
}

// Notify delivers best-effort weather text. A failed lookup degrades to
// weather.FallbackText and a failed send is logged and captured in the
// result; neither blocks the caller.
func (s *notifyService) Notify(ctx context.Context, chatID int64, city string) NotifyResult {
	result := NotifyResult{ChatID: chatID, City: city}

	text, err := s.provider.Fetch(ctx, city)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"chat_id": chatID,
			"city":    city,
		}).Warnf("weather lookup failed, sending fallback: %v", err)
		text = weather.FallbackText
		result.Degraded = true
	}

	if err := s.sender.SendMessage(chatID, text); err != nil {
		logrus.WithFields(logrus.Fields{
			"chat_id": chatID,
			"city":    city,
		}).Errorf("delivery failed: %v", err)
		result.DeliveryErr = err
		return result
	}

	result.Delivered = true
	return result
}
