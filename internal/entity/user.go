package entity

// User is a Telegram user known to the service. TelegramID is the natural
// key; at most one row exists per distinct TelegramID.
type User struct {
	ID         ID               `json:"id"`
	TelegramID int64            `json:"telegram_id"`
	Name       string           `json:"name"`
	Requests   []WeatherRequest `json:"requests"`
}

// LastRequest returns the request with the latest RequestDate. Ties on the
// timestamp are broken by the highest row id. Returns nil when the user has
// no requests.
func (u *User) LastRequest() *WeatherRequest {
	var last *WeatherRequest
	for i := range u.Requests {
		r := &u.Requests[i]
		if last == nil {
			last = r
			continue
		}
		if r.RequestDate.After(last.RequestDate) {
			last = r
			continue
		}
		if r.RequestDate.Equal(last.RequestDate) && r.ID.Value > last.ID.Value {
			last = r
		}
	}
	return last
}
