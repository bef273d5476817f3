package entity

import "time"

// City is a city ever requested by any user. Name is the natural key,
// matched case-sensitively as stored.
type City struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// WeatherRequest is one historical weather ask. Rows are append-only and
// always reference an existing user and city once committed.
type WeatherRequest struct {
	ID          ID        `json:"id"`
	UserID      int64     `json:"user_id"`
	CityID      ID        `json:"city_id"`
	CityName    string    `json:"city"`
	RequestDate time.Time `json:"request_date"`
}
