package entity

import "errors"

var (
	// User errors
	ErrUserNotFound = errors.New("user not found")

	// City errors
	ErrCityNotFound = errors.New("city not found")
)
