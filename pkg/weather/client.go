package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

// FallbackText is delivered in place of a real report when the provider is
// unreachable. Callers treat it as degraded content, not as an error.
const FallbackText = "cannot get weather"

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Client queries the OpenWeatherMap current-weather endpoint. The provider
// response body is passed through verbatim; no parsing, no caching, no
// retries.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

type ClientConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweather",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		circuit:    cb,
	}
}

// Fetch returns the raw provider response for the given city name. Any
// transport fault, non-success status or open circuit is reported as an
// error; the caller decides how to degrade.
func (c *Client) Fetch(ctx context.Context, city string) (string, error) {
	body, err := c.circuit.Execute(func() (interface{}, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", c.apiKey)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("weather api returned %s", resp.Status)
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch weather for %q: %w", city, err)
	}

	return body.(string), nil
}
