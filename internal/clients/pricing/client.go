// Package pricing looks up flight prices from the Sky-Scrapper price calendar.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wayfarer-planner/server/internal/agent/model"
	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

const service = "flight pricing"

type Config struct {
	BaseURL  string        `envconfig:"PRICING_BASE_URL" default:"https://sky-scrapper.p.rapidapi.com"`
	APIKey   string        `envconfig:"RAPIDAPI_KEY"`
	Host     string        `envconfig:"RAPIDAPI_HOST" default:"sky-scrapper.p.rapidapi.com"`
	Timeout  time.Duration `envconfig:"PRICING_TIMEOUT" default:"15s"`
	CacheTTL time.Duration `envconfig:"PRICING_CACHE_TTL" default:"30m"`
}

// Lookup returns the cheapest known fare, or model.UnknownCost when the
// provider has no data for the route and date.
type Lookup interface {
	Lookup(ctx context.Context, origin, destination, date string) (model.Cost, error)
}

// Client calls the price calendar endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates credentials and builds the HTTP client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errx.Configuration("RAPIDAPI_KEY is required for flight pricing")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

type calendarResponse struct {
	Data struct {
		Flights struct {
			Days []struct {
				Day   string   `json:"day"`
				Price *float64 `json:"price"`
			} `json:"days"`
		} `json:"flights"`
	} `json:"data"`
}

// Lookup implements Lookup. Non-2xx responses are errors, never a zero price.
func (c *Client) Lookup(ctx context.Context, origin, destination, date string) (model.Cost, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("originSkyId", origin)
	q.Set("destinationSkyId", destination)
	q.Set("fromDate", date)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/v1/flights/getPriceCalendar?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Cost{}, fmt.Errorf("build pricing request: %w", err)
	}
	req.Header.Set("x-rapidapi-key", c.cfg.APIKey)
	req.Header.Set("x-rapidapi-host", c.cfg.Host)

	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("origin", origin).Str("destination", destination).Msg("pricing request failed")
		return model.Cost{}, errx.FromTransport(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return model.Cost{}, errx.FromTransport(service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logx.Warn().Int("status", resp.StatusCode).Str("origin", origin).Str("destination", destination).Msg("pricing returned non-2xx")
		return model.Cost{}, errx.FromStatus(service, resp.StatusCode, string(body))
	}

	var parsed calendarResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return model.Cost{}, errx.Malformed(service, err)
	}

	cheapest, found := 0.0, false
	for _, d := range parsed.Data.Flights.Days {
		if d.Price == nil || *d.Price < 0 {
			continue
		}
		if !found || *d.Price < cheapest {
			cheapest, found = *d.Price, true
		}
	}
	if !found {
		logx.Debug().Str("origin", origin).Str("destination", destination).Str("date", date).Msg("no price data")
		return model.UnknownCost, nil
	}
	return model.KnownCost(cheapest), nil
}

var _ Lookup = (*Client)(nil)
