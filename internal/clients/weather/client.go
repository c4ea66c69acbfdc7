// Package weather fetches current conditions from wttr.in.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errx "github.com/wayfarer-planner/server/internal/core/error"
	logx "github.com/wayfarer-planner/server/pkg/logger"
)

const service = "weather"

type Config struct {
	BaseURL string        `envconfig:"WEATHER_BASE_URL" default:"https://wttr.in"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// Day is a single forecast day.
type Day struct {
	Date        string
	MinTempC    string
	MaxTempC    string
	Description string
}

// Report is a condensed weather reading for a location.
type Report struct {
	Location    string
	TempC       string
	FeelsLikeC  string
	Humidity    string
	WindKmph    string
	Description string
	Forecast    []Day
}

// String renders the report as compact text for a prompt.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Location: %s\n", r.Location)
	fmt.Fprintf(&b, "Now: %s, %s°C (feels like %s°C), humidity %s%%, wind %s km/h\n",
		r.Description, r.TempC, r.FeelsLikeC, r.Humidity, r.WindKmph)
	for _, d := range r.Forecast {
		fmt.Fprintf(&b, "%s: %s, %s°C to %s°C\n", d.Date, d.Description, d.MinTempC, d.MaxTempC)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Provider returns the weather for a free-text location.
type Provider interface {
	Current(ctx context.Context, location string) (Report, error)
}

// Client talks to wttr.in's JSON format.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://wttr.in"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type textValue struct {
	Value string `json:"value"`
}

type j1Response struct {
	CurrentCondition []struct {
		TempC         string      `json:"temp_C"`
		FeelsLikeC    string      `json:"FeelsLikeC"`
		Humidity      string      `json:"humidity"`
		WindspeedKmph string      `json:"windspeedKmph"`
		WeatherDesc   []textValue `json:"weatherDesc"`
	} `json:"current_condition"`
	NearestArea []struct {
		AreaName []textValue `json:"areaName"`
		Country  []textValue `json:"country"`
	} `json:"nearest_area"`
	Weather []struct {
		Date     string `json:"date"`
		MaxTempC string `json:"maxtempC"`
		MinTempC string `json:"mintempC"`
		Hourly   []struct {
			WeatherDesc []textValue `json:"weatherDesc"`
		} `json:"hourly"`
	} `json:"weather"`
}

// Current implements Provider.
func (c *Client) Current(ctx context.Context, location string) (Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/" + url.PathEscape(location) + "?format=j1"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Report{}, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Str("location", location).Msg("weather request failed")
		return Report{}, errx.FromTransport(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return Report{}, errx.FromTransport(service, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Report{}, errx.FromStatus(service, resp.StatusCode, string(body))
	}

	var parsed j1Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Report{}, errx.Malformed(service, err)
	}
	if len(parsed.CurrentCondition) == 0 {
		return Report{}, errx.Malformed(service, fmt.Errorf("no current_condition for %q", location))
	}

	cur := parsed.CurrentCondition[0]
	report := Report{
		Location:    location,
		TempC:       cur.TempC,
		FeelsLikeC:  cur.FeelsLikeC,
		Humidity:    cur.Humidity,
		WindKmph:    cur.WindspeedKmph,
		Description: first(cur.WeatherDesc),
	}
	if len(parsed.NearestArea) > 0 {
		area := parsed.NearestArea[0]
		if name := first(area.AreaName); name != "" {
			report.Location = name
			if country := first(area.Country); country != "" {
				report.Location += ", " + country
			}
		}
	}
	for _, w := range parsed.Weather {
		day := Day{Date: w.Date, MinTempC: w.MinTempC, MaxTempC: w.MaxTempC}
		// wttr.in reports 3-hourly slots; the midday one describes the day best
		if len(w.Hourly) > 0 {
			day.Description = first(w.Hourly[len(w.Hourly)/2].WeatherDesc)
		}
		report.Forecast = append(report.Forecast, day)
	}
	return report, nil
}

func first(vs []textValue) string {
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[0].Value)
}

var _ Provider = (*Client)(nil)
