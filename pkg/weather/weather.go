// Package weather looks up current conditions from OpenWeatherMap.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harun/yordamchi/internal/observability"
	"github.com/harun/yordamchi/internal/tracing"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFound is returned when the service knows no such place.
var ErrNotFound = errors.New("weather: location not found")

// Report is the current weather at one place.
type Report struct {
	Place       string
	Country     string
	Description string
	TempC       float64
	FeelsLikeC  float64
	Humidity    int
	PressureHPa int
	WindSpeed   float64
	ObservedAt  time.Time
}

// Config configures the client.
type Config struct {
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

// Client queries the current-weather endpoint and caches answers briefly.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
	cache   *expirable.LRU[string, Report]
	logger  zerolog.Logger
}

// NewClient creates a client. CacheSize 0 disables caching.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openweathermap.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}

	c := &Client{
		http:    tracing.HTTPClient(cfg.Timeout),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  log.Logger.With().Str("component", "weather").Logger(),
	}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, Report](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c
}

// ByCity returns the weather for a place name.
func (c *Client) ByCity(ctx context.Context, name, lang string) (*Report, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNotFound
	}
	q := url.Values{}
	q.Set("q", name)
	return c.fetch(ctx, "city:"+strings.ToLower(name)+":"+lang, q, lang)
}

// ByCoordinates returns the weather at a point.
func (c *Client) ByCoordinates(ctx context.Context, lat, lon float64, lang string) (*Report, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	return c.fetch(ctx, "coord:"+q.Get("lat")+","+q.Get("lon")+":"+lang, q, lang)
}

type apiResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Dt int64 `json:"dt"`
}

func (c *Client) fetch(ctx context.Context, key string, q url.Values, lang string) (report *Report, err error) {
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return &cached, nil
		}
	}

	ctx, span := tracing.StartSpan(ctx, "yordamchi.weather", "weather.fetch", attribute.String("cache_key", key))
	defer span.End()
	defer func(start time.Time) {
		observability.RecordAdapterCall("weather", time.Since(start), err == nil || errors.Is(err, ErrNotFound))
	}(time.Now())

	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	if lang != "" {
		q.Set("lang", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}

	report = &Report{
		Place:       body.Name,
		Country:     body.Sys.Country,
		TempC:       body.Main.Temp,
		FeelsLikeC:  body.Main.FeelsLike,
		Humidity:    body.Main.Humidity,
		PressureHPa: body.Main.Pressure,
		WindSpeed:   body.Wind.Speed,
		ObservedAt:  time.Unix(body.Dt, 0),
	}
	if len(body.Weather) > 0 {
		report.Description = body.Weather[0].Description
	}

	if c.cache != nil {
		c.cache.Add(key, *report)
	}
	logger := tracing.LoggerFromContext(ctx, c.logger)
	logger.Debug().Str("place", report.Place).Msg("Weather fetched")
	return report, nil
}
