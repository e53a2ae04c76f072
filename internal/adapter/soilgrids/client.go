// Package soilgrids talks to the ISRIC SoilGrids REST API and adapts its
// layered query responses into domain observations.
package soilgrids

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/mayank-kumar-sharma/soil-data-service/internal/domain"
	"github.com/mayank-kumar-sharma/soil-data-service/internal/observability"
)

const (
	defaultBaseURL = "https://rest.isric.org"
	queryPath      = "/soilgrids/v2.0/properties/query"
)

// Config holds the tunables for a SoilGrids client.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	BreakerThreshold uint32
	BreakerCooldown  time.Duration
	RateLimit        float64 // requests per second, 0 disables throttling
}

// Client queries the SoilGrids API. It implements domain.Source.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a SoilGrids API client with a circuit breaker and an
// optional request rate limiter.
func NewClient(cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "soilgrids",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(int(cfg.RateLimit), 1))
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		breaker:    breaker,
		limiter:    limiter,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchProperty queries one soil property at a coordinate. Transport
// failures, non-200 statuses, and malformed bodies are returned as errors;
// a well-formed response that lacks the requested layer or carries no
// numeric value yields an observation without a value and a nil error.
func (c *Client) FetchProperty(ctx context.Context, coord domain.Coordinate, prop domain.Property) (domain.Observation, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Observation{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.query(ctx, coord, prop)
	})
	c.metrics.ProviderDuration.WithLabelValues(string(prop)).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(string(prop), "error").Inc()
		return domain.Observation{}, err
	}

	obs := result.(domain.Observation)
	outcome := "success"
	if obs.Value == nil {
		outcome = "empty"
	}
	c.metrics.ProviderRequests.WithLabelValues(string(prop), outcome).Inc()

	return obs, nil
}

func (c *Client) query(ctx context.Context, coord domain.Coordinate, prop domain.Property) (domain.Observation, error) {
	params := url.Values{}
	params.Set("lat", formatCoordinate(coord.Lat))
	params.Set("lon", formatCoordinate(coord.Lon))
	params.Set("property", string(prop))

	fullURL := c.baseURL + queryPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Observation{}, fmt.Errorf("soilgrids request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Observation{}, fmt.Errorf("soilgrids API error: status %d: %s", resp.StatusCode, string(body))
	}

	var envelope domain.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return domain.Observation{}, fmt.Errorf("decode soilgrids response: %w", err)
	}

	layer, ok := domain.FindLayer(envelope.Properties.Layers, prop)
	if !ok {
		c.logger.Debug("layer absent from response",
			"property", prop, "lat", coord.Lat, "lon", coord.Lon)
		return domain.Observation{}, nil
	}

	return domain.ExtractLayerValue(layer), nil
}

// formatCoordinate renders a coordinate with the shortest decimal form that
// round-trips, so perturbed lookups produce clean query strings.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
