// Package iatageo resolves ICAO airport codes to coordinates through the
// iatageo.com lookup API.
package iatageo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wind-stations-etl/internal/domain"
	"github.com/couchcryptid/wind-stations-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Client implements domain.ICAOLocator.
type Client struct {
	httpClient *http.Client
	baseURL    string
	attempts   int
	retryDelay time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Attempts   int
	RetryDelay time.Duration
}

// NewClient creates an iatageo client. Attempts below one are treated as one.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		attempts:   opts.Attempts,
		retryDelay: opts.RetryDelay,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics,
		logger:     logger,
	}
}

// LocateICAO returns the position of an airport. Every failure, including a
// response without usable coordinates, is retried after a fixed delay; there
// is no wait after the final attempt. When all attempts fail with a missing
// position the result is domain.ErrNotFound.
func (c *Client) LocateICAO(ctx context.Context, icao string) (domain.Coordinates, error) {
	u := fmt.Sprintf("%s/getICAOLatLng/%s", c.baseURL, url.PathEscape(icao))

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		coords, err := c.doRequest(ctx, u)
		if err == nil {
			c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
			return coords, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrNotFound) {
			c.metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		} else {
			c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		}
		c.logger.Debug("icao lookup attempt failed", "icao", icao, "attempt", attempt, "error", err)

		if attempt == c.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return domain.Coordinates{}, ctx.Err()
		case <-c.clock.After(c.retryDelay):
		}
	}
	return domain.Coordinates{}, fmt.Errorf("icao %s after %d attempts: %w", icao, c.attempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.Coordinates, error) {
	start := c.clock.Now()
	defer func() {
		c.metrics.GeocodeAPIDuration.Observe(c.clock.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("icao geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Coordinates{}, fmt.Errorf("iatageo API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.Coordinates{}, fmt.Errorf("decode response: %w", err)
	}
	if !r.Latitude.ok || !r.Longitude.ok {
		return domain.Coordinates{}, domain.ErrNotFound
	}
	return domain.Coordinates{Lat: r.Latitude.v, Lon: r.Longitude.v}, nil
}

// iatageo API response types.

type response struct {
	Latitude  flexFloat `json:"latitude"`
	Longitude flexFloat `json:"longitude"`
}

// flexFloat accepts a JSON number or a numeric string. Anything else,
// including NaN, leaves it unset.
type flexFloat struct {
	v  float64
	ok bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.v, f.ok = v, true
	return nil
}
