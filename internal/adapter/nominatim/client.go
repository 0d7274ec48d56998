// Package nominatim implements domain.Geocoder against a Nominatim-compatible
// reverse-geocoding endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/domain"
	"github.com/fleetsight/vehicle-telemetry-etl/internal/observability"
)

// Client implements domain.Geocoder using the Nominatim reverse API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Nominatim client. The user agent identifies this
// service to the provider; public Nominatim instances reject anonymous
// clients.
func NewClient(baseURL, userAgent string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   baseURL,
		userAgent: userAgent,
		metrics:   metrics,
		logger:    logger,
	}
}

// ReverseGeocode converts coordinates to an address. An unknown location is
// not an error: it returns a zero Address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Address, error) {
	params := url.Values{
		"format": {"jsonv2"},
		"lat":    {fmt.Sprintf("%.6f", lat)},
		"lon":    {fmt.Sprintf("%.6f", lon)},
	}
	fullURL := c.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.Address{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Address{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return domain.Address{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var nr response
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.Address{}, fmt.Errorf("decode response: %w", err)
	}

	// Nominatim reports "nothing here" as a 200 with an error field.
	if nr.Error != "" {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return domain.Address{}, nil
	}

	addr := domain.Address{
		State:  nr.Address.State,
		City:   nr.Address.city(),
		Street: nr.Address.Road,
	}
	if addr.IsZero() {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	}
	return addr, nil
}

// Nominatim API response types.

type response struct {
	Error   string  `json:"error"`
	Address address `json:"address"`
}

type address struct {
	Road    string `json:"road"`
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	State   string `json:"state"`
}

// city picks the most specific populated-place field the provider filled in.
func (a address) city() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	default:
		return a.Village
	}
}
