package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetsight/vehicle-telemetry-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgent = "vehicle-telemetry-etl-test/1.0"

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string, timeout time.Duration) *Client {
	return NewClient(baseURL, testUserAgent, timeout, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "40.712800", r.URL.Query().Get("lat"))
		assert.Equal(t, "-74.006000", r.URL.Query().Get("lon"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":{"road":"Broadway","city":"New York","state":"New York"}}`))
	}))
	defer srv.Close()

	addr, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(context.Background(), 40.7128, -74.0060)
	require.NoError(t, err)

	assert.Equal(t, "Broadway", addr.Street)
	assert.Equal(t, "New York", addr.City)
	assert.Equal(t, "New York", addr.State)
}

func TestClient_ReverseGeocode_TownFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"address":{"road":"Main St","town":"Smallville","state":"Kansas"}}`))
	}))
	defer srv.Close()

	addr, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(context.Background(), 39.0, -95.0)
	require.NoError(t, err)
	assert.Equal(t, "Smallville", addr.City)
}

func TestClient_ReverseGeocode_UnableToGeocode(t *testing.T) {
	// Open ocean: Nominatim answers 200 with an error field.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer srv.Close()

	addr, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.True(t, addr.IsZero())
}

func TestClient_ReverseGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(context.Background(), 40.7, -74.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_ReverseGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).ReverseGeocode(context.Background(), 40.7, -74.0)
	require.Error(t, err)
}

func TestClient_ReverseGeocode_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, 5*time.Second).ReverseGeocode(ctx, 40.7, -74.0)
	require.Error(t, err)
}
