package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tashkent = `{
	"name": "Tashkent",
	"sys": {"country": "UZ"},
	"weather": [{"description": "ochiq osmon"}],
	"main": {"temp": 21.4, "feels_like": 20.1, "humidity": 35, "pressure": 1015},
	"wind": {"speed": 3.2},
	"dt": 1700000000
}`

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/data/2.5/weather", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		switch {
		case r.URL.Query().Get("q") == "Atlantis":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
		case r.URL.Query().Get("q") == "Broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(tashkent))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ByCity(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	report, err := c.ByCity(context.Background(), "Tashkent", "uz")
	require.NoError(t, err)
	assert.Equal(t, "Tashkent", report.Place)
	assert.Equal(t, "UZ", report.Country)
	assert.Equal(t, "ochiq osmon", report.Description)
	assert.InDelta(t, 21.4, report.TempC, 0.001)
	assert.Equal(t, 35, report.Humidity)
	assert.Equal(t, time.Unix(1700000000, 0), report.ObservedAt)
}

func TestClient_NotFound(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.ByCity(context.Background(), "Atlantis", "en")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.ByCity(context.Background(), "  ", "en")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_ServerError(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})

	_, err := c.ByCity(context.Background(), "Broken", "en")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClient_ByCoordinatesCached(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, CacheSize: 16, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		report, err := c.ByCoordinates(context.Background(), 41.2995, 69.2401, "ru")
		require.NoError(t, err)
		assert.Equal(t, "Tashkent", report.Place)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
