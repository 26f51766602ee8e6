package ingest

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"vitals-monitor/internal/metrics"
	"vitals-monitor/internal/vitals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func feed(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLiveClient_Fetch(t *testing.T) {
	t.Run("full payload with bearer token", func(t *testing.T) {
		var auth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"heart_rate":81.5,"oxygen_level":97,"body_temperature":98.4,` +
				`"blood_pressure_systolic":121,"blood_pressure_diastolic":79}`))
		}))
		defer server.Close()

		c := NewLiveClient(server.URL, "secret", WithClock(func() time.Time { return fixed }))
		set, err := c.Fetch(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "Bearer secret", auth)
		require.Len(t, set, 5)
		assert.Equal(t, 81.5, set[vitals.HeartRate].Value)
		assert.Equal(t, 79.0, set[vitals.DiastolicBP].Value)
		assert.Equal(t, vitals.SourceLive, set[vitals.Oxygen].Source)
		assert.Equal(t, fixed, set[vitals.BodyTemp].Timestamp)
	})

	t.Run("absent fields are omitted", func(t *testing.T) {
		server := feed(t, http.StatusOK, `{"heart_rate":70}`)

		set, err := NewLiveClient(server.URL, "").Fetch(context.Background())

		require.NoError(t, err)
		assert.Len(t, set, 1)
		_, ok := set[vitals.Oxygen]
		assert.False(t, ok)
	})

	t.Run("non-success status", func(t *testing.T) {
		server := feed(t, http.StatusServiceUnavailable, "")

		_, err := NewLiveClient(server.URL, "").Fetch(context.Background())
		assert.ErrorIs(t, err, ErrBadStatus)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		server := feed(t, http.StatusOK, `{"heart_rate":`)

		_, err := NewLiveClient(server.URL, "").Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("wrong field type", func(t *testing.T) {
		server := feed(t, http.StatusOK, `{"heart_rate":"fast"}`)

		_, err := NewLiveClient(server.URL, "").Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("null body", func(t *testing.T) {
		server := feed(t, http.StatusOK, `null`)

		_, err := NewLiveClient(server.URL, "").Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("trailing data after object", func(t *testing.T) {
		server := feed(t, http.StatusOK, `{"heart_rate":70}garbage`)

		_, err := NewLiveClient(server.URL, "").Fetch(context.Background())
		assert.ErrorIs(t, err, ErrMalformedPayload)
	})

	t.Run("trailing whitespace is accepted", func(t *testing.T) {
		server := feed(t, http.StatusOK, "{\"heart_rate\":70}\n")

		set, err := NewLiveClient(server.URL, "").Fetch(context.Background())
		require.NoError(t, err)
		assert.Len(t, set, 1)
	})

	t.Run("unreachable feed", func(t *testing.T) {
		_, err := NewLiveClient("http://127.0.0.1:1", "").Fetch(context.Background())
		assert.Error(t, err)
	})
}

func TestLiveClient_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	st := DefaultBreakerSettings()
	st.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 2 }
	c := NewLiveClient(server.URL, "", WithBreakerSettings(st))

	for i := 0; i < 2; i++ {
		_, err := c.Fetch(context.Background())
		assert.ErrorIs(t, err, ErrBadStatus)
	}

	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the feed")
}

func TestLiveClient_NonFinite(t *testing.T) {
	c := NewLiveClient("http://unused", "")
	inf := math.Inf(1)
	_, err := c.normalize(payload{HeartRate: &inf})
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestAdapter_NullFeedFallsBack(t *testing.T) {
	server := feed(t, http.StatusOK, `null`)
	a, reg, _ := newTestAdapter(NewLiveClient(server.URL, ""), time.Second)

	set := a.FetchSample(context.Background())

	assert.Len(t, set, len(vitals.All))
	assert.Equal(t, vitals.SourceSynthetic, set[vitals.HeartRate].Source)
	assert.Equal(t, ModeSynthetic, a.Mode())
	assert.Equal(t, int64(1), reg.Value(metrics.FetchFallbackTotal))
}
