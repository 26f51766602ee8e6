package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"vitals-monitor/internal/vitals"
)

var (
	ErrBadStatus        = errors.New("live feed returned non-success status")
	ErrMalformedPayload = errors.New("live feed payload is malformed")
)

const maxPayloadBytes = 64 << 10

// payload is the live feed's wire shape. Pointers distinguish an absent
// field from a zero reading.
type payload struct {
	HeartRate   *float64 `json:"heart_rate"`
	Oxygen      *float64 `json:"oxygen_level"`
	BodyTemp    *float64 `json:"body_temperature"`
	SystolicBP  *float64 `json:"blood_pressure_systolic"`
	DiastolicBP *float64 `json:"blood_pressure_diastolic"`
}

func (p payload) values() map[vitals.Metric]*float64 {
	return map[vitals.Metric]*float64{
		vitals.HeartRate:   p.HeartRate,
		vitals.Oxygen:      p.Oxygen,
		vitals.BodyTemp:    p.BodyTemp,
		vitals.SystolicBP:  p.SystolicBP,
		vitals.DiastolicBP: p.DiastolicBP,
	}
}

// LiveClient reads the current vitals from an HTTP feed.
type LiveClient struct {
	url     string
	token   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// LiveOption customizes a LiveClient.
type LiveOption func(*LiveClient)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(c *http.Client) LiveOption {
	return func(l *LiveClient) { l.client = c }
}

// WithBreakerSettings replaces the default circuit breaker settings.
func WithBreakerSettings(st gobreaker.Settings) LiveOption {
	return func(l *LiveClient) { l.breaker = gobreaker.NewCircuitBreaker(st) }
}

// WithClock sets the clock used to stamp live samples.
func WithClock(now func() time.Time) LiveOption {
	return func(l *LiveClient) { l.now = now }
}

// DefaultBreakerSettings opens after five consecutive failures and probes
// again after thirty seconds.
func DefaultBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "live-feed",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	}
}

// NewLiveClient creates a client for the feed at url using a bearer token.
func NewLiveClient(url, token string, opts ...LiveOption) *LiveClient {
	l := &LiveClient{
		url:    url,
		token:  token,
		client: &http.Client{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.breaker == nil {
		l.breaker = gobreaker.NewCircuitBreaker(DefaultBreakerSettings())
	}
	return l
}

// BreakerState exposes the circuit breaker state for diagnostics.
func (l *LiveClient) BreakerState() gobreaker.State {
	return l.breaker.State()
}

// Fetch performs one guarded request against the feed.
func (l *LiveClient) Fetch(ctx context.Context) (vitals.SampleSet, error) {
	out, err := l.breaker.Execute(func() (interface{}, error) {
		return l.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out.(vitals.SampleSet), nil
}

func (l *LiveClient) fetch(ctx context.Context) (vitals.SampleSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build live feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("live feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes))
	var p *payload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: body is not an object", ErrMalformedPayload)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedPayload)
	}

	return l.normalize(*p)
}

// normalize turns the payload into samples, skipping absent fields.
func (l *LiveClient) normalize(p payload) (vitals.SampleSet, error) {
	ts := l.now()
	set := make(vitals.SampleSet)
	for m, v := range p.values() {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrMalformedPayload, m)
		}
		set[m] = vitals.Sample{Metric: m, Value: *v, Timestamp: ts, Source: vitals.SourceLive}
	}
	return set, nil
}
