package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"vitals-monitor/internal/logs"
	"vitals-monitor/internal/metrics"
)

const webhookTimeout = 2 * time.Second

// webhookPayload is the body posted for each alert.
type webhookPayload struct {
	Event string `json:"event"`
	Alert Alert  `json:"alert"`
	Sent  string `json:"ts"`
}

// WebhookPublisher posts alerts as JSON to an HTTP endpoint.
// Delivery happens in the background; Publish only fails on bad input.
type WebhookPublisher struct {
	url     string
	logger  *logs.Logger
	metrics *metrics.Registry
	client  *http.Client
	wg      sync.WaitGroup
}

// ValidateWebhookURL checks that rawURL is an absolute http(s) URL.
func ValidateWebhookURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL %q has no host", rawURL)
	}
	return nil
}

// NewWebhookPublisher creates a publisher posting to rawURL.
func NewWebhookPublisher(rawURL string, logger *logs.Logger, reg *metrics.Registry) (*WebhookPublisher, error) {
	if err := ValidateWebhookURL(rawURL); err != nil {
		return nil, err
	}
	return &WebhookPublisher{
		url:     rawURL,
		logger:  logger,
		metrics: reg,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
	}, nil
}

// Publish sends the alert without blocking the caller.
func (w *WebhookPublisher) Publish(_ context.Context, alert Alert) error {
	body, err := json.Marshal(webhookPayload{
		Event: "vitals_alert",
		Alert: alert,
		Sent:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", alert.ID, err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.send(alert.ID, body)
	}()
	return nil
}

func (w *WebhookPublisher) send(alertID string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.fail("failed to create webhook request", alertID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.fail("failed to send webhook request", alertID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.metrics.Inc(metrics.AlertPublishFailuresTotal)
		w.logger.Warn("unexpected response from webhook",
			zap.String("alert_id", alertID),
			zap.String("status", resp.Status),
		)
		return
	}
	w.logger.Debug("alert delivered to webhook", zap.String("alert_id", alertID))
}

func (w *WebhookPublisher) fail(msg, alertID string, err error) {
	w.metrics.Inc(metrics.AlertPublishFailuresTotal)
	w.logger.Error(msg, zap.String("alert_id", alertID), zap.Error(err))
}

// Flush waits for in-flight deliveries.
func (w *WebhookPublisher) Flush() {
	w.wg.Wait()
}

// Close waits for in-flight deliveries.
func (w *WebhookPublisher) Close() error {
	w.Flush()
	return nil
}
