// Package monitoring raises alerts from reclassification run statistics.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/config"
	"github.com/sells-group/permit-leads/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertErrorRate AlertType = "reclassify_error_rate"
	AlertRunFailed AlertType = "reclassify_run_failed"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates run statistics against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks a completed run's statistics and returns any alerts.
func (a *Alerter) Evaluate(stats model.ReclassifyStats) []Alert {
	var alerts []Alert

	processed := stats.Processed()
	rate := stats.ErrorRate()
	if processed >= a.cfg.MinPermits && processed > 0 && rate > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertErrorRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Reclassify error rate %.1f%% exceeds threshold %.1f%% (%d errors / %d permits, run %s)",
				rate*100, a.cfg.ErrorRateThreshold*100, stats.Errors, processed, stats.RunID,
			),
			Details: map[string]any{
				"run_id":     stats.RunID,
				"error_rate": rate,
				"threshold":  a.cfg.ErrorRateThreshold,
				"errors":     stats.Errors,
				"processed":  processed,
			},
			Timestamp: stats.CompletedAt.UTC(),
		})
	}

	return alerts
}

// RunFailed builds the alert for a run aborted by a store-level error.
func (a *Alerter) RunFailed(runID string, runErr error, at time.Time) Alert {
	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}
	return Alert{
		Type:      AlertRunFailed,
		Severity:  "critical",
		Message:   fmt.Sprintf("Reclassify run %s failed: %s", runID, msg),
		Details:   map[string]any{"run_id": runID},
		Timestamp: at.UTC(),
	}
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// Check evaluates stats, logs what fired and sends it.
func (a *Alerter) Check(ctx context.Context, stats model.ReclassifyStats) int {
	log := zap.L().With(zap.String("component", "monitoring"))
	alerts := a.Evaluate(stats)
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered", zap.String("run_id", stats.RunID))
		return 0
	}
	for _, al := range alerts {
		log.Warn(al.Message, zap.String("type", string(al.Type)))
	}
	sent := a.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
