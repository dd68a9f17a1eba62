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

	"github.com/sells-group/outreach-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDeadLetters    AlertType = "dead_letters"
	AlertDeadLetterRate AlertType = "dead_letter_rate"
)

// Alert is a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates snapshots against configured thresholds and posts alerts
// to a webhook.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
}

// NewAlerter creates an Alerter from the monitor config.
func NewAlerter(cfg config.MonitorConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.DeadLetterThreshold > 0 && snap.DeadLetterCount >= a.cfg.DeadLetterThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDeadLetters,
			Severity: "high",
			Message: fmt.Sprintf("%d job(s) in the dead-letter queue (threshold %d)",
				snap.DeadLetterCount, a.cfg.DeadLetterThreshold),
			Details: map[string]any{
				"dead_letter_count": snap.DeadLetterCount,
				"threshold":         a.cfg.DeadLetterThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.ErrorRateThreshold > 0 && snap.TotalLeads >= 5 && snap.DeadLetterRate() > a.cfg.ErrorRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDeadLetterRate,
			Severity: "high",
			Message: fmt.Sprintf("dead-letter rate %.1f%% exceeds threshold %.1f%% (%d of %d leads)",
				snap.DeadLetterRate()*100, a.cfg.ErrorRateThreshold*100,
				snap.DeadLetterCount, snap.TotalLeads),
			Details: map[string]any{
				"rate":        snap.DeadLetterRate(),
				"threshold":   a.cfg.ErrorRateThreshold,
				"total_leads": snap.TotalLeads,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts posts alerts to the configured webhook URL and returns how many
// were delivered.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

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
