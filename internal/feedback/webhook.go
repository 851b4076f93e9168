// Package feedback propagates classification-error dismissals to the
// upstream classifier via webhook.
package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/model"
	"github.com/sells-group/force-pipeline/internal/resilience"
)

// Report is the webhook payload for one misclassified opportunity.
type Report struct {
	OpportunityID string    `json:"opportunity_id"`
	ForceID       string    `json:"force_id"`
	Reason        string    `json:"reason"`
	SignalIDs     []string  `json:"signal_ids"`
	ReportedAt    time.Time `json:"reported_at"`
}

// WebhookSink posts misclassification reports to a configured URL.
// An empty URL disables delivery; reports are then dropped with a
// debug log so a bare install does not error on every dismissal.
type WebhookSink struct {
	url    string
	client *http.Client
	retry  resilience.Policy
}

// NewWebhookSink creates a sink for the given webhook URL.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  resilience.DefaultPolicy(),
	}
}

// ReportMisclassification delivers one report. Failures are returned
// to the caller; the session logs them without failing the dismissal.
func (s *WebhookSink) ReportMisclassification(ctx context.Context, o model.Opportunity, reason string) error {
	if s.url == "" {
		zap.L().Debug("feedback: no webhook configured, dropping report",
			zap.String("opportunity_id", o.ID),
		)
		return nil
	}

	body, err := json.Marshal(Report{
		OpportunityID: o.ID,
		ForceID:       o.ForceID,
		Reason:        reason,
		SignalIDs:     o.SignalIDs,
		ReportedAt:    time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "feedback: marshal report")
	}

	err = s.retry.Do(ctx, "feedback.report", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "feedback: build request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "feedback: post report")
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			err := eris.Errorf("feedback: webhook returned %d", resp.StatusCode)
			if resilience.TransientStatus(resp.StatusCode) {
				return &resilience.TransientError{Err: err, StatusCode: resp.StatusCode}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("feedback: misclassification reported",
		zap.String("opportunity_id", o.ID),
		zap.String("reason", reason),
	)
	return nil
}
