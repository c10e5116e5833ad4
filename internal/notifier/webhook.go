package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"spamguard/internal/models"
)

// Notifier emits lifecycle events for downstream webhook delivery. Delivery
// reliability is the receiving collaborator's responsibility.
type Notifier interface {
	PredictionCreated(ctx context.Context, result *models.PredictionResult)
}

// Event is the payload posted to the webhook endpoint.
type Event struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebhookNotifier posts events to a configured HTTP endpoint.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier creates a webhook event emitter.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// PredictionCreated posts a prediction.created event. Errors are logged, never
// surfaced to the prediction caller.
func (n *WebhookNotifier) PredictionCreated(ctx context.Context, result *models.PredictionResult) {
	event := Event{
		Event:     "prediction.created",
		Data:      result,
		Timestamp: time.Now().UTC(),
	}
	if err := n.post(ctx, event); err != nil {
		n.logger.Warn("Failed to deliver webhook event",
			zap.String("event", event.Event),
			zap.String("prediction_id", result.ID),
			zap.Error(err))
	}
}

func (n *WebhookNotifier) post(ctx context.Context, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// NopNotifier drops all events. Used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) PredictionCreated(context.Context, *models.PredictionResult) {}
