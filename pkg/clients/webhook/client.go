package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/petroflow/petroflow/internal/config"
)

// BatchCompletedEvent is the payload posted to the configured endpoint when
// a project batch run finishes, successfully or partially.
type BatchCompletedEvent struct {
	ProjectID   string    `json:"project_id"`
	ModelType   string    `json:"model_type"`
	FluidType   string    `json:"fluid_type"`
	TotalWells  int       `json:"total_wells"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	CompletedAt time.Time `json:"completed_at"`
}

// Client exposes the notification operations used by the batch service.
type Client interface {
	NotifyBatchCompleted(ctx context.Context, event BatchCompletedEvent) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client using the provided configuration values.
func NewClient(cfg config.WebhookConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)
	if cfg.AuthToken != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AuthToken))
	}

	return &APIClient{httpClient: restyClient, url: cfg.URL}
}

// NotifyBatchCompleted posts the event and treats any non-2xx response as
// an error. Delivery is best-effort; the caller decides whether to retry.
func (c *APIClient) NotifyBatchCompleted(ctx context.Context, event BatchCompletedEvent) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(event).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post batch webhook: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("batch webhook returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
