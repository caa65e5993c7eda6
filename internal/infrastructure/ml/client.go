package ml

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"ReviewScanner/internal/config"
	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
)

// Client talks to an external inference service that hosts the review model.
type Client struct {
	http      *resty.Client
	breaker   *gobreaker.CircuitBreaker[[]any]
	batchSize int
	threshold float64
}

var _ ports.Classifier = (*Client)(nil)

type predictRequest struct {
	Texts []string `json:"texts"`
}

type predictResponse struct {
	Predictions []any `json:"predictions"`
}

// NewClient creates a reusable HTTP client guarded by a circuit breaker.
func NewClient(cfg config.ClassifierConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout.Std()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	breaker := gobreaker.NewCircuitBreaker[[]any](gobreaker.Settings{
		Name:    "ml.predict",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			}
		},
	})

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = domain.DefaultFakeThreshold
	}

	return &Client{http: httpClient, breaker: breaker, batchSize: batch, threshold: threshold}
}

// Ping checks the service health endpoint; failure means the model is unavailable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return domain.WrapError(domain.ErrModelUnavailable, "ping classifier", err)
	}
	if resp.IsError() {
		return domain.WrapError(domain.ErrModelUnavailable, "ping classifier", fmt.Errorf("unexpected status %s", resp.Status()))
	}
	return nil
}

// Classify sends texts in batches and decodes every prediction into a label.
func (c *Client) Classify(ctx context.Context, texts []string) ([]domain.Label, error) {
	labels := make([]domain.Label, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch := texts[start:end]

		predictions, err := c.breaker.Execute(func() ([]any, error) {
			return c.predict(ctx, batch)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, domain.WrapError(domain.ErrModelUnavailable, "classify", err)
			}
			return nil, err
		}
		if len(predictions) != len(batch) {
			return nil, fmt.Errorf("classify: got %d predictions for %d texts", len(predictions), len(batch))
		}

		for _, raw := range predictions {
			label, err := domain.DecodeLabel(raw, c.threshold)
			if err != nil {
				return nil, fmt.Errorf("classify: %w", err)
			}
			labels = append(labels, label)
		}
	}
	return labels, nil
}

func (c *Client) predict(ctx context.Context, texts []string) ([]any, error) {
	var out predictResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(predictRequest{Texts: texts}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %s", resp.Status())
	}
	return out.Predictions, nil
}
