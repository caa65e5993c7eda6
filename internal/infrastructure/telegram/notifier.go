package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"ReviewScanner/internal/config"
	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/ports"
	"ReviewScanner/internal/usecase"
)

// Notifier sends analysis summaries to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *resty.Client
}

var (
	_ ports.Notifier   = (*Notifier)(nil)
	_ ports.ReportSink = (*Notifier)(nil)
)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig) *Notifier {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	return &Notifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   resty.New().SetBaseURL(apiURL).SetTimeout(5 * time.Second),
	}
}

func (n *Notifier) Name() string { return "telegram" }

// Deliver posts the report summary.
func (n *Notifier) Deliver(ctx context.Context, analysis domain.Analysis) error {
	return n.PublishSummary(ctx, usecase.Summary(analysis.Report))
}

// PublishSummary posts a plain text message to Telegram.
func (n *Notifier) PublishSummary(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"chat_id": n.chatID,
			"text":    text,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.botToken))
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("telegram error: %s", resp.Status())
	}

	return nil
}
