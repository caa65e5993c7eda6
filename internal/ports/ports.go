package ports

import (
	"context"
	"time"

	"ReviewScanner/internal/domain"
)

// Session is one live automated-browser tab.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Location doubles as the liveness check.
	Location(ctx context.Context) (string, error)
	ScrollToBottom(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
	// Texts returns the rendered (innerText) text of every element matching selector, in document order.
	Texts(ctx context.Context, selector string) ([]string, error)
	Close() error
}

// SessionLauncher starts a browser and opens homeURL in a fresh tab.
type SessionLauncher interface {
	Launch(ctx context.Context, homeURL string) (Session, error)
}

// Browser is the view of the session manager used by the harvester.
type Browser interface {
	IsAlive(ctx context.Context) bool
	Navigate(ctx context.Context, url string) error
	ScrollToBottom(ctx context.Context) error
	PageHTML(ctx context.Context) (string, error)
	VisibleTexts(ctx context.Context, selector string) ([]string, error)
}

// PageParser extracts page metadata from rendered HTML.
type PageParser interface {
	ProductTitle(html, selector string) (string, error)
}

// Classifier labels normalized review texts, one label per input in order.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]domain.Label, error)
}

// ReportRepository persists analysis history.
type ReportRepository interface {
	Save(ctx context.Context, analysis domain.Analysis) error
	Get(ctx context.Context, id string) (domain.Report, error)
	List(ctx context.Context, limit int) ([]domain.Report, error)
}

// ReportSink consumes a finished analysis (workbook, CSV, events, chat).
type ReportSink interface {
	Name() string
	Deliver(ctx context.Context, analysis domain.Analysis) error
}

// Notifier streams short summaries to Telegram or other channels.
type Notifier interface {
	PublishSummary(ctx context.Context, text string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
	// Next reports the first activation strictly after t.
	Next(t time.Time) (time.Time, error)
}

// Metrics records pipeline observations.
type Metrics interface {
	ObserveRun(outcome string, duration time.Duration)
	ObservePage(outcome string)
	ObserveLabels(fake, genuine int)
	ObserveSessionOpened()
}
