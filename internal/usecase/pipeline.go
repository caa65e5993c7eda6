package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/marketplace"
	"ReviewScanner/internal/ports"
	"ReviewScanner/internal/product"
	"ReviewScanner/internal/textnorm"
)

// SessionController is the part of the session manager the pipeline drives.
type SessionController interface {
	IsAlive(ctx context.Context) bool
	State() domain.SessionState
	Close() error
}

// ReviewHarvester collects review texts for one product.
type ReviewHarvester interface {
	Harvest(ctx context.Context, site marketplace.Site, id domain.ProductID, maxPages int) (domain.HarvestResult, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Session    SessionController
	Sites      *marketplace.Registry
	Harvester  ReviewHarvester
	Classifier ports.Classifier
	Repository ports.ReportRepository
	Sinks      []ports.ReportSink
	Metrics    ports.Metrics
	Logger     *slog.Logger
	// KeepWarm leaves the session open after a run instead of releasing it.
	KeepWarm bool
	MaxPages int
}

// Pipeline implements the scrape, classify and aggregate workflow.
type Pipeline struct {
	session    SessionController
	sites      *marketplace.Registry
	harvester  ReviewHarvester
	classifier ports.Classifier
	repository ports.ReportRepository
	sinks      []ports.ReportSink
	metrics    ports.Metrics
	logger     *slog.Logger
	keepWarm   bool
	maxPages   int
	tracer     trace.Tracer
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		session:    deps.Session,
		sites:      deps.Sites,
		harvester:  deps.Harvester,
		classifier: deps.Classifier,
		repository: deps.Repository,
		sinks:      deps.Sinks,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		keepWarm:   deps.KeepWarm,
		maxPages:   deps.MaxPages,
		tracer:     otel.Tracer("reviewscanner/pipeline"),
		now:        time.Now,
	}
}

// Run analyses the product behind productURL.
// Once the session check passes, the session is released on every exit path unless KeepWarm is set.
func (p *Pipeline) Run(ctx context.Context, productURL string) (report domain.Report, err error) {
	start := p.now()
	ctx, span := p.tracer.Start(ctx, "analysis.run", trace.WithAttributes(attribute.String("product.url", productURL)))
	defer func() {
		p.observeRun(err, p.now().Sub(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := p.requireSession(ctx); err != nil {
		return domain.Report{}, err
	}
	defer p.release()

	analysis, err := p.analyse(ctx, productURL)
	if err != nil {
		return domain.Report{}, err
	}

	p.deliver(ctx, analysis)
	return analysis.Report, nil
}

func (p *Pipeline) requireSession(ctx context.Context) error {
	if p.session == nil {
		return domain.ErrSessionUnavailable
	}
	if p.session.IsAlive(ctx) {
		return nil
	}
	if p.session.State() == domain.SessionUnusable {
		if err := p.session.Close(); err != nil {
			p.warn("cleanup of lost session failed", "error", err)
		}
		return domain.ErrSessionLost
	}
	return domain.ErrSessionUnavailable
}

func (p *Pipeline) analyse(ctx context.Context, productURL string) (domain.Analysis, error) {
	id, ok := product.ExtractIdentifier(productURL)
	if !ok {
		return domain.Analysis{}, fmt.Errorf("%w: %q", domain.ErrInvalidProductURL, productURL)
	}

	site, err := p.resolveSite(productURL)
	if err != nil {
		return domain.Analysis{}, err
	}

	p.debug("harvest start", "product", id, "marketplace", site.Name)
	harvest, err := p.harvester.Harvest(ctx, site, id, p.maxPages)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("harvest %s: %w", id, err)
	}
	if harvest.Empty() {
		return domain.Analysis{}, fmt.Errorf("%w for %s", domain.ErrNoReviewsFound, id)
	}

	normalized := textnorm.NormalizeAll(harvest.Reviews)
	labels, err := p.classify(ctx, normalized)
	if err != nil {
		return domain.Analysis{}, err
	}

	report := domain.Aggregate(harvest.ProductName, labels)
	report.ID = uuid.NewString()
	report.ProductID = id
	report.ProductURL = productURL
	report.CreatedAt = p.now().UTC()

	reviews := make([]domain.LabeledReview, len(harvest.Reviews))
	for i := range harvest.Reviews {
		reviews[i] = domain.LabeledReview{Text: harvest.Reviews[i], Normalized: normalized[i], Label: labels[i]}
	}

	if p.metrics != nil {
		p.metrics.ObserveLabels(report.FakeCount, report.GenuineCount)
	}
	p.info("analysis complete",
		"report_id", report.ID,
		"product", id,
		"total", report.Total,
		"fake", report.FakeCount,
		"genuine", report.GenuineCount)

	return domain.Analysis{Report: report, Reviews: reviews}, nil
}

func (p *Pipeline) classify(ctx context.Context, texts []string) ([]domain.Label, error) {
	if p.classifier == nil {
		return nil, domain.ErrModelUnavailable
	}

	ctx, span := p.tracer.Start(ctx, "classify", trace.WithAttributes(attribute.Int("texts", len(texts))))
	defer span.End()

	labels, err := p.classifier.Classify(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("classify reviews: %w", err)
	}
	if len(labels) != len(texts) {
		return nil, fmt.Errorf("classify reviews: got %d labels for %d reviews", len(labels), len(texts))
	}
	return labels, nil
}

func (p *Pipeline) resolveSite(productURL string) (marketplace.Site, error) {
	if p.sites == nil {
		return marketplace.Site{}, errors.New("marketplace registry is not configured")
	}
	return p.sites.ForURL(productURL)
}

// deliver hands the analysis to history and sinks; their failures do not fail the run.
func (p *Pipeline) deliver(ctx context.Context, analysis domain.Analysis) {
	if p.repository != nil {
		if err := p.repository.Save(ctx, analysis); err != nil {
			p.warn("persist report failed", "report_id", analysis.Report.ID, "error", err)
		}
	}
	for _, sink := range p.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Deliver(ctx, analysis); err != nil {
			p.warn("report sink failed", "sink", sink.Name(), "report_id", analysis.Report.ID, "error", err)
		}
	}
}

func (p *Pipeline) release() {
	if p.keepWarm {
		return
	}
	if err := p.session.Close(); err != nil {
		p.warn("release session failed", "error", err)
	}
}

func (p *Pipeline) observeRun(err error, d time.Duration) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveRun(Outcome(err), d)
}

// Outcome maps a run error to a short metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case domain.IsKind(err, domain.ErrSessionUnavailable):
		return "session_unavailable"
	case domain.IsKind(err, domain.ErrInvalidProductURL):
		return "invalid_url"
	case domain.IsKind(err, domain.ErrNoReviewsFound):
		return "no_reviews"
	case domain.IsKind(err, domain.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

// Summary renders a report as a short human readable message.
func Summary(report domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review analysis: %s\n", report.ProductName)
	if report.ProductURL != "" {
		fmt.Fprintf(&b, "%s\n", report.ProductURL)
	}
	fmt.Fprintf(&b, "Total reviews: %d\n", report.Total)
	fmt.Fprintf(&b, "Fake: %d (%.2f%%)\n", report.FakeCount, report.FakePercentage)
	fmt.Fprintf(&b, "Genuine: %d (%.2f%%)", report.GenuineCount, report.GenuinePercentage)
	return b.String()
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
