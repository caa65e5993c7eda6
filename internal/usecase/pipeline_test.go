package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ReviewScanner/internal/config"
	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/marketplace"
	"ReviewScanner/internal/ports"
)

const productURL = "https://www.amazon.in/Acme-Kettle/dp/B0ABCDEFGH/ref=sr_1_1"

type fakeSessions struct {
	alive  bool
	state  domain.SessionState
	closed int
	opened int
}

func (f *fakeSessions) IsAlive(context.Context) bool {
	if !f.alive && f.state == domain.SessionActive {
		f.state = domain.SessionUnusable
	}
	return f.alive
}

func (f *fakeSessions) State() domain.SessionState { return f.state }

func (f *fakeSessions) Close() error {
	f.closed++
	f.alive = false
	f.state = domain.SessionAbsent
	return nil
}

func (f *fakeSessions) Open(context.Context) (domain.SessionHandle, error) {
	f.opened++
	f.alive = true
	f.state = domain.SessionActive
	return domain.SessionHandle{ID: "s"}, nil
}

type fakeHarvester struct {
	result domain.HarvestResult
	err    error
	calls  int
	site   marketplace.Site
}

func (f *fakeHarvester) Harvest(_ context.Context, site marketplace.Site, id domain.ProductID, _ int) (domain.HarvestResult, error) {
	f.calls++
	f.site = site
	res := f.result
	res.ProductID = id
	return res, f.err
}

type fakeClassifier struct {
	labels []domain.Label
	err    error
	inputs [][]string
}

func (f *fakeClassifier) Classify(_ context.Context, texts []string) ([]domain.Label, error) {
	f.inputs = append(f.inputs, texts)
	return f.labels, f.err
}

type fakeSink struct {
	name      string
	err       error
	delivered []domain.Analysis
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Deliver(_ context.Context, analysis domain.Analysis) error {
	f.delivered = append(f.delivered, analysis)
	return f.err
}

type fakeRepository struct {
	saved []domain.Analysis
}

func (f *fakeRepository) Save(_ context.Context, analysis domain.Analysis) error {
	f.saved = append(f.saved, analysis)
	return nil
}

func (f *fakeRepository) Get(context.Context, string) (domain.Report, error) {
	return domain.Report{}, domain.ErrReportNotFound
}

func (f *fakeRepository) List(context.Context, int) ([]domain.Report, error) { return nil, nil }

type fakeMetrics struct {
	runs    []string
	fake    int
	genuine int
}

func (f *fakeMetrics) ObserveRun(outcome string, _ time.Duration) { f.runs = append(f.runs, outcome) }
func (f *fakeMetrics) ObservePage(string)                         {}
func (f *fakeMetrics) ObserveLabels(fake, genuine int)            { f.fake += fake; f.genuine += genuine }
func (f *fakeMetrics) ObserveSessionOpened()                      {}

type pipelineFixture struct {
	sessions   *fakeSessions
	harvester  *fakeHarvester
	classifier *fakeClassifier
	repository *fakeRepository
	sink       *fakeSink
	metrics    *fakeMetrics
	pipeline   *Pipeline
}

func newFixture(t *testing.T, keepWarm bool) *pipelineFixture {
	t.Helper()

	sites, err := marketplace.FromConfig([]config.MarketplaceConfig{config.AmazonIndia()}, "amazon.in")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	f := &pipelineFixture{
		sessions: &fakeSessions{alive: true, state: domain.SessionActive},
		harvester: &fakeHarvester{result: domain.HarvestResult{
			ProductName: "Acme Kettle",
			Reviews:     []string{"Great! Product.", "Works as described", "Solid, would buy again"},
		}},
		classifier: &fakeClassifier{labels: []domain.Label{domain.LabelFake, domain.LabelGenuine, domain.LabelGenuine}},
		repository: &fakeRepository{},
		sink:       &fakeSink{name: "test"},
		metrics:    &fakeMetrics{},
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Session:    f.sessions,
		Sites:      sites,
		Harvester:  f.harvester,
		Classifier: f.classifier,
		Repository: f.repository,
		Sinks:      []ports.ReportSink{f.sink},
		Metrics:    f.metrics,
		KeepWarm:   keepWarm,
	})
	return f
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	report, err := f.pipeline.Run(context.Background(), productURL)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if report.Total != 3 || report.FakeCount != 1 || report.GenuineCount != 2 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.FakePercentage != 33.33 || report.GenuinePercentage != 66.67 {
		t.Fatalf("unexpected percentages: %v / %v", report.FakePercentage, report.GenuinePercentage)
	}
	if report.ProductName != "Acme Kettle" || report.ProductID != "B0ABCDEFGH" || report.ID == "" {
		t.Fatalf("unexpected report identity: %+v", report)
	}

	if got := f.classifier.inputs[0][0]; got != "great product" {
		t.Fatalf("classifier should receive normalized text, got %q", got)
	}
	if f.harvester.site.Name != "amazon.in" {
		t.Fatalf("unexpected marketplace: %s", f.harvester.site.Name)
	}
	if f.sessions.closed != 1 {
		t.Fatalf("session should be released after a run, closed=%d", f.sessions.closed)
	}
	if len(f.repository.saved) != 1 || len(f.sink.delivered) != 1 {
		t.Fatalf("expected report delivered to history and sink")
	}
	if reviews := f.sink.delivered[0].Reviews; len(reviews) != 3 || reviews[0].Label != domain.LabelFake || reviews[0].Text != "Great! Product." {
		t.Fatalf("unexpected labeled reviews: %+v", reviews)
	}
	if len(f.metrics.runs) != 1 || f.metrics.runs[0] != "ok" || f.metrics.fake != 1 || f.metrics.genuine != 2 {
		t.Fatalf("unexpected metrics: %+v", f.metrics)
	}
}

func TestRunEmptyHarvestSkipsClassifier(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.harvester.result.Reviews = nil

	_, err := f.pipeline.Run(context.Background(), productURL)
	if !domain.IsKind(err, domain.ErrNoReviewsFound) {
		t.Fatalf("expected ErrNoReviewsFound, got %v", err)
	}
	if len(f.classifier.inputs) != 0 {
		t.Fatalf("classifier must not be invoked on empty harvest")
	}
	if f.sessions.closed != 1 {
		t.Fatalf("session should be released on failure paths too")
	}
	if f.metrics.runs[0] != "no_reviews" {
		t.Fatalf("unexpected outcome: %v", f.metrics.runs)
	}
}

func TestRunInvalidURL(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	_, err := f.pipeline.Run(context.Background(), "https://www.amazon.in/gp/bestsellers")
	if !domain.IsKind(err, domain.ErrInvalidProductURL) {
		t.Fatalf("expected ErrInvalidProductURL, got %v", err)
	}
	if f.harvester.calls != 0 {
		t.Fatalf("harvester must not run for an invalid url")
	}
}

func TestRunWithoutSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.sessions.alive = false
	f.sessions.state = domain.SessionAbsent

	_, err := f.pipeline.Run(context.Background(), productURL)
	if !errors.Is(err, domain.ErrSessionUnavailable) || errors.Is(err, domain.ErrSessionLost) {
		t.Fatalf("expected plain ErrSessionUnavailable, got %v", err)
	}
	if f.harvester.calls != 0 || f.sessions.closed != 0 {
		t.Fatalf("no work expected without a session")
	}
}

func TestRunDetectsLostSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.sessions.alive = false

	_, err := f.pipeline.Run(context.Background(), productURL)
	if !errors.Is(err, domain.ErrSessionLost) || !domain.IsKind(err, domain.ErrSessionUnavailable) {
		t.Fatalf("expected ErrSessionLost, got %v", err)
	}
	if f.sessions.closed != 1 || f.sessions.state != domain.SessionAbsent {
		t.Fatalf("lost session should be reset to absent")
	}
}

func TestRunKeepWarm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	if _, err := f.pipeline.Run(context.Background(), productURL); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if f.sessions.closed != 0 {
		t.Fatalf("keep-warm policy must not close the session")
	}
}

func TestRunSinkFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.sink.err = errors.New("disk full")

	report, err := f.pipeline.Run(context.Background(), productURL)
	if err != nil {
		t.Fatalf("sink failure should not fail the run: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestRunRejectsLabelCountMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.classifier.labels = []domain.Label{domain.LabelFake}

	if _, err := f.pipeline.Run(context.Background(), productURL); err == nil {
		t.Fatalf("expected error for label count mismatch")
	}
	if len(f.repository.saved) != 0 {
		t.Fatalf("no report should be persisted on failure")
	}
}

func TestSummary(t *testing.T) {
	t.Parallel()

	text := Summary(domain.Aggregate("Acme", []domain.Label{domain.LabelFake, domain.LabelGenuine, domain.LabelGenuine}))
	want := "Review analysis: Acme\nTotal reviews: 3\nFake: 1 (33.33%)\nGenuine: 2 (66.67%)"
	if text != want {
		t.Fatalf("unexpected summary:\n%s", text)
	}
}
