package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ReviewScanner/internal/domain"
	"ReviewScanner/internal/marketplace"
	"ReviewScanner/internal/ports"
	"ReviewScanner/internal/session"
)

// DefaultMaxPages is the number of review pages visited per product.
const DefaultMaxPages = 15

// StopPolicy decides, after each page, whether paging should end early.
// emptyStreak counts consecutive pages that produced no reviews.
type StopPolicy func(emptyStreak int) bool

// ExhaustPages never stops early; every page up to the limit is visited.
func ExhaustPages(int) bool { return false }

// StopAfterEmptyPages ends paging after k consecutive empty pages.
func StopAfterEmptyPages(k int) StopPolicy {
	if k <= 0 {
		return ExhaustPages
	}
	return func(emptyStreak int) bool { return emptyStreak >= k }
}

// HarvesterDeps wires the harvester.
type HarvesterDeps struct {
	Browser    ports.Browser
	Parser     ports.PageParser
	MaxPages   int
	PagePause  time.Duration
	StopPolicy StopPolicy
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

// Harvester walks the paginated reviews of a product through the session manager.
type Harvester struct {
	browser    ports.Browser
	parser     ports.PageParser
	maxPages   int
	pagePause  time.Duration
	stopPolicy StopPolicy
	metrics    ports.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewHarvester applies defaults for unset limits.
func NewHarvester(deps HarvesterDeps) *Harvester {
	h := &Harvester{
		browser:    deps.Browser,
		parser:     deps.Parser,
		maxPages:   deps.MaxPages,
		pagePause:  deps.PagePause,
		stopPolicy: deps.StopPolicy,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		tracer:     otel.Tracer("reviewscanner/harvester"),
	}
	if h.maxPages <= 0 {
		h.maxPages = DefaultMaxPages
	}
	if h.stopPolicy == nil {
		h.stopPolicy = ExhaustPages
	}
	return h
}

// Harvest collects review texts for id on site, visiting up to maxPages pages.
// maxPages <= 0 uses the configured limit. An empty result is not an error.
func (h *Harvester) Harvest(ctx context.Context, site marketplace.Site, id domain.ProductID, maxPages int) (domain.HarvestResult, error) {
	if h.browser == nil || !h.browser.IsAlive(ctx) {
		return domain.HarvestResult{}, domain.ErrSessionUnavailable
	}
	if maxPages <= 0 {
		maxPages = h.maxPages
	}

	ctx, span := h.tracer.Start(ctx, "harvest", trace.WithAttributes(
		attribute.String("product.id", string(id)),
		attribute.String("marketplace", site.Name),
	))
	defer span.End()

	result := domain.HarvestResult{ProductID: id}

	if err := h.browser.Navigate(ctx, site.ProductURL(id)); err != nil {
		return result, fmt.Errorf("open product page: %w", err)
	}
	result.ProductName, result.NameFallback = h.productName(ctx, site)

	emptyStreak := 0
	for page := 1; page <= maxPages; page++ {
		reviews, err := h.harvestPage(ctx, site, id, page)
		if err != nil {
			return result, fmt.Errorf("reviews page %d: %w", page, err)
		}
		result.Pages = page
		result.Reviews = append(result.Reviews, reviews...)

		if len(reviews) == 0 {
			emptyStreak++
			h.observePage("empty")
			h.debug("reviews page empty", "product", id, "page", page, "empty_streak", emptyStreak)
		} else {
			emptyStreak = 0
			h.observePage("ok")
			h.debug("reviews page harvested", "product", id, "page", page, "reviews", len(reviews))
		}

		if h.stopPolicy(emptyStreak) {
			h.info("stopping early after empty pages", "product", id, "page", page, "empty_streak", emptyStreak)
			break
		}
		if page < maxPages {
			if err := session.Wait(ctx, h.pagePause); err != nil {
				return result, err
			}
		}
	}

	span.SetAttributes(attribute.Int("reviews", len(result.Reviews)), attribute.Int("pages", result.Pages))
	h.info("harvest finished", "product", id, "name", result.ProductName, "reviews", len(result.Reviews), "pages", result.Pages)
	return result, nil
}

func (h *Harvester) harvestPage(ctx context.Context, site marketplace.Site, id domain.ProductID, page int) ([]string, error) {
	if err := h.browser.Navigate(ctx, site.ReviewsURL(id, page)); err != nil {
		h.observePage("error")
		return nil, err
	}
	if err := h.browser.ScrollToBottom(ctx); err != nil {
		h.observePage("error")
		return nil, err
	}
	texts, err := h.browser.VisibleTexts(ctx, site.ReviewSelector)
	if err != nil {
		h.observePage("error")
		return nil, err
	}

	reviews := make([]string, 0, len(texts))
	for _, text := range texts {
		if text = strings.TrimSpace(text); text != "" {
			reviews = append(reviews, text)
		}
	}
	return reviews, nil
}

// productName reads the title of the current product page.
// The boolean is true when the site's placeholder name was used instead.
func (h *Harvester) productName(ctx context.Context, site marketplace.Site) (string, bool) {
	html, err := h.browser.PageHTML(ctx)
	if err == nil {
		var title string
		title, err = h.parser.ProductTitle(html, site.TitleSelector)
		if err == nil {
			return title, false
		}
	}
	if h.logger != nil {
		h.logger.Warn("product name unavailable, using placeholder", "placeholder", site.FallbackName, "error", err)
	}
	return site.FallbackName, true
}

func (h *Harvester) observePage(outcome string) {
	if h.metrics != nil {
		h.metrics.ObservePage(outcome)
	}
}

func (h *Harvester) debug(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, args...)
	}
}

func (h *Harvester) info(msg string, args ...any) {
	if h.logger != nil {
		h.logger.Info(msg, args...)
	}
}
