package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ReviewScanner/internal/ports"
)

// ReviewPage reads the product title out of rendered HTML.
type ReviewPage struct{}

var _ ports.PageParser = ReviewPage{}

// NewReviewPage returns the goquery-backed parser.
func NewReviewPage() ReviewPage {
	return ReviewPage{}
}

// ProductTitle returns the trimmed text of the first element matching selector.
// An empty result is reported as an error so callers can fall back.
func (ReviewPage) ProductTitle(html, selector string) (string, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return "", err
	}

	title := collapseSpace(doc.Find(selector).First().Text())
	if title == "" {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	return title, nil
}

func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
