package domain

import "time"

// ProductID is the 10-character catalogue identifier found after /dp/ in a product URL.
type ProductID string

// HarvestResult is the ordered list of review texts collected for one product.
type HarvestResult struct {
	ProductID    ProductID
	ProductName  string
	NameFallback bool
	Reviews      []string
	Pages        int
}

// Empty reports whether nothing usable was scraped.
func (h HarvestResult) Empty() bool {
	return len(h.Reviews) == 0
}

// LabeledReview keeps the raw text next to its normalized form and verdict.
type LabeledReview struct {
	Text       string `json:"text"`
	Normalized string `json:"normalized"`
	Label      Label  `json:"label"`
}

// SessionState describes the lifecycle of the shared browser session.
type SessionState string

const (
	SessionAbsent   SessionState = "absent"
	SessionActive   SessionState = "active"
	SessionUnusable SessionState = "unusable"
)

// SessionHandle identifies an opened browser session.
type SessionHandle struct {
	ID       string    `json:"id"`
	HomeURL  string    `json:"home_url"`
	OpenedAt time.Time `json:"opened_at"`
}
