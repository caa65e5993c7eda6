package domain

import (
	"math"
	"time"
)

// Report is the aggregate verdict for one analysed product.
type Report struct {
	ID                string    `json:"id"`
	ProductID         ProductID `json:"product_id"`
	ProductName       string    `json:"product_name"`
	ProductURL        string    `json:"product_url"`
	Total             int       `json:"total"`
	FakeCount         int       `json:"fake_count"`
	GenuineCount      int       `json:"genuine_count"`
	FakePercentage    float64   `json:"fake_percentage"`
	GenuinePercentage float64   `json:"genuine_percentage"`
	CreatedAt         time.Time `json:"created_at"`
}

// Analysis bundles a report with the reviews it was computed from.
type Analysis struct {
	Report  Report
	Reviews []LabeledReview
}

// Aggregate tallies labels into fake and genuine buckets.
// Percentages are rounded to two decimals and stay zero for an empty input.
func Aggregate(productName string, labels []Label) Report {
	report := Report{ProductName: productName, Total: len(labels)}
	for _, label := range labels {
		if label.IsFake() {
			report.FakeCount++
			continue
		}
		report.GenuineCount++
	}

	if report.Total == 0 {
		return report
	}

	total := float64(report.Total)
	report.FakePercentage = roundPercent(float64(report.FakeCount) / total * 100)
	report.GenuinePercentage = roundPercent(float64(report.GenuineCount) / total * 100)
	return report
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
