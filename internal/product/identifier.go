package product

import (
	"regexp"

	"ReviewScanner/internal/domain"
)

var identifierExpr = regexp.MustCompile(`/dp/([A-Z0-9]{10})`)

// ExtractIdentifier returns the leftmost /dp/<ID> token of a product URL.
// The boolean is false when the URL carries no well-formed identifier.
func ExtractIdentifier(rawURL string) (domain.ProductID, bool) {
	match := identifierExpr.FindStringSubmatch(rawURL)
	if len(match) < 2 {
		return "", false
	}
	return domain.ProductID(match[1]), true
}
