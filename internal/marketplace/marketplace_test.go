package marketplace

import (
	"testing"

	"ReviewScanner/internal/config"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := FromConfig([]config.MarketplaceConfig{
		config.AmazonIndia(),
		{Name: "amazon.com", BaseURL: "https://www.amazon.com/", Hosts: []string{"amazon.com"}},
	}, "amazon.in")
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	return reg
}

func TestSiteURLs(t *testing.T) {
	t.Parallel()

	site, err := testRegistry(t).Resolve("amazon.in")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got := site.ProductURL("B0ABCDEFGH"); got != "https://www.amazon.in/dp/B0ABCDEFGH" {
		t.Fatalf("unexpected product url: %s", got)
	}
	if got := site.ReviewsURL("B0ABCDEFGH", 3); got != "https://www.amazon.in/product-reviews/B0ABCDEFGH?pageNumber=3" {
		t.Fatalf("unexpected reviews url: %s", got)
	}
	if got := site.HomeURL(); got != "https://www.amazon.in/" {
		t.Fatalf("unexpected home url: %s", got)
	}
}

func TestForURL(t *testing.T) {
	t.Parallel()

	reg := testRegistry(t)
	cases := map[string]string{
		"https://www.amazon.com/dp/B0ABCDEFGH": "amazon.com",
		"https://amazon.com/x/dp/B0ABCDEFGH":   "amazon.com",
		"https://www.amazon.in/dp/B0ABCDEFGH":  "amazon.in",
		"https://shop.example.org/dp/B0ABCDEF": "amazon.in",
		"not a url":                            "amazon.in",
	}
	for raw, want := range cases {
		site, err := reg.ForURL(raw)
		if err != nil {
			t.Fatalf("ForURL(%q): %v", raw, err)
		}
		if site.Name != want {
			t.Fatalf("ForURL(%q) = %s, want %s", raw, site.Name, want)
		}
	}
}

func TestFromConfigFillsMarkupDefaults(t *testing.T) {
	t.Parallel()

	site, err := testRegistry(t).Resolve("amazon.com")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if site.ReviewSelector != "span[data-hook='review-body']" || site.FallbackName != "Amazon_Product" {
		t.Fatalf("defaults not applied: %+v", site)
	}
	if got := site.ProductURL("B0ABCDEFGH"); got != "https://www.amazon.com/dp/B0ABCDEFGH" {
		t.Fatalf("unexpected product url: %s", got)
	}
}

func TestFromConfigRejectsUnknownDefault(t *testing.T) {
	t.Parallel()

	if _, err := FromConfig([]config.MarketplaceConfig{config.AmazonIndia()}, "ebay"); err == nil {
		t.Fatalf("expected error for unknown default marketplace")
	}
}
