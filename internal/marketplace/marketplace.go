package marketplace

import (
	"fmt"
	"net/url"
	"strings"

	"ReviewScanner/internal/config"
	"ReviewScanner/internal/domain"
)

// Site describes a storefront: where its pages live and how reviews are marked up.
type Site struct {
	Name           string
	BaseURL        string
	Hosts          []string
	ProductPath    string
	ReviewsPath    string
	ReviewSelector string
	TitleSelector  string
	FallbackName   string
}

// HomeURL is the landing page a fresh session is pointed at.
func (s Site) HomeURL() string {
	return strings.TrimSuffix(s.BaseURL, "/") + "/"
}

// ProductURL builds the product detail page URL.
func (s Site) ProductURL(id domain.ProductID) string {
	return strings.TrimSuffix(s.BaseURL, "/") + fmt.Sprintf(s.ProductPath, id)
}

// ReviewsURL builds the URL of the given 1-based reviews page.
func (s Site) ReviewsURL(id domain.ProductID, page int) string {
	return strings.TrimSuffix(s.BaseURL, "/") + fmt.Sprintf(s.ReviewsPath, id, page)
}

// Registry keeps a mapping from site names to their descriptions.
type Registry struct {
	sites       map[string]Site
	order       []string
	defaultSite string
}

// NewRegistry builds an empty registry; defaultSite is used for unknown hosts.
func NewRegistry(defaultSite string) *Registry {
	return &Registry{sites: map[string]Site{}, defaultSite: defaultSite}
}

// FromConfig registers every configured marketplace.
func FromConfig(sites []config.MarketplaceConfig, defaultSite string) (*Registry, error) {
	reg := NewRegistry(defaultSite)
	for _, site := range sites {
		if site.Name == "" || site.BaseURL == "" {
			return nil, fmt.Errorf("marketplace %q: name and baseUrl are required", site.Name)
		}
		reg.Register(Site{
			Name:           site.Name,
			BaseURL:        site.BaseURL,
			Hosts:          site.Hosts,
			ProductPath:    orDefault(site.ProductPath, "/dp/%s"),
			ReviewsPath:    orDefault(site.ReviewsPath, "/product-reviews/%s?pageNumber=%d"),
			ReviewSelector: orDefault(site.ReviewSelector, "span[data-hook='review-body']"),
			TitleSelector:  orDefault(site.TitleSelector, "#productTitle"),
			FallbackName:   orDefault(site.FallbackName, "Amazon_Product"),
		})
	}
	if _, err := reg.Default(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Register adds or replaces a site.
func (r *Registry) Register(site Site) {
	if r.sites == nil {
		r.sites = map[string]Site{}
	}
	if _, exists := r.sites[site.Name]; !exists {
		r.order = append(r.order, site.Name)
	}
	r.sites[site.Name] = site
}

// Resolve returns a site by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Site, error) {
	if site, ok := r.sites[name]; ok {
		return site, nil
	}
	return Site{}, fmt.Errorf("marketplace %s is not registered", name)
}

// Default returns the fallback site.
func (r *Registry) Default() (Site, error) {
	if r.defaultSite == "" && len(r.order) > 0 {
		return r.sites[r.order[0]], nil
	}
	return r.Resolve(r.defaultSite)
}

// ForURL picks the site whose hosts match the URL, falling back to the default site.
func (r *Registry) ForURL(rawURL string) (Site, error) {
	if parsed, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && parsed.Host != "" {
		host := strings.ToLower(parsed.Hostname())
		for _, name := range r.order {
			site := r.sites[name]
			for _, candidate := range site.Hosts {
				if strings.EqualFold(candidate, host) || strings.EqualFold("www."+candidate, host) {
					return site, nil
				}
			}
		}
	}
	return r.Default()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
