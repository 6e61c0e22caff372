// Package search implements the YouTube search provider: it fetches the
// results page for a keyword and extracts (title, link, duration)
// records from it.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ytharvest/internal/models"
)

// Fetcher retrieves the raw HTML of a URL. Two implementations exist:
// plain HTTP and a headless browser for pages that refuse plain clients.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// DurationResolver resolves the true duration of a video when the
// results page carried none.
type DurationResolver interface {
	ResolveDuration(ctx context.Context, url string) (time.Duration, error)
}

// Provider searches YouTube by keyword.
type Provider struct {
	fetcher  Fetcher
	resolver DurationResolver
	log      zerolog.Logger
}

// NewProvider creates a search provider. resolver may be nil, in which
// case results without page durations keep an empty duration and are
// excluded later by the duration filter.
func NewProvider(fetcher Fetcher, resolver DurationResolver, log zerolog.Logger) *Provider {
	return &Provider{fetcher: fetcher, resolver: resolver, log: log}
}

// Search fetches up to maxResults results for the keyword.
func (p *Provider) Search(ctx context.Context, keyword string, maxResults int) ([]models.SearchResult, error) {
	html, err := p.fetcher.Fetch(ctx, resultsURL(keyword))
	if err != nil {
		return nil, fmt.Errorf("fetch search results: %w", err)
	}

	results := extractResults(html, maxResults)
	if len(results) == 0 {
		return nil, fmt.Errorf("no results extracted for %q", keyword)
	}

	// Fill in durations the results page did not carry.
	for i := range results {
		if _, err := models.ParseClock(results[i].Duration); err == nil {
			continue
		}
		if p.resolver == nil {
			continue
		}
		d, err := p.resolver.ResolveDuration(ctx, results[i].Link)
		if err != nil {
			p.log.Warn().Err(err).Str("link", results[i].Link).Msg("could not resolve duration")
			continue
		}
		results[i].Duration = models.FormatClock(d)
	}

	return results, nil
}

// Close releases the underlying fetcher.
func (p *Provider) Close() error {
	return p.fetcher.Close()
}

// NewFetcher builds a fetcher by kind: "http" (default) or "browser".
// The browser fetcher ignores region/language; its session picks them up
// from the browser locale.
func NewFetcher(kind, region, language string) (Fetcher, error) {
	if kind == "browser" {
		return NewBrowserFetcher()
	}
	return NewHTTPFetcher(region, language), nil
}
