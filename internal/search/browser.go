package search

import (
	"context"

	"github.com/naozine/nz-html-fetch/pkg/htmlfetch"
)

// BrowserFetcher fetches pages through a headless browser. Use it when
// plain HTTP gets a consent interstitial or a JS-only rendering of the
// results page.
type BrowserFetcher struct {
	fetcher *htmlfetch.Fetcher
}

// NewBrowserFetcher starts a headless browser session.
func NewBrowserFetcher() (*BrowserFetcher, error) {
	fetcher := htmlfetch.New(htmlfetch.WithStealth(true))
	if err := fetcher.Start(); err != nil {
		return nil, err
	}
	return &BrowserFetcher{fetcher: fetcher}, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	result, err := f.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

func (f *BrowserFetcher) Close() error {
	if f.fetcher != nil {
		return f.fetcher.Close()
	}
	return nil
}
