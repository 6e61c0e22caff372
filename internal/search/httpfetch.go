package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	requestTimeout = 10 * time.Second
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// HTTPFetcher fetches pages with a plain HTTP client. Region and
// language preferences ride on the PREF cookie and Accept-Language
// header the same way a browser session would set them.
type HTTPFetcher struct {
	client   *http.Client
	region   string
	language string
}

// NewHTTPFetcher creates an HTTP fetcher. region is a two-letter country
// code ("ES"), language a language code ("es"); both may be empty.
func NewHTTPFetcher(region, language string) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: requestTimeout},
		region:   region,
		language: language,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", userAgent)
	if f.language != "" {
		req.Header.Set("Accept-Language", f.language+";q=0.9,en;q=0.8")
	} else {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}

	if pref := f.prefCookie(); pref != "" {
		req.AddCookie(&http.Cookie{Name: "PREF", Value: pref})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (f *HTTPFetcher) prefCookie() string {
	pref := ""
	if f.region != "" {
		pref = "gl=" + f.region
	}
	if f.language != "" {
		if pref != "" {
			pref += "&"
		}
		pref += "hl=" + f.language
	}
	return pref
}

func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
