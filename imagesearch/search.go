// Package imagesearch extracts candidate image URLs from public image
// search results. The upstream HTML is unversioned and changes without
// notice, so extraction is a tiered set of strategies with fallback and
// an empty result is an expected outcome, not a fault.
package imagesearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultEndpoint       = "https://www.google.com/search"
	defaultLocale         = "zh-TW"
	defaultUserAgent      = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	defaultAcceptLanguage = "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7"
	defaultMaxBodyBytes   = 4 << 20
)

// MaxResults caps how many URLs one search may hand downstream, bounding
// the attempt volume against the scraped source.
const MaxResults = 10

// ErrNoCandidates reports that every extraction strategy came up empty.
// Callers treat it as "nothing found"; it commonly means the upstream
// search html format changed.
var ErrNoCandidates = errors.New("imagesearch: no image urls extracted")

// Client queries an image search endpoint with a fixed browser identity.
// The identity fields are protocol details the upstream expects, not
// tunables with semantic meaning; they are swappable for tests.
type Client struct {
	HTTPClient     *http.Client
	Endpoint       string
	Locale         string
	UserAgent      string
	Accept         string
	AcceptLanguage string
	MaxBodyBytes   int64
}

func NewClient() *Client {
	return &Client{
		HTTPClient:     &http.Client{Timeout: 20 * time.Second},
		Endpoint:       defaultEndpoint,
		Locale:         defaultLocale,
		UserAgent:      defaultUserAgent,
		Accept:         defaultAccept,
		AcceptLanguage: defaultAcceptLanguage,
		MaxBodyBytes:   defaultMaxBodyBytes,
	}
}

// Search issues one request and returns extracted candidate URLs in
// first-seen order, at most MaxResults. animated selects the animated
// format filter instead of the still one.
func (c *Client) Search(ctx context.Context, query string, animated bool) ([]string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("image search endpoint: %w", err)
	}
	qs := u.Query()
	qs.Set("q", query)
	if animated {
		qs.Set("tbs", "ift:gif")
	} else {
		qs.Set("tbs", "ift:jpg")
	}
	qs.Set("tbm", "isch")
	qs.Set("hl", c.Locale)
	u.RawQuery = qs.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("image search request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", c.Accept)
	req.Header.Set("Accept-Language", c.AcceptLanguage)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image search request: %w", err)
	}
	maxBody := c.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("image search response: %w", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := raw
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, fmt.Errorf("image search status %d: %s", resp.StatusCode, bytes.ToValidUTF8(snippet, []byte("?")))
	}

	urls := extractImageURLs(string(raw))
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: the search html format may have changed", ErrNoCandidates)
	}
	return urls, nil
}
