package resolver

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akira02/tg.jpg/corpus"
)

// Hosts that gate images behind a browser check get a desktop identity.
const downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const defaultMaxDownloadBytes = 10 << 20

// FetchError reports a failed download-side materialization. It is
// recoverable: the orchestrator skips the candidate and tries the next.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher materializes candidates into payloads.
type Fetcher struct {
	HTTPClient *http.Client
	UserAgent  string
	MaxBytes   int64
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		UserAgent:  downloadUserAgent,
		MaxBytes:   defaultMaxDownloadBytes,
	}
}

// Materialize produces the deliverable payload for a candidate. Local
// assets keep their own format; remote payloads carry the declared one.
// Direct links are validated but not fetched, the transport fetches by
// reference.
func (f *Fetcher) Materialize(ctx context.Context, cand Candidate, declared corpus.Format) (Payload, error) {
	switch cand.Kind {
	case CandidateLocal:
		return Payload{LocalPath: cand.Asset.Path, Format: cand.Asset.Format}, nil
	case CandidateRemoteDownload:
		if strings.HasPrefix(cand.URL, "data:image/") {
			data, err := decodeDataURI(cand.URL)
			if err != nil {
				return Payload{}, err
			}
			return Payload{Bytes: data, Format: declared}, nil
		}
		data, err := f.Download(ctx, cand.URL)
		if err != nil {
			return Payload{}, err
		}
		return Payload{Bytes: data, Format: declared}, nil
	default:
		parsed, err := url.Parse(cand.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return Payload{}, fmt.Errorf("candidate url %q is not absolute", cand.URL)
		}
		return Payload{URL: cand.URL, Format: declared}, nil
	}
}

// Download fetches the image bytes with a browser identity. Any
// transport fault or non-success status is a FetchError.
func (f *Fetcher) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxDownloadBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if int64(len(data)) > maxBytes {
		return nil, &FetchError{URL: rawURL, Err: fmt.Errorf("body exceeds %d bytes", maxBytes)}
	}
	return data, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	_, encoded, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("data uri has no payload")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode data uri: %w", err)
	}
	return data, nil
}
