package resolver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/akira02/tg.jpg/corpus"
	"github.com/akira02/tg.jpg/imagesearch"
)

func writeCorpus(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}
	return root
}

// searchServer serves a fixed body and records whether it was hit.
func searchServer(t *testing.T, body string) (*imagesearch.Client, *bool) {
	t.Helper()
	hit := new(bool)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c := imagesearch.NewClient()
	c.HTTPClient = srv.Client()
	c.Endpoint = srv.URL
	return c, hit
}

func recordingDeliver(failures int) (*[]Payload, DeliverFunc) {
	var got []Payload
	calls := 0
	return &got, func(ctx context.Context, p Payload) error {
		got = append(got, p)
		calls++
		if calls <= failures {
			return errors.New("destination rejected payload")
		}
		return nil
	}
}

func TestResolveLocalFirst(t *testing.T) {
	t.Parallel()

	root := writeCorpus(t, "cat.jpg")
	search, searched := searchServer(t, `["https://remote.example/never.jpg",10,10]`)
	r := New(corpus.NewMatcher(root), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(0)
	err := r.ResolveAndDeliver(context.Background(), "cat", false, true, deliver)
	if err != nil {
		t.Fatalf("ResolveAndDeliver() error = %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("deliver called %d times, want 1", len(*got))
	}
	p := (*got)[0]
	if !strings.HasSuffix(p.LocalPath, "cat.jpg") {
		t.Fatalf("delivered payload = %+v, want local cat.jpg", p)
	}
	if p.Format != corpus.FormatStatic {
		t.Fatalf("delivered format = %v, want static", p.Format)
	}
	if *searched {
		t.Fatalf("remote search was invoked, want local-only resolution")
	}
}

func TestResolveRemoteWhenLocalDisabled(t *testing.T) {
	t.Parallel()

	root := writeCorpus(t, "funny dance.gif")
	search, _ := searchServer(t, `["https://remote.example/dance.gif",320,240]`)
	r := New(corpus.NewMatcher(root), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(0)
	err := r.ResolveAndDeliver(context.Background(), "funny dance", true, false, deliver)
	if err != nil {
		t.Fatalf("ResolveAndDeliver() error = %v", err)
	}
	if len(*got) != 1 {
		t.Fatalf("deliver called %d times, want 1", len(*got))
	}
	p := (*got)[0]
	if p.URL != "https://remote.example/dance.gif" {
		t.Fatalf("delivered url = %q, want extracted url", p.URL)
	}
	if p.Format != corpus.FormatAnimated {
		t.Fatalf("delivered format = %v, want animated", p.Format)
	}
}

func TestResolveRemoteWhenCorpusEmpty(t *testing.T) {
	t.Parallel()

	search, searched := searchServer(t, `["https://remote.example/dog.jpg",10,10]`)
	r := New(corpus.NewMatcher(filepath.Join(t.TempDir(), "missing")), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(0)
	err := r.ResolveAndDeliver(context.Background(), "dog", false, true, deliver)
	if err != nil {
		t.Fatalf("ResolveAndDeliver() error = %v", err)
	}
	if !*searched {
		t.Fatalf("remote search not invoked, want fallback for empty corpus")
	}
	if len(*got) != 1 || (*got)[0].URL != "https://remote.example/dog.jpg" {
		t.Fatalf("delivered = %+v, want remote url", *got)
	}
}

func TestResolveNothingExtracted(t *testing.T) {
	t.Parallel()

	search, _ := searchServer(t, `<html><body>nothing here</body></html>`)
	r := New(corpus.NewMatcher(filepath.Join(t.TempDir(), "missing")), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(0)
	err := r.ResolveAndDeliver(context.Background(), "anything", false, true, deliver)
	if err == nil {
		t.Fatalf("ResolveAndDeliver() error = nil, want exhausted")
	}
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("ResolveAndDeliver() error = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, imagesearch.ErrNoCandidates) {
		t.Fatalf("ResolveAndDeliver() error = %v, want ErrNoCandidates pass-through", err)
	}
	if len(*got) != 0 {
		t.Fatalf("deliver called %d times, want 0", len(*got))
	}
}

func TestResolveSecondCandidateWins(t *testing.T) {
	t.Parallel()

	body := `["https://remote.example/first.jpg",10,10]
["https://remote.example/second.jpg",10,10]`
	search, _ := searchServer(t, body)
	r := New(corpus.NewMatcher(filepath.Join(t.TempDir(), "missing")), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(1)
	err := r.ResolveAndDeliver(context.Background(), "anything", false, false, deliver)
	if err != nil {
		t.Fatalf("ResolveAndDeliver() error = %v", err)
	}
	if len(*got) != 2 {
		t.Fatalf("deliver called %d times, want 2", len(*got))
	}
	if (*got)[1].URL != "https://remote.example/second.jpg" {
		t.Fatalf("delivered url = %q, want second candidate", (*got)[1].URL)
	}
}

func TestResolveLocalFailuresDoNotFallThroughToRemote(t *testing.T) {
	t.Parallel()

	root := writeCorpus(t, "cat.jpg")
	search, searched := searchServer(t, `["https://remote.example/cat.jpg",10,10]`)
	r := New(corpus.NewMatcher(root), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(99)
	err := r.ResolveAndDeliver(context.Background(), "cat", false, true, deliver)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("ResolveAndDeliver() error = %v, want ErrExhausted", err)
	}
	if len(*got) != 1 {
		t.Fatalf("deliver called %d times, want 1 local attempt", len(*got))
	}
	if *searched {
		t.Fatalf("remote search was invoked after local candidates existed")
	}
}

func TestResolveLocalFormatWinsOverDeclared(t *testing.T) {
	t.Parallel()

	root := writeCorpus(t, "dance.gif")
	search, _ := searchServer(t, "")
	r := New(corpus.NewMatcher(root), search, NewFetcher(), nil)

	got, deliver := recordingDeliver(0)
	// Query declared static, asset is a gif; the asset extension wins.
	err := r.ResolveAndDeliver(context.Background(), "dance", false, true, deliver)
	if err != nil {
		t.Fatalf("ResolveAndDeliver() error = %v", err)
	}
	if (*got)[0].Format != corpus.FormatAnimated {
		t.Fatalf("delivered format = %v, want animated from asset extension", (*got)[0].Format)
	}
}

func TestResolveDownloadCandidate(t *testing.T) {
	t.Parallel()

	fetchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("gallery-bytes"))
	}))
	t.Cleanup(fetchSrv.Close)

	// The path marks the host as hotlink-blocking; bytes must be fetched
	// here rather than handed to the transport by reference.
	downloadURL := fetchSrv.URL + "/imgur.com/a.jpg"
	search, _ := searchServer(t, `["`+downloadURL+`",10,10]`)

	fetcher := NewFetcher()
	fetcher.HTTPClient = fetchSrv.Client()
	r := New(corpus.NewMatcher(filepath.Join(t.TempDir(), "missing")), search, fetcher, nil)

	got, deliver := recordingDeliver(0)
	err := r.ResolveAndDeliver(context.Background(), "gallery", false, false, deliver)
	if err != nil {
		t.Fatalf("ResolveAndDeliver() error = %v", err)
	}
	p := (*got)[0]
	if string(p.Bytes) != "gallery-bytes" {
		t.Fatalf("delivered bytes = %q, want downloaded payload", p.Bytes)
	}
	if p.URL != "" {
		t.Fatalf("delivered payload = %+v, want bytes-only", p)
	}
}

func TestResolveAbandonsOnCancelledContext(t *testing.T) {
	t.Parallel()

	root := writeCorpus(t, "cat.jpg")
	search, _ := searchServer(t, "")
	r := New(corpus.NewMatcher(root), search, NewFetcher(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, deliver := recordingDeliver(0)
	err := r.ResolveAndDeliver(ctx, "cat", false, true, deliver)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("ResolveAndDeliver() error = %v, want context.Canceled", err)
	}
	if len(*got) != 0 {
		t.Fatalf("deliver called %d times after cancellation, want 0", len(*got))
	}
}
