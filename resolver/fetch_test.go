package resolver

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akira02/tg.jpg/corpus"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want SourceKind
	}{
		{"https://i.imgur.com/abc.jpg", RequiresDownload},
		{"https://imgur.com/gallery/abc.png", RequiresDownload},
		{"data:image/png;base64,AAAA", RequiresDownload},
		{"https://cdn.example/photo.jpg", DirectLink},
		{"https://example.com/cat.gif", DirectLink},
	}
	for _, tc := range cases {
		if got := Classify(tc.url); got != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestMaterializeLocalKeepsAssetFormat(t *testing.T) {
	t.Parallel()

	f := NewFetcher()
	cand := LocalCandidate(corpus.Asset{Path: "/corpus/funny dance.gif", Rel: "funny dance.gif", Format: corpus.FormatAnimated})

	// Declared static, but the asset's own extension wins for local.
	p, err := f.Materialize(context.Background(), cand, corpus.FormatStatic)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if p.LocalPath != "/corpus/funny dance.gif" {
		t.Fatalf("Materialize() path = %q, want asset path", p.LocalPath)
	}
	if p.Format != corpus.FormatAnimated {
		t.Fatalf("Materialize() format = %v, want animated", p.Format)
	}
}

func TestMaterializeDirectLink(t *testing.T) {
	t.Parallel()

	f := NewFetcher()
	p, err := f.Materialize(context.Background(), RemoteCandidate("https://cdn.example/cat.jpg"), corpus.FormatStatic)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if p.URL != "https://cdn.example/cat.jpg" {
		t.Fatalf("Materialize() url = %q, want candidate url", p.URL)
	}
	if len(p.Bytes) != 0 || p.LocalPath != "" {
		t.Fatalf("Materialize() payload = %+v, want url-only", p)
	}
}

func TestMaterializeRejectsRelativeURL(t *testing.T) {
	t.Parallel()

	f := NewFetcher()
	for _, raw := range []string{"not a url at all", "relative/path.jpg", "//missing-scheme.example/a.png"} {
		if _, err := f.Materialize(context.Background(), RemoteCandidate(raw), corpus.FormatStatic); err == nil {
			t.Fatalf("Materialize(%q) error = nil, want invalid url error", raw)
		}
	}
}

func TestMaterializeDataURI(t *testing.T) {
	t.Parallel()

	f := NewFetcher()
	raw := []byte{0x89, 'P', 'N', 'G'}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)

	p, err := f.Materialize(context.Background(), RemoteCandidate(uri), corpus.FormatStatic)
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if string(p.Bytes) != string(raw) {
		t.Fatalf("Materialize() bytes = %v, want decoded payload", p.Bytes)
	}

	if _, err := f.Materialize(context.Background(), RemoteCandidate("data:image/png;base64"), corpus.FormatStatic); err == nil {
		t.Fatalf("Materialize(no payload) error = nil, want error")
	}
	if _, err := f.Materialize(context.Background(), RemoteCandidate("data:image/png;base64,@@@"), corpus.FormatStatic); err == nil {
		t.Fatalf("Materialize(bad base64) error = nil, want error")
	}
}

func TestDownload(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher()
	f.HTTPClient = srv.Client()
	data, err := f.Download(context.Background(), srv.URL+"/a.jpg")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("Download() = %q, want image-bytes", data)
	}
	if gotUA != downloadUserAgent {
		t.Fatalf("Download() User-Agent = %q, want browser identity", gotUA)
	}
}

func TestDownloadNonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher()
	f.HTTPClient = srv.Client()
	_, err := f.Download(context.Background(), srv.URL+"/a.jpg")
	if err == nil {
		t.Fatalf("Download() error = nil, want FetchError")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Download() error = %v, want *FetchError", err)
	}
	if fe.StatusCode != http.StatusForbidden {
		t.Fatalf("Download() status = %d, want %d", fe.StatusCode, http.StatusForbidden)
	}
}

func TestDownloadOversizeBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	f := NewFetcher()
	f.HTTPClient = srv.Client()
	f.MaxBytes = 16
	_, err := f.Download(context.Background(), srv.URL+"/big.jpg")
	if err == nil {
		t.Fatalf("Download() error = nil, want oversize error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("Download() error = %v, want *FetchError", err)
	}
}
