package imagesearch

import (
	"fmt"
	"strings"
	"testing"
)

func TestExtractStrategyPriority(t *testing.T) {
	t.Parallel()

	body := `<script>var d=[["https://a.example/one.jpg",300,200]];</script>
<span>"https://b.example/two.jpg"</span>`
	got := extractImageURLs(body)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs() = %v, want exactly one url", got)
	}
	if got[0] != "https://a.example/one.jpg" {
		t.Fatalf("extractImageURLs()[0] = %q, want structured-array result", got[0])
	}
}

func TestExtractStructuredArrayDecodesEscapes(t *testing.T) {
	t.Parallel()

	body := `["https://a.example/img.jpg?a\u003d1\u0026b\u003d2",640,480]`
	got := extractImageURLs(body)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs() = %v, want one url", got)
	}
	if want := "https://a.example/img.jpg?a=1&b=2"; got[0] != want {
		t.Fatalf("extractImageURLs()[0] = %q, want %q", got[0], want)
	}

	entityBody := `["https://a.example/img.jpg?a&#61;1&amp;b&#61;2",640,480]`
	got = extractImageURLs(entityBody)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs(entities) = %v, want one url", got)
	}
	if want := "https://a.example/img.jpg?a=1&b=2"; got[0] != want {
		t.Fatalf("extractImageURLs(entities)[0] = %q, want %q", got[0], want)
	}
}

func TestExtractQuotedURLFallback(t *testing.T) {
	t.Parallel()

	body := `<img src="https://cdn.example/cats/tabby.png"> and nothing structured`
	got := extractImageURLs(body)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs() = %v, want one url", got)
	}
	if want := "https://cdn.example/cats/tabby.png"; got[0] != want {
		t.Fatalf("extractImageURLs()[0] = %q, want %q", got[0], want)
	}
}

func TestExtractRedirectParam(t *testing.T) {
	t.Parallel()

	body := `<a href="/imgres?imgurl=https%3A%2F%2Fsite.example%2Fpic.jpg%3Fw%3D1200&imgrefurl=https%3A%2F%2Fsite.example%2Fpage">result</a>`
	got := extractImageURLs(body)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs() = %v, want one url", got)
	}
	// Percent-decoded, trailing query stripped.
	if want := "https://site.example/pic.jpg"; got[0] != want {
		t.Fatalf("extractImageURLs()[0] = %q, want %q", got[0], want)
	}
}

func TestExtractEmbeddedAttribute(t *testing.T) {
	t.Parallel()

	body := `<html><body><div class="r"><img data-ou="https://site.example/original-photo" src="thumb"></div></body></html>`
	got := extractImageURLs(body)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs() = %v, want one url", got)
	}
	if want := "https://site.example/original-photo"; got[0] != want {
		t.Fatalf("extractImageURLs()[0] = %q, want %q", got[0], want)
	}
}

func TestExtractFiltersProviderAssets(t *testing.T) {
	t.Parallel()

	body := `["https://encrypted-tbn0.gstatic.com/images?q=x.jpg",100,100]
["https://real.example/photo.jpg",800,600]
["https://www.google.com/logos/googlelogo_color.png",50,50]`
	got := extractImageURLs(body)
	if len(got) != 1 {
		t.Fatalf("extractImageURLs() = %v, want one url", got)
	}
	if want := "https://real.example/photo.jpg"; got[0] != want {
		t.Fatalf("extractImageURLs()[0] = %q, want %q", got[0], want)
	}
}

func TestExtractFilterAppliesToEveryStrategy(t *testing.T) {
	t.Parallel()

	bodies := []string{
		`["https://encrypted-tbn0.example/a.jpg",10,10]`,
		`"https://x.gstatic.com/b.png"`,
		`<a href="/imgres?imgurl=https%3A%2F%2Fy.example%2Fgooglelogo_big.png&next=1">x</a>`,
		`<img data-ou="https://encrypted-tbn9.example/thumb">`,
	}
	for i, body := range bodies {
		if got := extractImageURLs(body); len(got) != 0 {
			t.Fatalf("extractImageURLs(body %d) = %v, want empty", i, got)
		}
	}
}

func TestExtractCapsResults(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < MaxResults+5; i++ {
		fmt.Fprintf(&b, "[\"https://site.example/p%02d.jpg\",640,480]\n", i)
	}
	got := extractImageURLs(b.String())
	if len(got) != MaxResults {
		t.Fatalf("extractImageURLs() returned %d urls, want %d", len(got), MaxResults)
	}
	// First-seen order doubles as rank.
	for i, u := range got {
		if want := fmt.Sprintf("https://site.example/p%02d.jpg", i); u != want {
			t.Fatalf("extractImageURLs()[%d] = %q, want %q", i, u, want)
		}
	}
}

func TestExtractEmptyBody(t *testing.T) {
	t.Parallel()

	if got := extractImageURLs(""); len(got) != 0 {
		t.Fatalf("extractImageURLs(empty) = %v, want empty", got)
	}
	if got := extractImageURLs("<html><body>no images here</body></html>"); len(got) != 0 {
		t.Fatalf("extractImageURLs(no matches) = %v, want empty", got)
	}
}
