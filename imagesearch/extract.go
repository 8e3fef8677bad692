package imagesearch

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// Mobile result pages embed ["<url>", width, height] triples in script
	// payloads; this is the richest and most stable signal when present.
	structuredArrayRe = regexp.MustCompile(`\["(https?://[^"]+\.(?:jpg|jpeg|png|gif)[^"]*)"\s*,\s*\d+\s*,\s*\d+\]`)
	quotedURLRe       = regexp.MustCompile(`"(https?://[^"]+\.(?:jpg|jpeg|png|gif)[^"]*)"`)
	redirectParamRe   = regexp.MustCompile(`/imgres\?[^"'\s]*?imgurl=([^&"'\s]+)`)

	// Script-embedded URLs carry their separators as JSON unicode
	// escapes; HTML entities show up in some response variants too.
	escapeReplacer = strings.NewReplacer(
		`\u0026`, "&",
		`\u003d`, "=",
		"&amp;", "&",
		"&#61;", "=",
	)
)

// providerAssetMarkers identify the provider's own thumbnail and chrome
// URLs, which raw scans would otherwise rank ahead of genuine results.
var providerAssetMarkers = []string{"encrypted-tbn", "gstatic", "googlelogo"}

func isProviderAsset(u string) bool {
	for _, marker := range providerAssetMarkers {
		if strings.Contains(u, marker) {
			return true
		}
	}
	return false
}

// extractImageURLs runs the strategies in priority order and returns the
// output of the first one that yields anything. Results are never merged
// across strategies; order within a strategy is first-seen.
func extractImageURLs(body string) []string {
	urls := extractStructuredArrays(body)
	if len(urls) == 0 {
		urls = extractQuotedURLs(body)
	}
	if len(urls) == 0 {
		urls = extractRedirectParams(body)
	}
	if len(urls) == 0 {
		urls = extractEmbeddedAttributes(body)
	}
	return urls
}

func extractStructuredArrays(body string) []string {
	return extractByPattern(body, structuredArrayRe)
}

func extractQuotedURLs(body string) []string {
	return extractByPattern(body, quotedURLRe)
}

func extractByPattern(body string, re *regexp.Regexp) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(body, -1) {
		if len(out) >= MaxResults {
			break
		}
		u := m[1]
		if isProviderAsset(u) {
			continue
		}
		out = append(out, escapeReplacer.Replace(u))
	}
	return out
}

// extractRedirectParams recovers original-image URLs carried
// percent-encoded inside the provider's redirect links. Any query string
// left on the decoded URL belongs to the redirect, not the image, and is
// dropped.
func extractRedirectParams(body string) []string {
	var out []string
	for _, m := range redirectParamRe.FindAllStringSubmatch(body, -1) {
		if len(out) >= MaxResults {
			break
		}
		decoded, err := url.QueryUnescape(m[1])
		if err != nil {
			continue
		}
		if i := strings.IndexByte(decoded, '?'); i >= 0 {
			decoded = decoded[:i]
		}
		if decoded == "" || isProviderAsset(decoded) {
			continue
		}
		out = append(out, decoded)
	}
	return out
}

// extractEmbeddedAttributes walks the parsed document for data-ou
// attributes, which some desktop response variants use to carry the
// original image URL.
func extractEmbeddedAttributes(body string) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(out) >= MaxResults {
			return
		}
		if n.Type == html.ElementNode {
			u := strings.TrimSpace(attr(n, "data-ou"))
			if u != "" && !isProviderAsset(u) {
				out = append(out, u)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}
