package main

import (
	"net/url"
	"path/filepath"
	"strings"

	"github.com/akira02/tg.jpg/corpus"
	"github.com/google/uuid"
)

const (
	inlineMaxResults  = 10
	inlineMediaWidth  = 320
	inlineMediaHeight = 240
)

type inlinePhotoResult struct {
	Type         string `json:"type"` // "photo"
	ID           string `json:"id"`
	PhotoURL     string `json:"photo_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	PhotoWidth   int    `json:"photo_width,omitempty"`
	PhotoHeight  int    `json:"photo_height,omitempty"`
	Title        string `json:"title,omitempty"`
}

type inlineGifResult struct {
	Type         string `json:"type"` // "gif"
	ID           string `json:"id"`
	GifURL       string `json:"gif_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	GifWidth     int    `json:"gif_width,omitempty"`
	GifHeight    int    `json:"gif_height,omitempty"`
	Title        string `json:"title,omitempty"`
}

type inlineArticleResult struct {
	Type                string           `json:"type"` // "article"
	ID                  string           `json:"id"`
	Title               string           `json:"title"`
	InputMessageContent inputTextContent `json:"input_message_content"`
}

type inputTextContent struct {
	MessageText string `json:"message_text"`
}

// buildInlineResults turns ranked corpus matches into inline answer
// entries. Assets are referenced by public URL (base + corpus-relative
// path, each segment percent-encoded), the URL doubling as its own
// thumbnail. Zero matches become a single explanatory article.
func buildInlineResults(matches []corpus.Match, publicBaseURL string) []any {
	publicBaseURL = strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")

	var results []any
	for _, m := range matches {
		if len(results) >= inlineMaxResults {
			break
		}
		u := publicBaseURL + "/" + encodePathSegments(m.Asset.Rel)
		if m.Asset.Format == corpus.FormatAnimated {
			results = append(results, inlineGifResult{
				Type:         "gif",
				ID:           uuid.NewString(),
				GifURL:       u,
				ThumbnailURL: u,
				GifWidth:     inlineMediaWidth,
				GifHeight:    inlineMediaHeight,
				Title:        m.Asset.Stem,
			})
			continue
		}
		results = append(results, inlinePhotoResult{
			Type:         "photo",
			ID:           uuid.NewString(),
			PhotoURL:     u,
			ThumbnailURL: u,
			PhotoWidth:   inlineMediaWidth,
			PhotoHeight:  inlineMediaHeight,
			Title:        m.Asset.Stem,
		})
	}

	if len(results) == 0 {
		results = append(results, inlineArticleResult{
			Type:                "article",
			ID:                  uuid.NewString(),
			Title:               "No matching images found",
			InputMessageContent: inputTextContent{MessageText: "No matching images found"},
		})
	}
	return results
}

// encodePathSegments percent-encodes each segment of a slash (or OS
// separator) delimited relative path, keeping the separators literal.
func encodePathSegments(rel string) string {
	rel = filepath.ToSlash(rel)
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
