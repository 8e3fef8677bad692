// Package resolver turns a query into ranked image candidates and walks
// them in order until one delivers. Local corpus matches, directly
// linkable remote URLs, and hosts that must be downloaded first are all
// one candidate stream; heterogeneous failures skip to the next entry.
package resolver

import (
	"strings"

	"github.com/akira02/tg.jpg/corpus"
)

// SourceKind says how a remote URL becomes deliverable.
type SourceKind int

const (
	// DirectLink URLs are handed to the transport by reference.
	DirectLink SourceKind = iota
	// RequiresDownload URLs must be fetched here first; the host refuses
	// hotlinked requests, or the payload is inline in the URL itself.
	RequiresDownload
)

// Classify picks the source kind for a remote URL. Imgur serves images
// only to browser-identified requests, and data URIs carry their bytes
// inline, so both are download-side.
func Classify(rawURL string) SourceKind {
	if strings.HasPrefix(rawURL, "data:image/") {
		return RequiresDownload
	}
	if strings.Contains(rawURL, "imgur.com") {
		return RequiresDownload
	}
	return DirectLink
}

type CandidateKind int

const (
	CandidateLocal CandidateKind = iota
	CandidateRemoteDirect
	CandidateRemoteDownload
)

// Candidate is one not-yet-delivered image source. Asset is set for
// CandidateLocal, URL for the remote kinds.
type Candidate struct {
	Kind  CandidateKind
	Asset corpus.Asset
	URL   string
}

func LocalCandidate(asset corpus.Asset) Candidate {
	return Candidate{Kind: CandidateLocal, Asset: asset}
}

func RemoteCandidate(rawURL string) Candidate {
	if Classify(rawURL) == RequiresDownload {
		return Candidate{Kind: CandidateRemoteDownload, URL: rawURL}
	}
	return Candidate{Kind: CandidateRemoteDirect, URL: rawURL}
}

func (c Candidate) String() string {
	if c.Kind == CandidateLocal {
		return "local:" + c.Asset.Rel
	}
	return c.URL
}

// Payload is one deliverable image source. Exactly one of LocalPath, URL
// and Bytes is set; Format is what the transport should send it as.
type Payload struct {
	LocalPath string
	URL       string
	Bytes     []byte
	Format    corpus.Format
}
