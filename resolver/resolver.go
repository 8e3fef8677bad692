package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/akira02/tg.jpg/corpus"
	"github.com/akira02/tg.jpg/imagesearch"
)

// ErrExhausted means candidates existed but none of them delivered.
// Terminal for one resolution, silent toward the user by design.
var ErrExhausted = errors.New("resolver: no deliverable candidate")

// DeliverFunc sends one payload to the destination. The messaging layer
// injects it; the resolver never talks to the transport directly.
type DeliverFunc func(ctx context.Context, p Payload) error

type Resolver struct {
	matcher *corpus.Matcher
	search  *imagesearch.Client
	fetcher *Fetcher
	logger  *slog.Logger
}

func New(matcher *corpus.Matcher, search *imagesearch.Client, fetcher *Fetcher, logger *slog.Logger) *Resolver {
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{matcher: matcher, search: search, fetcher: fetcher, logger: logger}
}

// ResolveAndDeliver runs one resolution: rank candidates (local corpus
// first when localMode is on, remote search only when the corpus
// yielded nothing or is off), then attempt them strictly in order until
// the first delivery succeeds. Failed attempts are logged and skipped,
// never retried. Returns nil when delivered; ErrExhausted when every
// candidate failed; a corpus scan fault or imagesearch.ErrNoCandidates
// pass through so callers can tell "nothing found" from "all failed".
func (r *Resolver) ResolveAndDeliver(ctx context.Context, query string, declaredAnimated bool, localMode bool, deliver DeliverFunc) error {
	declared := corpus.FormatStatic
	if declaredAnimated {
		declared = corpus.FormatAnimated
	}

	var candidates []Candidate
	if localMode {
		matches, err := r.matcher.FindMatches(query)
		if err != nil {
			return err
		}
		for _, m := range matches {
			candidates = append(candidates, LocalCandidate(m.Asset))
		}
	}
	// Local matches, even ones that go on to fail delivery, suppress the
	// remote search entirely.
	if len(candidates) == 0 {
		urls, err := r.search.Search(ctx, query, declaredAnimated)
		if err != nil {
			if errors.Is(err, imagesearch.ErrNoCandidates) {
				// Still an exhausted resolution, but callers can tell
				// "nothing found" apart from "found but all failed".
				return fmt.Errorf("%w: %w", ErrExhausted, err)
			}
			return err
		}
		for _, u := range urls {
			candidates = append(candidates, RemoteCandidate(u))
		}
	}

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := r.fetcher.Materialize(ctx, cand, declared)
		if err != nil {
			r.logger.Warn("resolve_materialize_error", "candidate", cand.String(), "error", err.Error())
			continue
		}
		if err := deliver(ctx, payload); err != nil {
			r.logger.Warn("resolve_deliver_error", "candidate", cand.String(), "error", err.Error())
			continue
		}
		r.logger.Info("resolve_delivered", "candidate", cand.String(), "attempt", i+1, "format", payload.Format.String())
		return nil
	}
	return ErrExhausted
}
