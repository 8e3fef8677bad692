package main

import (
	"path/filepath"
	"time"

	"github.com/akira02/tg.jpg/internal/fsstore"
)

// Resolution outcomes recorded in the delivery journal.
const (
	journalOutcomeDelivered    = "delivered"
	journalOutcomeExhausted    = "exhausted"
	journalOutcomeNoCandidates = "no_candidates"
	journalOutcomeError        = "error"
)

type deliveryRecord struct {
	Time      string `json:"time"`
	ChatID    int64  `json:"chat_id"`
	Query     string `json:"query"`
	Animated  bool   `json:"animated"`
	LocalMode bool   `json:"local_mode"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// deliveryJournal appends one JSONL record per concluded resolution.
// Append faults are the caller's to log; a journal problem never fails
// a resolution.
type deliveryJournal struct {
	w *fsstore.JSONLWriter
}

func newDeliveryJournal(stateDir string, rotateMaxBytes int64) (*deliveryJournal, error) {
	w, err := fsstore.NewJSONLWriter(
		filepath.Join(stateDir, "journal", "deliveries.jsonl"),
		fsstore.JSONLOptions{RotateMaxBytes: rotateMaxBytes},
	)
	if err != nil {
		return nil, err
	}
	return &deliveryJournal{w: w}, nil
}

func (j *deliveryJournal) Record(chatID int64, query string, animated, localMode bool, outcome string, resolveErr error) error {
	if j == nil || j.w == nil {
		return nil
	}
	rec := deliveryRecord{
		Time:      time.Now().UTC().Format(time.RFC3339),
		ChatID:    chatID,
		Query:     query,
		Animated:  animated,
		LocalMode: localMode,
		Outcome:   outcome,
	}
	if resolveErr != nil {
		rec.Error = resolveErr.Error()
	}
	return j.w.AppendJSON(rec)
}

func (j *deliveryJournal) Close() error {
	if j == nil {
		return nil
	}
	return j.w.Close()
}
