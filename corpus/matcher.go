package corpus

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Match scoring. The magnitudes are empirically tuned; relative order is
// what matters, so they are kept fixed.
const (
	// Stems shorter than this many runes only ever match the query exactly.
	ShortStemRunes = 3

	ScoreShortStemExact    = 2000
	ScoreQueryContainsStem = 1000
	ScoreStemContainsQuery = 900
	ScoreWordOverlap       = 100
	ScoreWordPartial       = 50
)

type Format int

const (
	FormatStatic Format = iota
	FormatAnimated
)

func (f Format) String() string {
	if f == FormatAnimated {
		return "animated"
	}
	return "static"
}

// FormatForExt derives the media format from a file extension. The leading
// dot is optional and case is ignored.
func FormatForExt(ext string) Format {
	if strings.EqualFold(strings.TrimPrefix(ext, "."), "gif") {
		return FormatAnimated
	}
	return FormatStatic
}

// Asset is one file of the corpus. Stem is the normalized filename stem;
// Rel is the path relative to the corpus root.
type Asset struct {
	Path   string
	Rel    string
	Stem   string
	Format Format
}

type Match struct {
	Asset Asset
	Score int
}

// Matcher scores queries against the files under a corpus root. The corpus
// is read-only and re-walked on every call, so edits to it are picked up
// without invalidation.
type Matcher struct {
	root string
}

func NewMatcher(root string) *Matcher {
	return &Matcher{root: strings.TrimSpace(root)}
}

func (m *Matcher) Root() string {
	return m.root
}

// FindMatches walks the corpus and returns every file that scores against
// the query, highest score first, ties in walk order. A missing or
// unreadable corpus root yields an empty result and no error; an I/O fault
// deeper in the walk aborts, since a partial scan could silently drop the
// best answer.
func (m *Matcher) FindMatches(query string) ([]Match, error) {
	normalized := Normalize(query)
	var out []Match
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == m.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		match, ok := m.scoreFile(path, normalized)
		if ok {
			out = append(out, match)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan corpus %s: %w", m.root, err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// FindBest returns the top-scored match, or ok=false when nothing matched.
func (m *Matcher) FindBest(query string) (Match, bool, error) {
	matches, err := m.FindMatches(query)
	if err != nil {
		return Match{}, false, err
	}
	if len(matches) == 0 {
		return Match{}, false, nil
	}
	return matches[0], true, nil
}

func (m *Matcher) scoreFile(path string, normalizedQuery string) (Match, bool) {
	base := filepath.Base(path)
	stem := base
	// Leading-dot-only names have no extension; the whole name is the stem.
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		stem = base[:i]
	}
	normalizedStem := Normalize(stem)
	if normalizedStem == "" {
		return Match{}, false
	}
	score, ok := scoreStem(normalizedQuery, normalizedStem)
	if !ok {
		return Match{}, false
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil {
		rel = base
	}
	return Match{
		Asset: Asset{
			Path:   path,
			Rel:    rel,
			Stem:   normalizedStem,
			Format: FormatForExt(filepath.Ext(base)),
		},
		Score: score,
	}, true
}

// scoreStem implements the matching rules on normalized text. Containment
// scores use byte lengths so longer contained strings rank higher; the
// short-stem rune check keeps two-letter stems from fuzzily matching
// substrings of unrelated queries.
func scoreStem(query, stem string) (int, bool) {
	if utf8.RuneCountInString(stem) < ShortStemRunes {
		if query == stem {
			return ScoreShortStemExact, true
		}
		return 0, false
	}
	if strings.Contains(query, stem) {
		return ScoreQueryContainsStem + len(stem), true
	}
	if strings.Contains(stem, query) {
		return ScoreStemContainsQuery + len(query), true
	}
	stemWords := strings.Fields(stem)
	queryWords := strings.Fields(query)
	matched := 0
	for _, sw := range stemWords {
		for _, qw := range queryWords {
			if strings.Contains(qw, sw) || strings.Contains(sw, qw) {
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return 0, false
	}
	return matched * ScoreWordOverlap / max(len(stemWords), 1), true
}
