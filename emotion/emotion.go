// Package emotion turns per-frame and per-chunk classifier output into
// per-second top-2 emotion rankings, and fuses a visual and an audio ranking
// into one timeline.
//
// Every second is ranked independently of every other second, so all
// aggregation and fusion work is fanned out across goroutines and collected
// into a table sorted by second.
package emotion

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrInvalidFrameRate  = errors.New("emotion: frame rate must be a finite number > 0")
	ErrInvalidWeights    = errors.New("emotion: fusion weights must be finite and non-negative")
	ErrInvalidVocabulary = errors.New("emotion: invalid vocabulary")
	ErrEmptyAlignment    = errors.New("emotion: no second is present in both rankings")
)

// Score is one (emotion label, score) pair.
type Score struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
}

// Row is the top-2 ranking of one second. An empty Secondary.Label means
// fewer than two distinct emotions were seen; Secondary.Score is then 0.
type Row struct {
	Second    int   `json:"timestamp" yaml:"timestamp"`
	Primary   Score `json:"primary" yaml:"primary"`
	Secondary Score `json:"secondary" yaml:"secondary"`
}

func (r Row) HasSecondary() bool { return r.Secondary.Label != "" }

// Table holds at most one Row per second.
type Table []Row

// Sort orders the table by second ascending.
func (t Table) Sort() {
	sort.SliceStable(t, func(i, j int) bool { return t[i].Second < t[j].Second })
}

func (t Table) Seconds() []int {
	out := make([]int, len(t))
	for i, r := range t {
		out[i] = r.Second
	}
	return out
}

// Vocabulary is a closed, ordered emotion label set. Its order is the
// tie-break order for equal scores.
type Vocabulary []string

// VisualVocabulary is the label set of the face emotion classifier.
var VisualVocabulary = Vocabulary{"angry", "disgust", "fear", "happy", "sad", "surprise", "neutral"}

func (v Vocabulary) Validate() error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidVocabulary)
	}
	seen := make(map[string]bool, len(v))
	for _, l := range v {
		if l == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidVocabulary)
		}
		if seen[l] {
			return fmt.Errorf("%w: duplicate label %q", ErrInvalidVocabulary, l)
		}
		seen[l] = true
	}
	return nil
}

func (v Vocabulary) positions() map[string]int {
	m := make(map[string]int, len(v))
	for i, l := range v {
		m[l] = i
	}
	return m
}

// Report counts what one aggregation or fusion pass did.
type Report struct {
	Rows       int `json:"rows" yaml:"rows"`
	Skipped    int `json:"skipped" yaml:"skipped"`
	VisualOnly int `json:"visual_only,omitempty" yaml:"visual_only,omitempty"`
	AudioOnly  int `json:"audio_only,omitempty" yaml:"audio_only,omitempty"`
}

// Empty reports whether the pass produced no rows.
func (r Report) Empty() bool { return r.Rows == 0 }

func (r Report) String() string {
	s := fmt.Sprintf("rows=%d skipped=%d", r.Rows, r.Skipped)
	if r.VisualOnly > 0 || r.AudioOnly > 0 {
		s += fmt.Sprintf(" visual_only=%d audio_only=%d", r.VisualOnly, r.AudioOnly)
	}
	return s
}
