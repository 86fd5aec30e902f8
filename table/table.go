// Package table reads and writes per-second emotion rankings as CSV:
//
//	timestamp,emotion1,score1,emotion2,score2
//
// One row per second. emotion2 is empty, and score2 is 0, when the second
// place is absent.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maastricht-university/emusync/emotion"
)

const (
	ColTimestamp = "timestamp"
	ColEmotion1  = "emotion1"
	ColScore1    = "score1"
	ColEmotion2  = "emotion2"
	ColScore2    = "score2"
)

var Header = []string{ColTimestamp, ColEmotion1, ColScore1, ColEmotion2, ColScore2}

var (
	ErrMissingInput = errors.New("table: missing input")
	ErrSchema       = errors.New("table: schema violation")
)

// MissingInputError reports an absent source or a missing required column.
// It is fatal for the table it concerns.
type MissingInputError struct {
	Source string
	Column string // empty when the whole source is missing
}

func (e *MissingInputError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("table %s: missing input", e.Source)
	}
	return fmt.Sprintf("table %s: missing required column %q", e.Source, e.Column)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// SchemaError reports one rejected row. The row is skipped; the rest of the
// table is still read.
type SchemaError struct {
	Source string
	Line   int
	Column string
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %s:%d: %s=%q: %s", e.Source, e.Line, e.Column, e.Value, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Read parses a ranking table. Rows violating the schema are skipped,
// logged at warning level and returned alongside the table. The result is
// sorted by second.
func Read(r io.Reader, source string, log logrus.FieldLogger) (emotion.Table, []*SchemaError, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &MissingInputError{Source: source}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("table %s: read header: %w", source, err)
	}
	cols, err := columns(head, source)
	if err != nil {
		return nil, nil, err
	}

	var (
		out      emotion.Table
		rejected []*SchemaError
		seen     = map[int]bool{}
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var (
			row  emotion.Row
			serr *SchemaError
			line int
		)
		var perr *csv.ParseError
		switch {
		case errors.As(err, &perr):
			line = perr.StartLine
			serr = &SchemaError{Reason: perr.Err.Error()}
		case err != nil:
			return nil, nil, fmt.Errorf("table %s: %w", source, err)
		default:
			line, _ = cr.FieldPos(0)
			row, serr = cols.parse(rec)
		}
		if serr == nil && seen[row.Second] {
			serr = &SchemaError{Column: ColTimestamp, Value: strconv.Itoa(row.Second), Reason: "duplicate second"}
		}
		if serr != nil {
			serr.Source, serr.Line = source, line
			log.WithFields(logrus.Fields{
				"source": source,
				"line":   line,
				"column": serr.Column,
			}).Warnf("skipping row: %s", serr.Reason)
			rejected = append(rejected, serr)
			continue
		}
		seen[row.Second] = true
		out = append(out, row)
	}
	out.Sort()
	return out, rejected, nil
}

type columnIndex struct {
	ts, e1, s1, e2, s2 int
}

func columns(head []string, source string) (columnIndex, error) {
	pos := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "second" {
			h = ColTimestamp
		}
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := columnIndex{ts: -1, e1: -1, s1: -1, e2: -1, s2: -1}
	for _, c := range []struct {
		name     string
		dst      *int
		required bool
	}{
		{ColTimestamp, &idx.ts, true},
		{ColEmotion1, &idx.e1, true},
		{ColScore1, &idx.s1, true},
		{ColEmotion2, &idx.e2, false},
		{ColScore2, &idx.s2, false},
	} {
		i, ok := pos[c.name]
		if !ok {
			if c.required {
				return idx, &MissingInputError{Source: source, Column: c.name}
			}
			continue
		}
		*c.dst = i
	}
	return idx, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columnIndex) parse(rec []string) (emotion.Row, *SchemaError) {
	var r emotion.Row

	ts := field(rec, c.ts)
	sec, ok := parseSecond(ts)
	if !ok {
		return r, &SchemaError{Column: ColTimestamp, Value: ts, Reason: "want a non-negative integer"}
	}
	r.Second = sec

	var err error
	r.Primary.Label = field(rec, c.e1)
	if r.Primary.Label == "" {
		return r, &SchemaError{Column: ColEmotion1, Reason: "empty label"}
	}
	s1 := field(rec, c.s1)
	if r.Primary.Score, err = parseScore(s1); err != nil {
		return r, &SchemaError{Column: ColScore1, Value: s1, Reason: err.Error()}
	}

	// A missing secondary carries no score, whatever score2 says.
	r.Secondary.Label = field(rec, c.e2)
	if r.Secondary.Label == "" {
		return r, nil
	}
	s2 := field(rec, c.s2)
	if r.Secondary.Score, err = parseScore(s2); err != nil {
		return r, &SchemaError{Column: ColScore2, Value: s2, Reason: err.Error()}
	}
	if r.Primary.Score < r.Secondary.Score {
		return r, &SchemaError{Column: ColScore2, Value: s2, Reason: "second place scores above first place"}
	}
	return r, nil
}

// parseSecond accepts integers and integral floats such as "12.0", which
// spreadsheet and dataframe exports write for whole-number columns.
func parseSecond(s string) (int, bool) {
	if sec, err := strconv.Atoi(s); err == nil {
		return sec, sec >= 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func parseScore(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, errors.New("want a finite score >= 0")
	}
	return f, nil
}

// Write encodes t with a header row. Rows are written in table order;
// tables produced by package emotion are already sorted by second.
func Write(w io.Writer, t emotion.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range t {
		rec := []string{
			strconv.Itoa(r.Second),
			r.Primary.Label,
			formatScore(r.Primary.Score),
			"",
			"0",
		}
		if r.HasSecondary() {
			rec[3] = r.Secondary.Label
			rec[4] = formatScore(r.Secondary.Score)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
