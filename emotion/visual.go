package emotion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Frame is the raw face classifier output for one sampled video frame.
type Frame struct {
	Index  int                `json:"frame"`
	Scores map[string]float64 `json:"emotion"`
}

// VisualAggregator bins sampled frames into whole seconds and ranks each
// second's normalized emotion distribution.
type VisualAggregator struct {
	// FrameRate is the source video's frames per second. Required.
	FrameRate float64

	// Vocabulary defaults to VisualVocabulary. Labels outside it are ignored.
	Vocabulary Vocabulary

	// Workers bounds ranking parallelism; <= 0 uses GOMAXPROCS.
	Workers int
}

// Aggregate returns one row per second that had at least one valid frame,
// sorted by second. Frames with a negative index or a negative, NaN or
// infinite score are skipped and counted in the report.
func (a *VisualAggregator) Aggregate(frames []Frame) (Table, Report, error) {
	fps := a.FrameRate
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return nil, Report{}, fmt.Errorf("%w: %v", ErrInvalidFrameRate, fps)
	}
	vocab := a.Vocabulary
	if vocab == nil {
		vocab = VisualVocabulary
	}
	if err := vocab.Validate(); err != nil {
		return nil, Report{}, err
	}
	pos := vocab.positions()

	var rep Report
	bins := make(map[int]accumulator)
	var seconds []int
	for _, f := range frames {
		if !validFrame(f) {
			rep.Skipped++
			continue
		}
		sec := int(math.Floor(float64(f.Index) / fps))
		acc, ok := bins[sec]
		if !ok {
			acc = make(accumulator, len(vocab))
			bins[sec] = acc
			seconds = append(seconds, sec)
		}
		acc.add(f.Scores, pos)
	}

	rows := make(Table, len(seconds))
	forEach(len(seconds), a.Workers, func(i int) {
		sec := seconds[i]
		rows[i] = bins[sec].rank(sec, vocab)
	})
	rows.Sort()
	rep.Rows = len(rows)
	return rows, rep, nil
}

func validFrame(f Frame) bool {
	if f.Index < 0 {
		return false
	}
	for _, s := range f.Scores {
		if math.IsNaN(s) || math.IsInf(s, 0) || s < 0 {
			return false
		}
	}
	return true
}

// accumulator holds one second's raw score sums, indexed by vocabulary
// position. It lives only until the second is ranked.
type accumulator []float64

func (acc accumulator) add(scores map[string]float64, pos map[string]int) {
	for label, s := range scores {
		if i, ok := pos[label]; ok {
			acc[i] += s
		}
	}
}

// rescale shrinks sums whose total overflowed, keeping their ratios, and
// returns the new total. Sums that are themselves infinite share the mass.
func rescale(dist []float64) float64 {
	var inf int
	for _, d := range dist {
		if math.IsInf(d, 1) {
			inf++
		}
	}
	if inf > 0 {
		for i, d := range dist {
			if math.IsInf(d, 1) {
				dist[i] = 1
			} else {
				dist[i] = 0
			}
		}
		return float64(inf)
	}
	m := floats.Max(dist)
	for i := range dist {
		dist[i] /= m
	}
	return floats.Sum(dist)
}

// rank normalizes the sums to a distribution and picks the top two. An
// all-zero second keeps its zeros, so the first two vocabulary labels win.
func (acc accumulator) rank(sec int, vocab Vocabulary) Row {
	dist := make([]float64, len(acc))
	copy(dist, acc)
	total := floats.Sum(dist)
	if math.IsInf(total, 1) {
		total = rescale(dist)
	}
	if total > 0 {
		for i := range dist {
			dist[i] /= total
		}
	}

	v := NewVector(len(vocab))
	for i, label := range vocab {
		v.Add(label, dist[i])
	}
	first, second := v.Top2()
	return Row{Second: sec, Primary: first, Secondary: second}
}
