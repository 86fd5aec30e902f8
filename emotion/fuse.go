package emotion

import (
	"fmt"
	"math"
)

// Weights are the per-modality multipliers applied before fusion. They need
// not sum to 1.
type Weights struct {
	Visual float64 `json:"visual" yaml:"visual"`
	Audio  float64 `json:"audio" yaml:"audio"`
}

var DefaultWeights = Weights{Visual: 0.7, Audio: 0.3}

func (w Weights) Validate() error {
	for _, x := range []float64{w.Visual, w.Audio} {
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return fmt.Errorf("%w: visual=%v audio=%v", ErrInvalidWeights, w.Visual, w.Audio)
		}
	}
	return nil
}

// Combine fuses the two rankings of one second. Only the top-2 entries of
// each side take part: visual entries are inserted first, then audio
// entries, and scores of identical labels are summed. An absent secondary
// contributes nothing.
func (w Weights) Combine(visual, audio Row) Row {
	v := NewVector(4)
	v.Merge(topVector(visual, w.Visual))
	v.Merge(topVector(audio, w.Audio))
	first, second := v.Top2()
	return Row{Second: visual.Second, Primary: first, Secondary: second}
}

func topVector(r Row, weight float64) *Vector {
	v := NewVector(2)
	v.Add(r.Primary.Label, r.Primary.Score)
	if r.HasSecondary() {
		v.Add(r.Secondary.Label, r.Secondary.Score)
	}
	v.Scale(weight)
	return v
}

// Fuser combines a visual and an audio table second by second.
type Fuser struct {
	Weights Weights
	Workers int
}

// Fuse inner-joins the two tables on second and combines each matched pair.
// Seconds present on one side only are dropped and counted in the report.
// No overlap yields an empty table and a nil error; callers that need at
// least one row can test Report.Empty and return ErrEmptyAlignment.
// A repeated second within one table is skipped after its first row.
func (f *Fuser) Fuse(visual, audio Table) (Table, Report, error) {
	if err := f.Weights.Validate(); err != nil {
		return nil, Report{}, err
	}

	var rep Report
	bySecond := make(map[int]Row, len(audio))
	for _, r := range audio {
		if _, dup := bySecond[r.Second]; dup {
			rep.Skipped++
			continue
		}
		bySecond[r.Second] = r
	}

	type pair struct{ visual, audio Row }
	pairs := make([]pair, 0, min(len(visual), len(bySecond)))
	seen := make(map[int]bool, len(visual))
	for _, r := range visual {
		if seen[r.Second] {
			rep.Skipped++
			continue
		}
		seen[r.Second] = true
		a, ok := bySecond[r.Second]
		if !ok {
			rep.VisualOnly++
			continue
		}
		pairs = append(pairs, pair{visual: r, audio: a})
	}
	rep.AudioOnly = len(bySecond) - len(pairs)

	out := make(Table, len(pairs))
	forEach(len(pairs), f.Workers, func(i int) {
		out[i] = f.Weights.Combine(pairs[i].visual, pairs[i].audio)
	})
	out.Sort()
	rep.Rows = len(out)
	return out, rep, nil
}
