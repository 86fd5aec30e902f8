package emotion

import "math"

// Chunk is the speech classifier output for one fixed-length audio chunk.
// Index i covers second i; a short trailing chunk is expected to have been
// padded with silence before classification.
type Chunk struct {
	Index int     `json:"chunk"`
	Top   []Score `json:"top"`
}

// AudioAggregator maps chunks 1:1 onto seconds.
type AudioAggregator struct {
	Workers int
}

// Aggregate returns one row per valid chunk, sorted by second. The chunk's
// entries are re-ranked so the first place always has the higher score.
// Chunks with a negative index, no entries, an empty label or an invalid
// score are skipped, as is any later chunk repeating an index.
func (a *AudioAggregator) Aggregate(chunks []Chunk) (Table, Report) {
	var rep Report
	seen := make(map[int]bool, len(chunks))
	valid := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !validChunk(c) || seen[c.Index] {
			rep.Skipped++
			continue
		}
		seen[c.Index] = true
		valid = append(valid, c)
	}

	rows := make(Table, len(valid))
	forEach(len(valid), a.Workers, func(i int) {
		c := valid[i]
		v := NewVector(len(c.Top))
		for _, s := range c.Top {
			v.Add(s.Label, s.Score)
		}
		first, second := v.Top2()
		rows[i] = Row{Second: c.Index, Primary: first, Secondary: second}
	})
	rows.Sort()
	rep.Rows = len(rows)
	return rows, rep
}

func validChunk(c Chunk) bool {
	if c.Index < 0 || len(c.Top) == 0 {
		return false
	}
	for _, s := range c.Top {
		if s.Label == "" || math.IsNaN(s.Score) || math.IsInf(s.Score, 0) || s.Score < 0 {
			return false
		}
	}
	return true
}
