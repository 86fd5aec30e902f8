package emotion

import (
	"cmp"
	"slices"
)

// Vector is a small label -> score map that remembers insertion order.
// Ranking ties are broken by that order, never by Go map iteration.
type Vector struct {
	labels []string
	scores []float64
}

func NewVector(capacity int) *Vector {
	return &Vector{
		labels: make([]string, 0, capacity),
		scores: make([]float64, 0, capacity),
	}
}

// Add accumulates score onto label, inserting label at the end if new.
func (v *Vector) Add(label string, score float64) {
	for i, l := range v.labels {
		if l == label {
			v.scores[i] += score
			return
		}
	}
	v.labels = append(v.labels, label)
	v.scores = append(v.scores, score)
}

// Scale multiplies every score by w.
func (v *Vector) Scale(w float64) {
	for i := range v.scores {
		v.scores[i] *= w
	}
}

// Merge adds every entry of o into v, in o's insertion order.
func (v *Vector) Merge(o *Vector) {
	for i, l := range o.labels {
		v.Add(l, o.scores[i])
	}
}

// Top2 returns the two highest scoring entries. Equal scores keep insertion
// order. Missing entries are returned as the zero Score.
func (v *Vector) Top2() (first, second Score) {
	idx := make([]int, len(v.labels))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(v.scores[b], v.scores[a])
	})
	if len(idx) > 0 {
		first = Score{Label: v.labels[idx[0]], Score: v.scores[idx[0]]}
	}
	if len(idx) > 1 {
		second = Score{Label: v.labels[idx[1]], Score: v.scores[idx[1]]}
	}
	return first, second
}
