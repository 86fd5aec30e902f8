package emotion

import "gonum.org/v1/gonum/floats"

// Profile returns, for each label, its mean score over the seconds of t.
// Primary and secondary places both count; labels absent from a second
// contribute zero. An empty table yields all zeros.
func Profile(t Table, labels []string) []float64 {
	pos := Vocabulary(labels).positions()
	out := make([]float64, len(labels))
	for _, r := range t {
		if i, ok := pos[r.Primary.Label]; ok {
			out[i] += r.Primary.Score
		}
		if i, ok := pos[r.Secondary.Label]; ok && r.HasSecondary() {
			out[i] += r.Secondary.Score
		}
	}
	if len(t) > 0 {
		floats.Scale(1/float64(len(t)), out)
	}
	return out
}
