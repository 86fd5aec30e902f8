package emotion_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/maastricht-university/emusync/emotion"
)

func row(sec int, l1 string, s1 float64, l2 string, s2 float64) emotion.Row {
	return emotion.Row{
		Second:    sec,
		Primary:   emotion.Score{Label: l1, Score: s1},
		Secondary: emotion.Score{Label: l2, Score: s2},
	}
}

func top(kv ...any) []emotion.Score {
	var out []emotion.Score
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, emotion.Score{Label: kv[i].(string), Score: kv[i+1].(float64)})
	}
	return out
}

func TestAudioMapsChunksToSeconds(t *testing.T) {
	agg := &emotion.AudioAggregator{}
	rows, rep := agg.Aggregate([]emotion.Chunk{
		{Index: 2, Top: top("ang", 0.6, "neu", 0.3)},
		{Index: 0, Top: top("hap", 0.2, "sad", 0.7)},
		{Index: 1, Top: top("neu", 0.9)},
	})
	want := emotion.Table{
		row(0, "sad", 0.7, "hap", 0.2),
		row(1, "neu", 0.9, "", 0),
		row(2, "ang", 0.6, "neu", 0.3),
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v\nwant %+v", rows, want)
	}
	if rep.Rows != 3 || rep.Skipped != 0 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestAudioSkipsInvalidAndDuplicateChunks(t *testing.T) {
	agg := &emotion.AudioAggregator{Workers: 4}
	rows, rep := agg.Aggregate([]emotion.Chunk{
		{Index: 0, Top: top("neu", 0.8, "hap", 0.1)},
		{Index: 0, Top: top("ang", 0.9, "sad", 0.1)},
		{Index: -1, Top: top("neu", 0.5)},
		{Index: 1},
		{Index: 2, Top: top("", 0.5)},
		{Index: 3, Top: top("sad", math.NaN())},
		{Index: 4, Top: top("sad", -0.1)},
		{Index: 5, Top: top("sad", 0.4, "neu", 0.4)},
	})
	if rep.Skipped != 6 {
		t.Fatalf("skipped = %d, want 6", rep.Skipped)
	}
	want := emotion.Table{
		row(0, "neu", 0.8, "hap", 0.1),
		row(5, "sad", 0.4, "neu", 0.4),
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %+v\nwant %+v", rows, want)
	}
}

func TestFuseInnerJoin(t *testing.T) {
	visual := emotion.Table{
		row(0, "happy", 0.6, "sad", 0.4),
		row(1, "happy", 0.6, "sad", 0.4),
		row(2, "happy", 0.6, "sad", 0.4),
	}
	audio := emotion.Table{
		row(1, "happy", 0.5, "angry", 0.5),
		row(2, "happy", 0.5, "angry", 0.5),
		row(3, "happy", 0.5, "angry", 0.5),
	}
	f := &emotion.Fuser{Weights: emotion.DefaultWeights}
	out, rep, err := f.Fuse(visual, audio)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if got, want := out.Seconds(), []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Fatalf("seconds = %v, want %v", got, want)
	}
	if rep.VisualOnly != 1 || rep.AudioOnly != 1 || rep.Rows != 2 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestFuseWeightedCombination(t *testing.T) {
	f := &emotion.Fuser{Weights: emotion.Weights{Visual: 0.7, Audio: 0.3}}
	out, _, err := f.Fuse(
		emotion.Table{row(5, "happy", 0.6, "sad", 0.4)},
		emotion.Table{row(5, "happy", 0.5, "angry", 0.5)},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
	r := out[0]
	if r.Second != 5 {
		t.Fatalf("second = %d, want 5", r.Second)
	}
	if r.Primary.Label != "happy" || !near(r.Primary.Score, 0.57) {
		t.Errorf("primary = %+v, want happy:0.57", r.Primary)
	}
	if r.Secondary.Label != "sad" || !near(r.Secondary.Score, 0.28) {
		t.Errorf("secondary = %+v, want sad:0.28", r.Secondary)
	}
}

func TestFuseTieBreakPrefersVisual(t *testing.T) {
	w := emotion.Weights{Visual: 0.5, Audio: 0.5}
	got := w.Combine(row(0, "happy", 0.4, "sad", 0.2), row(0, "sad", 0.4, "happy", 0.2))
	if got.Primary.Label != "happy" || got.Secondary.Label != "sad" {
		t.Fatalf("tie = %+v, want happy before sad", got)
	}

	// angry (audio) ties sad (visual secondary); sad was inserted first.
	got = w.Combine(row(0, "happy", 0.8, "sad", 0.2), row(0, "angry", 0.2, "neutral", 0.1))
	if got.Primary.Label != "happy" || got.Secondary.Label != "sad" {
		t.Fatalf("tie = %+v, want happy then sad", got)
	}
}

func TestFuseMissingSecondary(t *testing.T) {
	w := emotion.DefaultWeights
	got := w.Combine(row(0, "happy", 1, "", 0), row(0, "happy", 0.9, "", 0))
	if got.HasSecondary() || got.Secondary.Score != 0 {
		t.Fatalf("secondary = %+v, want absent", got.Secondary)
	}
	if !near(got.Primary.Score, 0.7+0.27) {
		t.Fatalf("primary = %+v, want happy:0.97", got.Primary)
	}

	// A zero-scored secondary is still a label and still takes a slot.
	got = w.Combine(row(0, "angry", 0, "disgust", 0), row(0, "angry", 0.9, "", 0))
	if got.Secondary.Label != "disgust" {
		t.Fatalf("secondary = %+v, want disgust:0", got.Secondary)
	}
}

func TestFuseEmptyAlignment(t *testing.T) {
	f := &emotion.Fuser{Weights: emotion.DefaultWeights}
	out, rep, err := f.Fuse(
		emotion.Table{row(0, "happy", 1, "", 0)},
		emotion.Table{row(9, "happy", 1, "", 0)},
	)
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if len(out) != 0 || !rep.Empty() {
		t.Fatalf("out = %+v, report = %+v; want empty", out, rep)
	}
}

func TestFuseRejectsInvalidWeights(t *testing.T) {
	for _, w := range []emotion.Weights{
		{Visual: -0.1, Audio: 0.3},
		{Visual: 0.7, Audio: math.NaN()},
		{Visual: math.Inf(1), Audio: 0},
	} {
		f := &emotion.Fuser{Weights: w}
		if _, _, err := f.Fuse(nil, nil); !errors.Is(err, emotion.ErrInvalidWeights) {
			t.Errorf("weights %+v: err = %v, want ErrInvalidWeights", w, err)
		}
	}
	if err := (emotion.Weights{Visual: 2, Audio: 5}).Validate(); err != nil {
		t.Errorf("weights not summing to 1 must be accepted: %v", err)
	}
}

func TestFuseIsIdempotent(t *testing.T) {
	var visual, audio emotion.Table
	labels := []string{"happy", "sad", "angry", "neutral"}
	for s := 0; s < 500; s++ {
		visual = append(visual, row(s, labels[s%4], 0.6, labels[(s+1)%4], 0.4))
		audio = append(audio, row(s+3, labels[(s+2)%4], 0.5, labels[s%4], 0.5))
	}
	visualCopy := append(emotion.Table(nil), visual...)
	audioCopy := append(emotion.Table(nil), audio...)

	first, _, err := (&emotion.Fuser{Weights: emotion.DefaultWeights, Workers: 1}).Fuse(visual, audio)
	if err != nil {
		t.Fatal(err)
	}
	for _, workers := range []int{1, 3, 16} {
		again, _, err := (&emotion.Fuser{Weights: emotion.DefaultWeights, Workers: workers}).Fuse(visual, audio)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("workers=%d: fused output changed between runs", workers)
		}
	}
	if !reflect.DeepEqual(visual, visualCopy) || !reflect.DeepEqual(audio, audioCopy) {
		t.Fatal("Fuse modified its inputs")
	}
}

func TestFuseSkipsRepeatedSeconds(t *testing.T) {
	f := &emotion.Fuser{Weights: emotion.DefaultWeights}
	out, rep, err := f.Fuse(
		emotion.Table{row(1, "happy", 1, "", 0), row(1, "sad", 1, "", 0)},
		emotion.Table{row(1, "fear", 1, "", 0), row(1, "angry", 1, "", 0)},
	)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Skipped != 2 || len(out) != 1 {
		t.Fatalf("report = %+v, rows = %d", rep, len(out))
	}
	if out[0].Primary.Label != "happy" || out[0].Secondary.Label != "fear" {
		t.Fatalf("row = %+v, want first rows of each side", out[0])
	}
}

func TestVectorTop2(t *testing.T) {
	v := emotion.NewVector(4)
	v.Add("b", 1)
	v.Add("a", 2)
	v.Add("c", 2)
	v.Add("b", 0.5)
	first, second := v.Top2()
	if first.Label != "a" || second.Label != "c" {
		t.Fatalf("top2 = %v %v, want a c", first, second)
	}
	v.Add("b", 1)
	if first, second = v.Top2(); first.Label != "b" || first.Score != 2.5 || second.Label != "a" {
		t.Fatalf("after accumulating b, top2 = %v %v, want b:2.5 a", first, second)
	}

	empty := emotion.NewVector(0)
	if f, s := empty.Top2(); f != (emotion.Score{}) || s != (emotion.Score{}) {
		t.Fatalf("empty top2 = %v %v", f, s)
	}
}

func TestFormatTimeline(t *testing.T) {
	got := emotion.FormatTimeline(emotion.Table{
		row(0, "happy", 0.57, "sad", 0.28),
		row(1, "angry", 0.9, "", 0),
		row(2, "angry", 0, "disgust", 0),
	})
	want := "happy 0.57 sad 0.28\nangry 0.90\nangry 0.00"
	if got != want {
		t.Fatalf("FormatTimeline = %q, want %q", got, want)
	}
}

func TestProfile(t *testing.T) {
	tbl := emotion.Table{
		row(0, "happy", 0.6, "sad", 0.2),
		row(1, "sad", 0.8, "", 0),
		row(2, "other", 1, "happy", 0.2),
	}
	got := emotion.Profile(tbl, []string{"happy", "sad", "fear"})
	want := []float64{0.8 / 3, 1.0 / 3, 0}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Fatalf("Profile = %v, want %v", got, want)
		}
	}
	if got := emotion.Profile(nil, []string{"happy"}); got[0] != 0 {
		t.Fatalf("Profile(empty) = %v", got)
	}
}
