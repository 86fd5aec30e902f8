package table_test

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/maastricht-university/emusync/emotion"
	"github.com/maastricht-university/emusync/table"
)

func TestReadValidTable(t *testing.T) {
	in := `timestamp,emotion1,score1,emotion2,score2
2,happy,0.6,sad,0.4
0,neutral,0.9,,0
1,angry,0.5,fear,0.5
`
	got, rejected, err := table.Read(strings.NewReader(in), "visual.csv", nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	want := emotion.Table{
		{Second: 0, Primary: emotion.Score{Label: "neutral", Score: 0.9}},
		{Second: 1, Primary: emotion.Score{Label: "angry", Score: 0.5}, Secondary: emotion.Score{Label: "fear", Score: 0.5}},
		{Second: 2, Primary: emotion.Score{Label: "happy", Score: 0.6}, Secondary: emotion.Score{Label: "sad", Score: 0.4}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Read = %+v\nwant %+v", got, want)
	}
}

func TestReadOptionalSecondaryColumns(t *testing.T) {
	in := "second,emotion1,score1\n3,happy,1\n"
	got, _, err := table.Read(strings.NewReader(in), "audio.csv", nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].Second != 3 || got[0].HasSecondary() {
		t.Fatalf("Read = %+v", got)
	}
}

func TestReadMissingInput(t *testing.T) {
	for _, tt := range []struct {
		name   string
		in     string
		column string
	}{
		{"empty", "", ""},
		{"no timestamp", "emotion1,score1\nhappy,1\n", "timestamp"},
		{"no score1", "timestamp,emotion1,emotion2,score2\n0,happy,,0\n", "score1"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := table.Read(strings.NewReader(tt.in), "x.csv", nil)
			if !errors.Is(err, table.ErrMissingInput) {
				t.Fatalf("err = %v, want ErrMissingInput", err)
			}
			var mie *table.MissingInputError
			if !errors.As(err, &mie) || mie.Column != tt.column {
				t.Fatalf("err = %#v, want column %q", err, tt.column)
			}
			if got != nil {
				t.Fatalf("partial output %+v", got)
			}
		})
	}
}

func TestReadSkipsBadRows(t *testing.T) {
	logger, hook := test.NewNullLogger()
	in := `timestamp,emotion1,score1,emotion2,score2
0,happy,0.7,sad,0.3
1,happy,abc,sad,0.3
2,happy,-0.1,,0
-3,happy,0.5,,0
x,happy,0.5,,0
4,,0.5,,0
5,happy,0.2,sad,0.8
0,angry,0.9,,0
6,happy,0.5,sad,nan
7,fear,0.6,,garbage
`
	got, rejected, err := table.Read(strings.NewReader(in), "v.csv", logger)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotSec, want := got.Seconds(), []int{0, 7}; !reflect.DeepEqual(gotSec, want) {
		t.Fatalf("seconds = %v, want %v", gotSec, want)
	}
	if got[0].Primary.Label != "happy" {
		t.Fatalf("duplicate second replaced the first row: %+v", got[0])
	}
	if got[1].HasSecondary() || got[1].Secondary.Score != 0 {
		t.Fatalf("empty emotion2 must force score2 to 0: %+v", got[1])
	}
	if len(rejected) != 8 {
		t.Fatalf("rejected = %d, want 8", len(rejected))
	}
	for _, r := range rejected {
		if !errors.Is(r, table.ErrSchema) {
			t.Fatalf("rejected %v is not ErrSchema", r)
		}
	}
	if rejected[0].Line != 3 || rejected[0].Column != table.ColScore1 {
		t.Fatalf("first rejection = %+v, want line 3 score1", rejected[0])
	}
	if n := len(hook.AllEntries()); n != 8 {
		t.Fatalf("logged %d warnings, want 8", n)
	}
	if hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatalf("level = %v, want warning", hook.LastEntry().Level)
	}
}

func TestReadIsolatesMalformedCSVLine(t *testing.T) {
	logger, hook := test.NewNullLogger()
	in := `timestamp,emotion1,score1,emotion2,score2
0,happy,0.7,sad,0.3
1,ha"ppy,0.5,,0
2,neutral,1,,0
`
	got, rejected, err := table.Read(strings.NewReader(in), "v.csv", logger)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotSec, want := got.Seconds(), []int{0, 2}; !reflect.DeepEqual(gotSec, want) {
		t.Fatalf("seconds = %v, want %v", gotSec, want)
	}
	if len(rejected) != 1 || rejected[0].Line != 3 || !errors.Is(rejected[0], table.ErrSchema) {
		t.Fatalf("rejected = %+v, want one schema error on line 3", rejected)
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.WarnLevel {
		t.Fatalf("want a warning, got %v", e)
	}
}

func TestReadIntegralFloatTimestamps(t *testing.T) {
	in := `timestamp,emotion1,score1,emotion2,score2
0.0,happy,0.7,sad,0.3
1.0,sad,0.9,,0
2.5,fear,1,,0
`
	got, rejected, err := table.Read(strings.NewReader(in), "pandas.csv", nil)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if gotSec, want := got.Seconds(), []int{0, 1}; !reflect.DeepEqual(gotSec, want) {
		t.Fatalf("seconds = %v, want %v", gotSec, want)
	}
	if len(rejected) != 1 || rejected[0].Column != table.ColTimestamp || rejected[0].Value != "2.5" {
		t.Fatalf("rejected = %+v, want 2.5 timestamp", rejected)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	tbl := emotion.Table{
		{Second: 0, Primary: emotion.Score{Label: "happy", Score: 0.57}, Secondary: emotion.Score{Label: "sad", Score: 0.28}},
		{Second: 4, Primary: emotion.Score{Label: "angry", Score: 1}},
	}
	var buf bytes.Buffer
	if err := table.Write(&buf, tbl); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "timestamp,emotion1,score1,emotion2,score2\n0,happy,0.57,sad,0.28\n4,angry,1,,0\n"
	if buf.String() != want {
		t.Fatalf("Write = %q, want %q", buf.String(), want)
	}

	got, _, err := table.Read(&buf, "roundtrip", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, tbl) {
		t.Fatalf("round trip = %+v, want %+v", got, tbl)
	}
}
