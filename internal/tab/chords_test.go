package tab

import (
	"reflect"
	"testing"
)

func TestParseChordShapesDropsIncomplete(t *testing.T) {
	got := ParseChordShapes("G - 320003 - 210004\nC\n - x32010\nF - 133211 - 134211")
	want := []ChordShape{
		{Name: "G", Frets: "320003", Fingering: "210004"},
		{Name: "F", Frets: "133211", Fingering: "134211"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("shapes = %+v, want %+v", got, want)
	}
}

func TestChordShapePositionsAndBaseFret(t *testing.T) {
	open := ChordShape{Name: "C", Frets: "x32010"}
	if got := open.Positions(); !reflect.DeepEqual(got, []int{-1, 3, 2, 0, 1, 0}) {
		t.Fatalf("positions = %v", got)
	}
	if got := open.BaseFret(); got != 1 {
		t.Fatalf("base fret = %d, want 1", got)
	}
	barre := ChordShape{Name: "Bm", Frets: "x79987"}
	if got := barre.BaseFret(); got != 7 {
		t.Fatalf("base fret = %d, want 7", got)
	}
}

func TestChordShapeFingers(t *testing.T) {
	c := ChordShape{Name: "D", Frets: "xx0232", Fingering: "xx0132"}
	want := []string{"", "", "", "1", "3", "2"}
	if got := c.Fingers(); !reflect.DeepEqual(got, want) {
		t.Fatalf("fingers = %v, want %v", got, want)
	}
	if (ChordShape{Name: "E", Frets: "022100"}).Fingers() != nil {
		t.Fatalf("no fingering should give nil")
	}
}

func TestParseStrumming(t *testing.T) {
	got := ParseStrumming("Du-_ bR3x")
	kinds := make([]StrokeKind, len(got))
	for i, s := range got {
		kinds[i] = s.Kind
	}
	want := []StrokeKind{StrokeDown, StrokeUp, StrokeRest, StrokeSkip, StrokeRest, StrokeBass, StrokeRoot, StrokeString, StrokeOther}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	if got[7].String != 3 {
		t.Fatalf("string stroke = %d, want 3", got[7].String)
	}
}

func TestStringCount(t *testing.T) {
	cases := []struct {
		tuning string
		want   int
	}{
		{"", 6},
		{"   ", 6},
		{"E A D G B E", 6},
		{"B-E-A-D-G-B-E", 7},
		{"EADG", 4},
		{"DADGAD", 6},
		{"Eb Ab Db Gb", 4},
		{"C#F#BEG#C#", 6},
		{"12345", 6},
	}
	for _, c := range cases {
		if got := StringCount(c.tuning); got != c.want {
			t.Fatalf("StringCount(%q) = %d, want %d", c.tuning, got, c.want)
		}
	}
}
