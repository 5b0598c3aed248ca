package tab

import (
	"reflect"
	"testing"
)

func TestExtractTimestampsBasic(t *testing.T) {
	got := ExtractTimestamps("@0:30 first\n@1:05 second")
	want := []Anchor{{Time: 30, Line: 0}, {Time: 65, Line: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("anchors = %v, want %v", got, want)
	}
}

func TestExtractTimestampsHourForm(t *testing.T) {
	got := ExtractTimestamps("intro\n@1:02:03 late")
	if len(got) != 1 || got[0].Time != 3723 || got[0].Line != 1 {
		t.Fatalf("anchors = %v, want [{3723 1}]", got)
	}
}

func TestExtractTimestampsSortsStablyWithoutDedup(t *testing.T) {
	body := "@2:00 c\n@0:10 a @0:10 b\n\n@0:10 d"
	got := ExtractTimestamps(body)
	want := []Anchor{
		{Time: 10, Line: 1},
		{Time: 10, Line: 1},
		{Time: 10, Line: 3},
		{Time: 120, Line: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("anchors = %v, want %v", got, want)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Time < got[i-1].Time {
			t.Fatalf("anchors not sorted at %d: %v", i, got)
		}
	}
}

func TestExtractTimestampsIgnoresMalformed(t *testing.T) {
	got := ExtractTimestamps("@123:45 no\n@1:5 no\n1:30 no\n@ 1:30 no")
	if len(got) != 0 {
		t.Fatalf("anchors = %v, want none", got)
	}
}

func TestExtractTimestampsEmptyBody(t *testing.T) {
	if got := ExtractTimestamps(""); len(got) != 0 {
		t.Fatalf("anchors = %v, want none", got)
	}
}
