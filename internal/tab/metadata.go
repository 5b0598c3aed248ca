package tab

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinTempo = 30
	MaxTempo = 250

	MinVideoOffset = -10.0
	MaxVideoOffset = 60.0
)

// headerOrder is the canonical order and spelling used when rendering
// metadata back into header lines.
var headerOrder = []struct {
	key  string
	name string
}{
	{KeyTitle, "Title"},
	{KeyArtist, "Artist"},
	{KeyAlbum, "Album"},
	{KeyTempo, "Tempo"},
	{KeyTiming, "Timing"},
	{KeyKey, "Key"},
	{KeyCapo, "Capo"},
	{KeyTuning, "Tuning"},
	{KeyYouTubeURL, "YouTubeURL"},
	{KeyYouTubeOffset, "YouTubeOffset"},
	{KeyStrummingPattern, "StrummingPattern"},
	{KeyChords, "Chords"},
}

// TimeSignatures lists the meters the metronome accepts from the timing key.
var TimeSignatures = []string{"2/4", "3/4", "4/4", "5/4", "6/8", "7/8", "12/8"}

var (
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)`)
)

// HeaderLines renders metadata as "Key: value" lines. Chord entries get one
// line each. Parsing the lines again yields the same metadata.
func (d Document) HeaderLines() []string {
	title := cases.Title(language.English)
	seen := make(map[string]bool, len(d.Metadata))
	var out []string
	emit := func(name, key string) {
		value := d.Metadata[key]
		seen[key] = true
		if value == "" {
			return
		}
		if key == KeyChords {
			for _, entry := range strings.Split(value, "\n") {
				out = append(out, name+": "+entry)
			}
			return
		}
		out = append(out, name+": "+value)
	}
	for _, h := range headerOrder {
		emit(h.name, h.key)
	}
	var extra []string
	for key := range d.Metadata {
		if !seen[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		emit(title.String(key), key)
	}
	return out
}

// Compose joins header lines and body back into tab text.
func (d Document) Compose() string {
	header := d.HeaderLines()
	if len(header) == 0 {
		return d.Body
	}
	return strings.Join(header, "\n") + "\n\n" + d.Body
}

// Tempo returns the tempo header if its leading integer is within the
// metronome range.
func (d Document) Tempo() (int, bool) {
	n, ok := leadingInteger(d.Metadata[KeyTempo])
	if !ok || n < MinTempo || n > MaxTempo {
		return 0, false
	}
	return n, true
}

// TimeSignature parses the timing header when it names a supported meter.
func (d Document) TimeSignature() (beats int, unit int, ok bool) {
	timing := strings.ReplaceAll(d.Metadata[KeyTiming], " ", "")
	for _, sig := range TimeSignatures {
		if timing != sig {
			continue
		}
		b, u, _ := strings.Cut(sig, "/")
		beats, _ = strconv.Atoi(b)
		unit, _ = strconv.Atoi(u)
		return beats, unit, true
	}
	return 0, 0, false
}

// VideoOffset returns the youtubeoffset header in seconds, clamped and
// rounded to hundredths.
func (d Document) VideoOffset() (float64, bool) {
	m := leadingFloat.FindString(strings.TrimSpace(d.Metadata[KeyYouTubeOffset]))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return ClampOffset(v), true
}

// VideoID extracts the video id from the youtubeurl header.
func (d Document) VideoID() (string, bool) {
	id, err := ExtractVideoID(d.Metadata[KeyYouTubeURL])
	if err != nil {
		return "", false
	}
	return id, true
}

func (d Document) Capo() (int, bool) {
	return leadingInteger(d.Metadata[KeyCapo])
}

func (d Document) Chords() []ChordShape {
	return ParseChordShapes(d.Metadata[KeyChords])
}

func (d Document) Strumming() []Stroke {
	return ParseStrumming(d.Metadata[KeyStrummingPattern])
}

func (d Document) StringCount() int {
	return StringCount(d.Metadata[KeyTuning])
}

// ClampOffset bounds a start offset to [-10, 60] seconds at two decimals.
func ClampOffset(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Round(v*100) / 100
	return math.Max(MinVideoOffset, math.Min(MaxVideoOffset, v))
}

func leadingInteger(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}
