package tab

// Category is the single classification assigned to every line of tab text.
type Category int

const (
	CategoryBlank Category = iota
	CategoryMetadata
	CategorySection
	CategoryChord
	CategoryTablature
	CategoryLyric
)

func (c Category) String() string {
	switch c {
	case CategoryBlank:
		return "blank"
	case CategoryMetadata:
		return "metadata"
	case CategorySection:
		return "section"
	case CategoryChord:
		return "chord"
	case CategoryTablature:
		return "tablature"
	case CategoryLyric:
		return "lyric"
	default:
		return "unknown"
	}
}

// Style is the render style of a span of a line. It extends Category with
// the comment and timestamp overrides.
type Style int

const (
	StyleBlank Style = iota
	StyleMetadata
	StyleSection
	StyleChord
	StyleTablature
	StyleLyric
	StyleComment
	StyleTimestamp
)

func (s Style) String() string {
	switch s {
	case StyleComment:
		return "comment"
	case StyleTimestamp:
		return "timestamp"
	default:
		return Category(s).String()
	}
}

// CommentSpan marks a trailing comment. Start is the byte offset of "//".
type CommentSpan struct {
	Start int
}

// TimestampSpan is one "@M:SS" or "@H:MM:SS" token. Columns are byte
// offsets, End is exclusive.
type TimestampSpan struct {
	Start   int
	End     int
	Seconds float64
}

type Classification struct {
	Category   Category
	Comment    *CommentSpan
	Timestamps []TimestampSpan
}

// HasTimestamp reports whether the line carries at least one timestamp.
func (c Classification) HasTimestamp() bool { return len(c.Timestamps) > 0 }

// Span is a styled byte range of a line, End exclusive.
type Span struct {
	Start int
	End   int
	Style Style
}

// Anchor ties a playback time in seconds to a zero-based body line.
type Anchor struct {
	Time float64
	Line int
}

// Document is the result of splitting raw tab text into header metadata and
// body. Metadata keys are lowercase members of the recognized set.
type Document struct {
	Metadata map[string]string
	Body     string
}

// ChordShape is one "Name - Frets - Fingering" entry of the chords header.
type ChordShape struct {
	Name      string
	Frets     string
	Fingering string
}

type StrokeKind int

const (
	StrokeOther StrokeKind = iota
	StrokeDown
	StrokeUp
	StrokeBass
	StrokeRoot
	StrokeRest
	StrokeSkip
	StrokeString
)

// Stroke is one symbol of a strumming pattern. String is set for
// StrokeString (1-6).
type Stroke struct {
	Kind   StrokeKind
	Symbol rune
	String int
}

type ParserConfig struct {
	// Keys lists the lowercase header keys captured as metadata.
	Keys []string
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Keys: []string{
			KeyTitle, KeyArtist, KeyAlbum, KeyTempo, KeyTiming,
			KeyYouTubeURL, KeyYouTubeOffset, KeyCapo, KeyTuning, KeyKey,
			KeyStrummingPattern, KeyChords,
		},
	}
}

const (
	KeyTitle            = "title"
	KeyArtist           = "artist"
	KeyAlbum            = "album"
	KeyTempo            = "tempo"
	KeyTiming           = "timing"
	KeyYouTubeURL       = "youtubeurl"
	KeyYouTubeOffset    = "youtubeoffset"
	KeyCapo             = "capo"
	KeyTuning           = "tuning"
	KeyKey              = "key"
	KeyStrummingPattern = "strummingpattern"
	KeyChords           = "chords"
)
