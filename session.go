package tabioke

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	intaudio "github.com/cbegin/tabioke-go/internal/audio"
	intclick "github.com/cbegin/tabioke-go/internal/click"
	intconfig "github.com/cbegin/tabioke-go/internal/config"
	intmetro "github.com/cbegin/tabioke-go/internal/metronome"
	intscroll "github.com/cbegin/tabioke-go/internal/scroll"
	intstore "github.com/cbegin/tabioke-go/internal/store"
	inttab "github.com/cbegin/tabioke-go/internal/tab"
)

// Event carries session notifications from Watch(). Only the field matching
// Kind is set.
type Event struct {
	Kind     EventKind
	Document inttab.Document    // EventMetadataLoaded
	Position intscroll.Position // EventScroll
	Beat     intmetro.Beat      // EventBeat
	Status   intmetro.Status    // EventMetronomeState
}

type EventKind int

const (
	EventMetadataLoaded EventKind = iota
	EventScroll
	EventBeat
	EventMetronomeState
)

func (k EventKind) String() string {
	switch k {
	case EventMetadataLoaded:
		return "metadata"
	case EventScroll:
		return "scroll"
	case EventBeat:
		return "beat"
	case EventMetronomeState:
		return "metronome"
	default:
		return "unknown"
	}
}

const eventBuffer = 64

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	sampleRate   int
	audioOutput  bool
	audioBuffer  time.Duration
	clock        intmetro.AudioClock
	metronome    intmetro.Config
	lookahead    float64
	tickInterval time.Duration
	manualTicks  bool
	viewport     intscroll.Viewport
	autoScroll   bool
	store        *intstore.Store
	logger       *logrus.Entry
	autoStart    bool
	syncTempo    bool
	offset       float64
}

func defaultSessionConfig() sessionConfig {
	d := intconfig.Default()
	return sessionConfig{
		sampleRate:   d.Audio.SampleRate,
		audioOutput:  true,
		audioBuffer:  d.Audio.Buffer,
		metronome:    intmetro.DefaultConfig(),
		lookahead:    d.Metronome.Lookahead.Seconds(),
		tickInterval: d.Metronome.TickInterval,
		viewport:     intscroll.Viewport{LineHeight: d.Scroll.LineHeight, Height: d.Scroll.ViewportHeight},
		autoScroll:   true,
		autoStart:    true,
		syncTempo:    true,
	}
}

func WithSampleRate(sampleRate int) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.sampleRate = sampleRate
	}
}

// WithAudioOutput turns the ebiten click output on or off. Without audio
// output beats are still scheduled and reported through Watch.
func WithAudioOutput(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.audioOutput = enabled
	}
}

func WithAudioBuffer(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.audioBuffer = d
	}
}

// WithClock replaces the audio clock the metronome schedules against.
func WithClock(clock intmetro.AudioClock) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.clock = clock
	}
}

func WithTempo(bpm int) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.metronome.Tempo = intmetro.ClampTempo(bpm)
	}
}

func WithBeatsPerMeasure(n int) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.metronome.BeatsPerMeasure = n
	}
}

func WithAccentFirstBeat(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.metronome.AccentFirstBeat = enabled
	}
}

func WithLookahead(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.lookahead = d.Seconds()
	}
}

func WithTickInterval(d time.Duration) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.tickInterval = d
	}
}

// WithManualTicks disables the scheduler goroutine. The caller drives
// scheduling with Tick.
func WithManualTicks(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.manualTicks = enabled
	}
}

func WithViewport(vp intscroll.Viewport) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.viewport = vp
	}
}

func WithAutoScroll(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.autoScroll = enabled
	}
}

// WithStore restores settings from s and writes changes back to it.
func WithStore(s *intstore.Store) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.store = s
	}
}

func WithLogger(entry *logrus.Entry) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.logger = entry
	}
}

func WithAutoStart(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.autoStart = enabled
	}
}

func WithSyncTempo(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.syncTempo = enabled
	}
}

func WithVideoOffset(seconds float64) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.offset = seconds
	}
}

// WithConfig applies a loaded configuration file. Options after it still
// override individual values.
func WithConfig(c intconfig.Config) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.sampleRate = c.Audio.SampleRate
		cfg.audioOutput = c.Audio.Enabled
		cfg.audioBuffer = c.Audio.Buffer
		cfg.metronome = intmetro.Config{
			Tempo:           c.Metronome.Tempo,
			BeatsPerMeasure: c.Metronome.BeatsPerMeasure,
			BeatUnit:        c.Metronome.BeatUnit,
			AccentFirstBeat: c.Metronome.AccentFirstBeat,
		}
		cfg.lookahead = c.Metronome.Lookahead.Seconds()
		cfg.tickInterval = c.Metronome.TickInterval
		cfg.viewport = intscroll.Viewport{LineHeight: c.Scroll.LineHeight, Height: c.Scroll.ViewportHeight}
		cfg.autoScroll = c.Scroll.AutoScroll
		cfg.autoStart = c.Metronome.AutoStart
		cfg.syncTempo = c.Metronome.SyncTempo
		cfg.offset = c.Metronome.Offset
	}
}

// Session ties a tab document to video playback: it scrolls the text along
// with the video and keeps a metronome in step with it.
type Session struct {
	id  string
	log *logrus.Entry

	mu   sync.Mutex
	text string
	doc  inttab.Document

	follower *intscroll.Follower
	runner   *intmetro.Runner
	video    *intmetro.VideoSync
	taps     intmetro.TapTempo
	click    *intclick.Engine
	clicks   bool
	audio    *intaudio.Player
	store    *intstore.Store

	eventCh   chan Event
	eventChMu sync.Mutex
}

func NewSession(opts ...SessionOption) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}

	s := &Session{
		id:    uuid.NewString(),
		store: cfg.store,
	}
	log := cfg.logger
	if log == nil {
		log = logrus.NewEntry(newDefaultLogger())
	}
	s.log = log.WithField("session", s.id)
	s.restoreSettings(&cfg)

	s.click = intclick.New(cfg.sampleRate, intclick.DefaultParams())
	clock := cfg.clock
	if clock == nil {
		if cfg.audioOutput {
			clock = s.click
		} else {
			clock = intmetro.NewWallClock()
		}
	}

	if cfg.audioOutput {
		backend, err := intaudio.NewPlayer(cfg.sampleRate, s.click, cfg.audioBuffer)
		if err != nil {
			return nil, fmt.Errorf("opening audio output: %w", err)
		}
		s.audio = backend
		s.clicks = true
	}

	s.runner = intmetro.NewRunner(cfg.metronome, clock, intmetro.SinkFunc(s.onBeat), intmetro.RunnerOptions{
		Lookahead:    cfg.lookahead,
		TickInterval: cfg.tickInterval,
		Manual:       cfg.manualTicks,
		OnState:      s.onMetronomeState,
	})
	s.video = intmetro.NewVideoSync(s.runner, intmetro.VideoSyncOptions{
		AutoStart: cfg.autoStart,
		SyncTempo: cfg.syncTempo,
		Offset:    cfg.offset,
	})
	s.follower = intscroll.NewFollower(cfg.viewport, intscroll.Options{
		OnScroll: func(pos intscroll.Position) {
			s.sendEvent(Event{Kind: EventScroll, Position: pos})
		},
	})
	s.follower.SetAutoScroll(cfg.autoScroll)

	if s.audio != nil {
		s.audio.Play()
	}
	if saved, ok := s.savedTab(); ok {
		s.load(saved, false)
	}
	s.log.WithFields(logrus.Fields{
		"tempo":       cfg.metronome.Tempo,
		"audio":       cfg.audioOutput,
		"sample_rate": cfg.sampleRate,
	}).Debug("session ready")
	return s, nil
}

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

func (s *Session) ID() string { return s.id }

// LoadText replaces the tab text, applies its tempo, time signature and
// offset metadata, and stores it as the last loaded tab.
func (s *Session) LoadText(text string) inttab.Document {
	return s.load(text, true)
}

func (s *Session) load(text string, persist bool) inttab.Document {
	doc := inttab.Parse(text)
	s.mu.Lock()
	s.text = text
	s.doc = doc
	s.mu.Unlock()

	s.follower.SetText(text)
	s.applyMetadata(doc)
	if persist {
		s.saveSetting(intstore.KeyTab, text)
	}
	s.sendEvent(Event{Kind: EventMetadataLoaded, Document: doc})
	s.log.WithFields(logrus.Fields{
		"title":   doc.Metadata[inttab.KeyTitle],
		"anchors": len(s.follower.Anchors()),
	}).Info("tab loaded")
	return doc
}

func (s *Session) applyMetadata(doc inttab.Document) {
	if bpm, ok := doc.Tempo(); ok {
		s.SetTempo(bpm)
	}
	if beats, unit, ok := doc.TimeSignature(); ok {
		s.SetTimeSignature(beats, unit)
	}
	if offset, ok := doc.VideoOffset(); ok {
		s.SetVideoOffset(offset)
	}
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) Document() inttab.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Lines classifies every line of the current text.
func (s *Session) Lines() []inttab.Classification {
	return inttab.Lines(s.Text())
}

func (s *Session) Anchors() []inttab.Anchor {
	return s.follower.Anchors()
}

// Format normalizes the blank-line layout of the current text and reloads
// it.
func (s *Session) Format() string {
	formatted := inttab.Format(s.Text())
	s.LoadText(formatted)
	return formatted
}

func (s *Session) SetViewport(vp intscroll.Viewport) {
	s.follower.SetViewport(vp)
}

func (s *Session) SetAutoScroll(enabled bool) {
	s.follower.SetAutoScroll(enabled)
}

// OnVideoProgress takes one playback sample. It moves the viewport while
// the video plays and starts a metronome waiting on the video offset.
func (s *Session) OnVideoProgress(current, duration float64) intscroll.Position {
	pos, _ := s.follower.OnProgress(intscroll.Sample{CurrentTime: current, Duration: duration})
	s.video.OnProgress(current)
	return pos
}

func (s *Session) OnVideoState(state intscroll.VideoState, current float64) {
	s.follower.OnState(state)
	s.video.OnState(state, current)
	s.log.WithFields(logrus.Fields{"state": state.String(), "time": current}).Debug("video state")
}

func (s *Session) OnVideoLoopRestart() {
	s.video.OnLoopRestart()
}

func (s *Session) OnPlaybackRate(rate float64) {
	s.video.OnPlaybackRate(rate)
}

func (s *Session) StartMetronome() {
	s.click.Reset()
	s.runner.Start()
}

// PauseMetronome keeps clicks already queued for the audio device.
func (s *Session) PauseMetronome() {
	s.runner.Pause()
}

func (s *Session) ResumeMetronome() {
	s.runner.Resume()
}

func (s *Session) StopMetronome() {
	s.runner.Stop()
}

// Tick schedules due beats. Only needed with WithManualTicks.
func (s *Session) Tick() []intmetro.Beat {
	return s.runner.Tick()
}

func (s *Session) MetronomeStatus() intmetro.Status {
	return s.runner.Status()
}

// SetTempo sets the tempo at normal playback speed. With tempo sync on, the
// running tempo is scaled by the current playback rate.
func (s *Session) SetTempo(bpm int) {
	s.video.SetBaseTempo(bpm)
	s.saveSetting(intstore.KeyTempo, strconv.Itoa(s.video.BaseTempo()))
}

// Tempo is the running tempo after playback-rate scaling.
func (s *Session) Tempo() int {
	return s.runner.Status().Tempo
}

func (s *Session) SetBeatsPerMeasure(n int) {
	s.runner.SetBeatsPerMeasure(n)
	st := s.runner.Status()
	s.saveSetting(intstore.KeyTimeSignature, formatSignature(st.BeatsPerMeasure, st.BeatUnit))
}

func (s *Session) SetTimeSignature(beats, unit int) {
	s.runner.SetBeatUnit(unit)
	s.SetBeatsPerMeasure(beats)
}

func (s *Session) SetAccentFirstBeat(enabled bool) {
	s.runner.SetAccentFirstBeat(enabled)
	s.saveSetting(intstore.KeyAccentFirst, strconv.FormatBool(enabled))
}

func (s *Session) SetVideoOffset(seconds float64) {
	s.video.SetOffset(seconds)
	s.saveSetting(intstore.KeyOffset, strconv.FormatFloat(s.video.Offset(), 'f', -1, 64))
}

func (s *Session) VideoOffset() float64 { return s.video.Offset() }

func (s *Session) SetAutoStart(enabled bool) {
	s.video.SetAutoStart(enabled)
	s.saveSetting(intstore.KeyAutoStart, strconv.FormatBool(enabled))
}

func (s *Session) SetSyncTempo(enabled bool) {
	s.video.SetSyncTempo(enabled)
	s.saveSetting(intstore.KeySyncTempo, strconv.FormatBool(enabled))
}

// Tap records a tap-tempo press. Once enough taps are in, the estimated
// tempo is applied and returned.
func (s *Session) Tap() (int, bool) {
	return s.tapAt(time.Now())
}

func (s *Session) tapAt(now time.Time) (int, bool) {
	bpm, ok := s.taps.Tap(now)
	if ok {
		s.SetTempo(bpm)
	}
	return bpm, ok
}

// Watch returns a channel that receives session events:
//   - EventMetadataLoaded: a tab was loaded or formatted (Document set)
//   - EventScroll: a progress sample moved the viewport (Position set)
//   - EventBeat: a beat was scheduled (Beat set)
//   - EventMetronomeState: the metronome changed state or tempo (Status set)
//
// The channel is buffered (cap 64) and events are dropped when it is full.
// Only the most recent Watch() channel receives events.
func (s *Session) Watch() <-chan Event {
	ch := make(chan Event, eventBuffer)
	s.eventChMu.Lock()
	s.eventCh = ch
	s.eventChMu.Unlock()
	return ch
}

// Close stops the metronome and the audio output. The store is owned by
// the caller and stays open.
func (s *Session) Close() error {
	s.runner.Stop()
	if s.audio == nil {
		return nil
	}
	s.log.WithField("played", s.audio.Position()).Debug("closing audio output")
	return s.audio.Stop()
}

func (s *Session) onBeat(b intmetro.Beat) {
	if s.clicks {
		s.click.ScheduleBeat(b)
	}
	s.sendEvent(Event{Kind: EventBeat, Beat: b})
}

// onMetronomeState runs for manual and video-driven changes alike. A stop
// drops queued clicks; a pause leaves them to sound.
func (s *Session) onMetronomeState(st intmetro.Status) {
	if st.State == intmetro.Stopped {
		s.click.Reset()
	}
	s.sendEvent(Event{Kind: EventMetronomeState, Status: st})
	s.log.WithFields(logrus.Fields{
		"state": st.State.String(),
		"tempo": st.Tempo,
		"beats": st.BeatsPerMeasure,
	}).Debug("metronome")
}

func (s *Session) sendEvent(ev Event) {
	s.eventChMu.Lock()
	ch := s.eventCh
	s.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) savedTab() (string, bool) {
	if s.store == nil {
		return "", false
	}
	text, err := s.store.Get(intstore.KeyTab)
	if err != nil {
		if !errors.Is(err, intstore.ErrNotFound) {
			s.log.WithError(err).Warn("reading saved tab")
		}
		return "", false
	}
	return text, true
}

func (s *Session) saveSetting(key, value string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(key, value); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("saving setting")
	}
}

// restoreSettings overlays stored values on cfg. Unreadable values are
// logged and skipped.
func (s *Session) restoreSettings(cfg *sessionConfig) {
	if s.store == nil {
		return
	}
	skip := func(key string, err error) bool {
		if err == nil {
			return false
		}
		if !errors.Is(err, intstore.ErrNotFound) {
			s.log.WithError(err).WithField("key", key).Warn("restoring setting")
		}
		return true
	}

	if v, err := s.store.GetInt(intstore.KeyTempo); !skip(intstore.KeyTempo, err) {
		cfg.metronome.Tempo = intmetro.ClampTempo(v)
	}
	if v, err := s.store.Get(intstore.KeyTimeSignature); !skip(intstore.KeyTimeSignature, err) {
		if beats, unit, ok := parseSignature(v); ok {
			cfg.metronome.BeatsPerMeasure = beats
			cfg.metronome.BeatUnit = unit
		}
	}
	if v, err := s.store.GetFloat(intstore.KeyOffset); !skip(intstore.KeyOffset, err) {
		cfg.offset = inttab.ClampOffset(v)
	}
	if v, err := s.store.GetBool(intstore.KeyAccentFirst); !skip(intstore.KeyAccentFirst, err) {
		cfg.metronome.AccentFirstBeat = v
	}
	if v, err := s.store.GetBool(intstore.KeyAutoStart); !skip(intstore.KeyAutoStart, err) {
		cfg.autoStart = v
	}
	if v, err := s.store.GetBool(intstore.KeySyncTempo); !skip(intstore.KeySyncTempo, err) {
		cfg.syncTempo = v
	}
}

func formatSignature(beats, unit int) string {
	return strconv.Itoa(beats) + "/" + strconv.Itoa(unit)
}

func parseSignature(v string) (int, int, bool) {
	num, den, found := strings.Cut(strings.TrimSpace(v), "/")
	if !found {
		return 0, 0, false
	}
	beats, err := strconv.Atoi(num)
	if err != nil || beats < 1 || beats > intmetro.MaxBeatsPerMeasure {
		return 0, 0, false
	}
	unit, err := strconv.Atoi(den)
	if err != nil || unit < 1 {
		return 0, 0, false
	}
	return beats, unit, true
}
