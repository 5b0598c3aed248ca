package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cbegin/tabioke-go/internal/metronome"
	"github.com/cbegin/tabioke-go/internal/tab"
)

const (
	EnvDBPath   = "TABIOKE_DB_PATH"
	EnvLogLevel = "TABIOKE_LOG_LEVEL"
)

type Config struct {
	Metronome Metronome `yaml:"metronome"`
	Scroll    Scroll    `yaml:"scroll"`
	Audio     Audio     `yaml:"audio"`
	Store     Store     `yaml:"store"`
	Log       Log       `yaml:"log"`
}

type Metronome struct {
	Tempo           int           `yaml:"tempo"`
	BeatsPerMeasure int           `yaml:"beats_per_measure"`
	BeatUnit        int           `yaml:"beat_unit"`
	AccentFirstBeat bool          `yaml:"accent_first_beat"`
	Lookahead       time.Duration `yaml:"lookahead"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	Offset          float64       `yaml:"offset"`
	AutoStart       bool          `yaml:"auto_start"`
	SyncTempo       bool          `yaml:"sync_tempo"`
}

type Scroll struct {
	LineHeight     float64 `yaml:"line_height"`
	ViewportHeight float64 `yaml:"viewport_height"`
	AutoScroll     bool    `yaml:"auto_scroll"`
}

type Audio struct {
	Enabled    bool          `yaml:"enabled"`
	SampleRate int           `yaml:"sample_rate"`
	Buffer     time.Duration `yaml:"buffer"`
}

type Store struct {
	Path string `yaml:"path"`
}

type Log struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Metronome: Metronome{
			Tempo:           metronome.DefaultTempo,
			BeatsPerMeasure: metronome.DefaultBeatsPerMeasure,
			BeatUnit:        metronome.DefaultBeatUnit,
			AccentFirstBeat: true,
			Lookahead:       100 * time.Millisecond,
			TickInterval:    metronome.DefaultTickInterval,
			AutoStart:       true,
			SyncTempo:       true,
		},
		Scroll: Scroll{
			LineHeight:     20,
			ViewportHeight: 600,
			AutoScroll:     true,
		},
		Audio: Audio{
			Enabled:    true,
			SampleRate: 48000,
			Buffer:     40 * time.Millisecond,
		},
		Store: Store{Path: "tabioke.sqlite3"},
		Log:   Log{Level: "warning"},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}
	cfg.Store.Path = getEnvOrDefault(EnvDBPath, cfg.Store.Path)
	cfg.Log.Level = getEnvOrDefault(EnvLogLevel, cfg.Log.Level)
	cfg.Normalize()
	return cfg, nil
}

// Normalize clamps out-of-range values instead of rejecting them.
func (c *Config) Normalize() {
	d := Default()
	c.Metronome.Tempo = metronome.ClampTempo(c.Metronome.Tempo)
	if c.Metronome.BeatsPerMeasure < 1 || c.Metronome.BeatsPerMeasure > metronome.MaxBeatsPerMeasure {
		c.Metronome.BeatsPerMeasure = d.Metronome.BeatsPerMeasure
	}
	if c.Metronome.BeatUnit <= 0 {
		c.Metronome.BeatUnit = d.Metronome.BeatUnit
	}
	if c.Metronome.Lookahead <= 0 {
		c.Metronome.Lookahead = d.Metronome.Lookahead
	}
	if c.Metronome.TickInterval <= 0 {
		c.Metronome.TickInterval = d.Metronome.TickInterval
	}
	c.Metronome.Offset = tab.ClampOffset(c.Metronome.Offset)
	if c.Scroll.LineHeight <= 0 {
		c.Scroll.LineHeight = d.Scroll.LineHeight
	}
	if c.Scroll.ViewportHeight <= 0 {
		c.Scroll.ViewportHeight = d.Scroll.ViewportHeight
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = d.Audio.SampleRate
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Save writes cfg as YAML.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
