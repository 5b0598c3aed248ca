package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cbegin/tabioke-go"
	"github.com/cbegin/tabioke-go/internal/store"
	"github.com/cbegin/tabioke-go/internal/tab"
)

type clickFlags struct {
	bpm      int
	beats    int
	unit     int
	noAccent bool
	seconds  float64
}

func (f *clickFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.bpm, "bpm", 0, "tempo in beats per minute (default from config)")
	cmd.Flags().IntVar(&f.beats, "beats", 0, "beats per measure (default from config)")
	cmd.Flags().IntVar(&f.unit, "unit", 0, "beat unit, e.g. 4 or 8 (default from config)")
	cmd.Flags().BoolVar(&f.noAccent, "no-accent", false, "do not accent the first beat of each measure")
	cmd.Flags().Float64Var(&f.seconds, "seconds", 8, "length in seconds")
}

func (a *app) clickConfig(f clickFlags) tabioke.ClickConfig {
	m := a.cfg.Metronome
	cfg := tabioke.ClickConfig{
		Tempo:           m.Tempo,
		BeatsPerMeasure: m.BeatsPerMeasure,
		BeatUnit:        m.BeatUnit,
		AccentFirstBeat: m.AccentFirstBeat && !f.noAccent,
		SampleRate:      a.cfg.Audio.SampleRate,
		Lookahead:       m.Lookahead,
		TickInterval:    m.TickInterval,
	}
	if f.bpm > 0 {
		cfg.Tempo = f.bpm
	}
	if f.beats > 0 {
		cfg.BeatsPerMeasure = f.beats
	}
	if f.unit > 0 {
		cfg.BeatUnit = f.unit
	}
	return cfg
}

func (a *app) metronomeCmd() *cobra.Command {
	var flags clickFlags
	cmd := &cobra.Command{
		Use:   "metronome",
		Short: "play metronome clicks on the audio device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := a.clickConfig(flags)
			s, err := tabioke.NewSession(
				tabioke.WithConfig(a.cfg),
				tabioke.WithAudioOutput(true),
				tabioke.WithTempo(cc.Tempo),
				tabioke.WithBeatsPerMeasure(cc.BeatsPerMeasure),
				tabioke.WithAccentFirstBeat(cc.AccentFirstBeat),
				tabioke.WithLogger(logrus.NewEntry(a.log)),
			)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if flags.seconds > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(flags.seconds*float64(time.Second)))
				defer cancel()
			}

			events := s.Watch()
			s.StartMetronome()
			out := cmd.OutOrStdout()
			for {
				select {
				case <-ctx.Done():
					s.StopMetronome()
					return nil
				case ev := <-events:
					if ev.Kind != tabioke.EventBeat {
						continue
					}
					mark := "."
					if ev.Beat.Accented {
						mark = "*"
					}
					fmt.Fprintf(out, "%s beat %d  %.3fs\n", mark, ev.Beat.Index+1, ev.Beat.Time)
				}
			}
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	var (
		flags   clickFlags
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "render a click track to a .wav or .mid file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := a.clickConfig(flags)
			var buf bytes.Buffer
			switch ext := strings.ToLower(filepath.Ext(outPath)); ext {
			case ".wav":
				samples := tabioke.RenderClickTrack(cc, flags.seconds)
				buf.Write(tabioke.EncodeWAVFloat32LE(samples, cc.SampleRate, 2))
			case ".mid", ".midi":
				if err := tabioke.ExportClickMIDI(&buf, cc, measuresFor(cc, flags.seconds)); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported output extension %q (want .wav or .mid)", ext)
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s)\n", outPath, humanize.Bytes(uint64(buf.Len())))
			a.log.WithFields(logrus.Fields{"tempo": cc.Tempo, "beats": cc.BeatsPerMeasure}).Debug("rendered click track")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "o", "click.wav", "output file (.wav or .mid)")
	return cmd
}

// measuresFor rounds seconds up to whole measures, at least one.
func measuresFor(cc tabioke.ClickConfig, seconds float64) int {
	if cc.Tempo <= 0 || cc.BeatsPerMeasure <= 0 || !(seconds > 0) {
		return 1
	}
	beats := seconds * float64(cc.Tempo) / 60
	return max(1, int(math.Ceil(beats/float64(cc.BeatsPerMeasure))))
}

func (a *app) openStore() (*store.Store, error) {
	s, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.log.WithField("path", a.cfg.Store.Path).Debug("opened settings store")
	return s, nil
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [file]",
		Short: "load a tab into the saved session and apply its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTab(args[0])
			if err != nil {
				return err
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			s, err := tabioke.NewSession(
				tabioke.WithConfig(a.cfg),
				tabioke.WithAudioOutput(false),
				tabioke.WithStore(st),
				tabioke.WithLogger(logrus.NewEntry(a.log)),
			)
			if err != nil {
				return err
			}
			defer s.Close()

			doc := s.LoadText(text)
			status := s.MetronomeStatus()
			out := cmd.OutOrStdout()
			title := doc.Metadata[tab.KeyTitle]
			if title == "" {
				title = filepath.Base(args[0])
			}
			fmt.Fprintf(out, "loaded %q\n", title)
			fmt.Fprintf(out, "tempo %d bpm, %d/%d, offset %.2fs, %d anchors\n",
				status.Tempo, status.BeatsPerMeasure, status.BeatUnit, s.VideoOffset(), len(s.Anchors()))
			return nil
		},
	}
}

func (a *app) settingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "list the saved session settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			rows, err := st.All()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, row := range rows {
				value := row.Value
				if row.Key == store.KeyTab {
					value = humanize.Bytes(uint64(len(value))) + " of tab text"
				}
				fmt.Fprintf(out, "%-24s %-24s %s\n", row.Key, value, humanize.Time(row.UpdatedAt))
			}
			return nil
		},
	}
}
