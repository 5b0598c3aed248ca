package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"github.com/spf13/cobra"

	"github.com/cbegin/tabioke-go/internal/scroll"
	"github.com/cbegin/tabioke-go/internal/tab"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

func readTab(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading tab %s: %w", path, err)
	}
	return strings.ReplaceAll(string(data), "\r\n", "\n"), nil
}

func (a *app) parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "print header metadata, chord shapes and strumming of a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTab(args[0])
			if err != nil {
				return err
			}
			doc := tab.Parse(text)
			out := cmd.OutOrStdout()
			for _, line := range doc.HeaderLines() {
				fmt.Fprintln(out, line)
			}
			if bpm, ok := doc.Tempo(); ok {
				fmt.Fprintf(out, "tempo: %d bpm\n", bpm)
			}
			if beats, unit, ok := doc.TimeSignature(); ok {
				fmt.Fprintf(out, "time signature: %d/%d\n", beats, unit)
			}
			if id, ok := doc.VideoID(); ok {
				fmt.Fprintf(out, "video: %s\n", id)
			}
			if off, ok := doc.VideoOffset(); ok {
				fmt.Fprintf(out, "offset: %.2fs\n", off)
			}
			for _, c := range doc.Chords() {
				fmt.Fprintf(out, "chord %s: frets %v base %d fingers %v\n", c.Name, c.Positions(), c.BaseFret(), c.Fingers())
			}
			if strokes := doc.Strumming(); len(strokes) > 0 {
				fmt.Fprintf(out, "strumming: %s (%d strokes)\n", doc.Metadata[tab.KeyStrummingPattern], len(strokes))
			}
			fmt.Fprintf(out, "strings: %d\n", doc.StringCount())
			body := 0
			if doc.Body != "" {
				body = strings.Count(doc.Body, "\n") + 1
			}
			fmt.Fprintf(out, "body lines: %d\n", body)
			a.log.WithField("file", args[0]).Debug("parsed")
			return nil
		},
	}
}

func (a *app) classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [file]",
		Short: "print the category, comment column and timestamps of each line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTab(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			lines := strings.Split(text, "\n")
			for i, c := range tab.Lines(text) {
				var extra []string
				if c.Comment != nil {
					extra = append(extra, fmt.Sprintf("comment@%d", c.Comment.Start))
				}
				for _, ts := range c.Timestamps {
					extra = append(extra, fmt.Sprintf("time@%d=%gs", ts.Start, ts.Seconds))
				}
				fmt.Fprintf(out, "%4d %-9s %-9s %s\t%s\n", i+1, c.Category, c.Style(), strings.Join(extra, ","), lines[i])
			}
			return nil
		},
	}
}

func (a *app) formatCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "format [file]",
		Short: "normalize blank-line spacing of a tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTab(args[0])
			if err != nil {
				return err
			}
			formatted := tab.Format(text)
			if !write {
				fmt.Fprintln(cmd.OutOrStdout(), formatted)
				return nil
			}
			if err := os.WriteFile(args[0], []byte(formatted+"\n"), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", args[0], err)
			}
			a.log.WithField("file", args[0]).Info("formatted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "rewrite the file in place")
	return cmd
}

func (a *app) anchorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "anchors [file]",
		Short: "list timestamp anchors in playback order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTab(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			anchors := tab.ExtractTimestamps(text)
			if len(anchors) == 0 {
				fmt.Fprintln(out, "no timestamps")
				return nil
			}
			lines := strings.Split(text, "\n")
			for _, an := range anchors {
				fmt.Fprintf(out, "%-8s line %-4d %s\n", formatSeconds(an.Time), an.Line+1, strings.TrimSpace(lines[an.Line]))
			}
			return nil
		},
	}
}

// formatSeconds renders a playback time compactly, e.g. "1m 5s".
func formatSeconds(sec float64) string {
	if sec <= 0 {
		return "0s"
	}
	d := time.Duration(sec * float64(time.Second))
	return durafmt.Parse(d).LimitFirstN(2).Format(shortUnits)
}

func (a *app) scrollCmd() *cobra.Command {
	var (
		duration   float64
		step       float64
		lineHeight float64
		viewport   float64
	)
	cmd := &cobra.Command{
		Use:   "scroll [file]",
		Short: "simulate the scroll offsets produced while a video plays",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTab(args[0])
			if err != nil {
				return err
			}
			if !(duration > 0) || !(step > 0) {
				return fmt.Errorf("duration and step must be positive")
			}
			if lineHeight <= 0 {
				lineHeight = a.cfg.Scroll.LineHeight
			}
			if viewport <= 0 {
				viewport = a.cfg.Scroll.ViewportHeight
			}
			f := scroll.NewFollower(scroll.Viewport{LineHeight: lineHeight, Height: viewport}, scroll.Options{})
			f.SetText(text)
			f.OnState(scroll.VideoPlaying)
			vp := f.Viewport()

			out := cmd.OutOrStdout()
			for t := 0.0; t <= duration; t += step {
				pos, _ := f.OnProgress(scroll.Sample{CurrentTime: t, Duration: duration})
				fmt.Fprintf(out, "%-8s %5.1f%%  offset %7.1f  line %d\n",
					formatSeconds(t), pos.Progress*100, pos.Offset, topLine(pos.Offset, vp))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&duration, "duration", 180, "video duration in seconds")
	cmd.Flags().Float64Var(&step, "step", 5, "sample interval in seconds")
	cmd.Flags().Float64Var(&lineHeight, "line-height", 0, "line height in pixels (default from config)")
	cmd.Flags().Float64Var(&viewport, "viewport", 0, "viewport height in pixels (default from config)")
	return cmd
}

// topLine is the first line visible at offset.
func topLine(offset float64, vp scroll.Viewport) int {
	if vp.LineHeight <= 0 {
		return 1
	}
	return int(offset/vp.LineHeight) + 1
}
