package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cbegin/tabioke-go/internal/config"
)

type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tabioke",
		Short:         "guitar tab tools: parse, format, scroll sync and metronome",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "",
		"path to a YAML config file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "",
		"settings database path (overrides config)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level: debug, info, warning, error (overrides config)")

	root.AddCommand(
		a.parseCmd(),
		a.classifyCmd(),
		a.formatCmd(),
		a.anchorsCmd(),
		a.scrollCmd(),
		a.metronomeCmd(),
		a.renderCmd(),
		a.loadCmd(),
		a.settingsCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Store.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}

	a.cfg = cfg
	a.log = logrus.New()
	a.log.SetOutput(cmd.ErrOrStderr())
	a.log.SetLevel(level)
	a.log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
