// Package cli implements the coopsched command line.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"coopsched/internal/logging"
	"coopsched/internal/sched"
)

// env carries what the persistent flags resolve to.
type env struct {
	configPath string
	logLevel   string
	logFormat  string
	fps        int
	fpsSet     bool

	cfg    sched.Config
	logger *slog.Logger
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:   "coopsched",
		Short: "Cooperative time-slicing scheduler",
		Long: `coopsched runs prioritized, resumable work on a single run loop,
yielding back to the loop every few milliseconds.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.fpsSet = cmd.Flags().Changed("fps")
			return e.setup(cmd)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&e.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	root.PersistentFlags().StringVar(&e.logFormat, "log-format", "", "Log format (text, json); overrides the config")
	root.PersistentFlags().IntVar(&e.fps, "fps", 0, "Force a frame rate (1-125, 0 resets to the configured interval)")

	root.AddCommand(
		newDemoCmd(e),
		newScriptCmd(e),
		newConfigCmd(e),
	)
	return root
}

// setup loads the config and builds the logger. A config file that cannot
// be read is reported and the defaults are used instead.
func (e *env) setup(cmd *cobra.Command) error {
	cfg, loadErr := sched.Load(e.configPath)
	if e.logLevel != "" {
		cfg.LogLevel = e.logLevel
	}
	if e.logFormat != "" {
		cfg.LogFormat = e.logFormat
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if !logging.ValidFormat(cfg.LogFormat) {
		return fmt.Errorf("unknown log format %q", cfg.LogFormat)
	}

	e.cfg = cfg
	e.logger = logging.NewWithWriter(level, cfg.LogFormat, cmd.ErrOrStderr())
	if loadErr != nil {
		e.logger.Warn("using default config", "error", loadErr)
	}
	return nil
}

// newScheduler builds a scheduler on h that reports events to sinks, to the
// debug log and, when cfg names one, to a CSV event log. The returned close
// function flushes the event log.
func (e *env) newScheduler(cfg sched.Config, h sched.Host, sinks []sched.EventSink, opts ...sched.Option) (*sched.Scheduler, func() error, error) {
	closeLog := func() error { return nil }
	sinks = append(sinks, sched.LogSink{Logger: e.logger})
	if cfg.EventLog != "" {
		csv, err := sched.OpenCSVSink(cfg.EventLog)
		if err != nil {
			return nil, nil, fmt.Errorf("open event log: %w", err)
		}
		sinks = append(sinks, csv)
		closeLog = csv.Close
	}

	base := []sched.Option{
		sched.WithConfig(cfg),
		sched.WithLogger(e.logger),
		sched.WithEventSink(sched.MultiSink(sinks)),
	}
	s := sched.New(h, append(base, opts...)...)

	if e.fpsSet {
		if err := s.ForceFrameRate(e.fps); err != nil {
			closeLog()
			return nil, nil, fmt.Errorf("--fps %d: %w", e.fps, err)
		}
	}
	return s, closeLog, nil
}
