package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"procmon/internal/config"
	"procmon/internal/history"
	"procmon/internal/manager"
	"procmon/internal/utils"
	"procmon/internal/version"
)

const (
	envDataDir  = "PROCMON_DATA_DIR"
	envLogLevel = "PROCMON_LOG_LEVEL"
	envNoTray   = "PROCMON_NO_TRAY"
)

type options struct {
	configPath string
	dataDir    string
	logLevel   string
}

type runOptions struct {
	interval time.Duration
	noTray   bool
	quiet    bool
}

func envBool(key string) bool {
	val := os.Getenv(key)
	if val == "" {
		return false
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return parsed
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// paths resolves the data root: flag, then environment, then the directory
// of the executable.
func (o *options) paths() *utils.Paths {
	if o.dataDir != "" {
		return utils.NewPaths(o.dataDir)
	}
	if dir := strings.TrimSpace(os.Getenv(envDataDir)); dir != "" {
		return utils.NewPaths(dir)
	}
	return utils.DefaultPaths()
}

func (o *options) settingsPath(p *utils.Paths) string {
	if o.configPath != "" {
		return o.configPath
	}
	return filepath.Join(p.RootPath, config.FileName)
}

// setup prepares directories and returns the logger and settings.
func (o *options) setup() (*utils.Paths, *utils.Logger, *config.Store, error) {
	p := o.paths()
	logger := utils.NewLogger(p.LogFile())
	if err := logger.SetLevel(o.logLevel); err != nil {
		logger.Close()
		return nil, nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	if !p.CheckRoot() {
		if err := p.DeployRoot(logger); err != nil {
			logger.Close()
			return nil, nil, nil, err
		}
	}
	return p, logger, config.Open(o.settingsPath(p), logger), nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "procmon",
		Short:         "Host resource monitor with alerting and local history",
		Long:          `procmon samples CPU, memory, GPU and fan speed every second, alerts on sustained high usage and keeps a rolling SQLite history.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Settings file (default <data-dir>/config.json)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory for logs and history (env "+envDataDir+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envString(envLogLevel, "info"),
		"Log level. One of debug, info, warn, error.")

	root.AddCommand(
		newRunCmd(opts),
		newHistoryCmd(opts),
		newSweepCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	ropts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start monitoring until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd.Context(), opts, ropts)
		},
	}
	cmd.Flags().DurationVar(&ropts.interval, "interval", manager.DefaultInterval, "Sampling period")
	cmd.Flags().BoolVar(&ropts.noTray, "no-tray", envBool(envNoTray), "Disable the system tray icon")
	cmd.Flags().BoolVar(&ropts.quiet, "quiet", false, "Only print alerts")
	return cmd
}

func runMonitor(parent context.Context, opts *options, ropts *runOptions) error {
	trayEnabled := !ropts.noTray && trayAvailable
	if ropts.quiet && spawnDetachedIfNeeded(trayEnabled) {
		return nil
	}

	p, logger, settings, err := opts.setup()
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Infof("procmon %s starting (root=%s, settings=%s)", version.String(), p.RootPath, settings.Path())
	settings.OnReload(func(s config.Settings) {
		th := s.Thresholds()
		logger.WithFields(map[string]any{
			"cpu_alert":     th.CPUAlert,
			"ram_alert":     th.RAMAlert,
			"gpu_alert":     th.GPUAlert,
			"process_alert": th.ProcessAlert,
			"days_to_keep":  s.DaysToKeep,
		}).Info("Settings applied")
	})

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gpu := manager.DetectGPU(logger)
	defer gpu.Close()
	sampler := manager.NewHostSampler(gpu, manager.NewFanProbe(), logger)

	engine, err := manager.NewManager(manager.Options{
		Sampler: sampler,
		OpenStore: func() (manager.HistoryStore, error) {
			return history.NewSQLiteStore(p.HistoryDB(), logger)
		},
		Settings: settings,
		Logger:   logger,
		Interval: ropts.interval,
	})
	if err != nil {
		return err
	}
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("monitor cannot start: %w", err)
	}

	notifier := manager.NewAlertNotifier(settings.DiscordWebhook, logger)
	defer notifier.Close()

	go func() {
		if err := settings.Watch(ctx); err != nil {
			logger.Warnf("Settings watch stopped: %v", err)
		}
	}()

	board := &statusBoard{}
	cons := newConsole(os.Stdout, consoleOptions{
		quiet:      ropts.quiet,
		thresholds: settings.Thresholds,
		notifier:   notifier,
		board:      board,
	})
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		cons.Run(engine.Events())
	}()

	if trayEnabled {
		hideConsoleWindow()
		// systray owns the main thread until the tray exits.
		runTray(ctx, trayFeed{
			board:      board,
			thresholds: settings.Thresholds,
			recent:     notifier.RecentAlerts,
		}, stop, logger)
	}
	<-ctx.Done()
	logger.Infof("Shutdown requested")

	engine.Stop()
	<-consoleDone
	logger.Infof("procmon exited")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
