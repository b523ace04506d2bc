package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"procmon/internal/config"
	"procmon/internal/history"
	"procmon/internal/manager"
	"procmon/internal/models"
	"procmon/internal/version"
)

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent persisted samples, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1")
			}
			p, logger, _, err := opts.setup()
			if err != nil {
				return err
			}
			defer logger.Close()

			store, err := history.NewSQLiteStore(p.HistoryDB(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.LoadTail(cmd.Context(), limit)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), records, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", manager.HistorySize, "Number of samples to print")
	return cmd
}

func printHistory(w io.Writer, records []models.Sample, total int64) {
	if len(records) == 0 {
		fmt.Fprintln(w, "no samples recorded")
		return
	}
	fmt.Fprintf(w, "%-26s %7s %7s %7s %10s\n", "TIMESTAMP", "CPU", "RAM", "GPU", "FAN")
	for _, r := range records {
		fmt.Fprintf(w, "%-26s %6.1f%% %6.1f%% %7s %10s\n",
			r.Timestamp.Format("2006-01-02 15:04:05.000"),
			r.CPUPercent, r.RAMPercent, r.GPUText(), r.FanText())
	}
	fmt.Fprintf(w, "%d of %d samples\n", len(records), total)
}

func newSweepCmd(opts *options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete samples older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, logger, settings, err := opts.setup()
			if err != nil {
				return err
			}
			defer logger.Close()
			if days == 0 {
				days = settings.RetentionDays()
			}
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}

			store, err := history.NewSQLiteStore(p.HistoryDB(), logger)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Sweep(cmd.Context(), days, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d samples older than %d days\n", removed, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default: days_to_keep from settings)")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	var (
		cpuAlert, ramAlert, gpuAlert, processAlert, days int
		webhook                                          string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change alert thresholds and retention",
		Long:  "Without flags, prints the current settings. Flags change the named fields; a running monitor picks the change up on its next tick.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, logger, settings, err := opts.setup()
			if err != nil {
				return err
			}
			defer logger.Close()

			flags := cmd.Flags()
			changed := false
			for _, name := range []string{"cpu-alert", "ram-alert", "gpu-alert", "process-alert", "days", "discord-webhook"} {
				changed = changed || flags.Changed(name)
			}
			if changed {
				err := settings.Update(func(s *config.Settings) {
					if flags.Changed("cpu-alert") {
						s.CPUAlert = cpuAlert
					}
					if flags.Changed("ram-alert") {
						s.RAMAlert = ramAlert
					}
					if flags.Changed("gpu-alert") {
						s.GPUAlert = gpuAlert
					}
					if flags.Changed("process-alert") {
						s.ProcessAlert = processAlert
					}
					if flags.Changed("days") {
						s.DaysToKeep = days
					}
					if flags.Changed("discord-webhook") {
						s.DiscordWebhook = webhook
					}
				})
				if err != nil {
					return err
				}
				logger.Infof("Settings updated in %s", settings.Path())
			}
			printSettings(cmd.OutOrStdout(), settings.Path(), settings.Settings())
			return nil
		},
	}
	cmd.Flags().IntVar(&cpuAlert, "cpu-alert", 0, "CPU alert level in percent")
	cmd.Flags().IntVar(&ramAlert, "ram-alert", 0, "RAM alert level in percent")
	cmd.Flags().IntVar(&gpuAlert, "gpu-alert", 0, "GPU alert level in percent")
	cmd.Flags().IntVar(&processAlert, "process-alert", 0, "Per-process CPU alert level in percent")
	cmd.Flags().IntVar(&days, "days", 0, "Days of history to keep")
	cmd.Flags().StringVar(&webhook, "discord-webhook", "", "Discord webhook URL for alerts (empty to disable)")
	return cmd
}

func printSettings(w io.Writer, path string, s config.Settings) {
	webhook := s.DiscordWebhook
	if webhook == "" {
		webhook = "(none)"
	}
	fmt.Fprintf(w, "settings file   %s\n", path)
	fmt.Fprintf(w, "cpu_alert       %d %%\n", s.CPUAlert)
	fmt.Fprintf(w, "ram_alert       %d %%\n", s.RAMAlert)
	fmt.Fprintf(w, "gpu_alert       %d %%\n", s.GPUAlert)
	fmt.Fprintf(w, "process_alert   %d %%\n", s.ProcessAlert)
	fmt.Fprintf(w, "days_to_keep    %d\n", s.DaysToKeep)
	fmt.Fprintf(w, "discord_webhook %s\n", webhook)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Details())
		},
	}
}
