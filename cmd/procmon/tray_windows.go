//go:build windows

package main

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/getlantern/systray"

	"procmon/internal/utils"
	"procmon/internal/version"
)

const trayAvailable = true

// runTray shows a tray icon whose gauge and tooltip follow the latest CPU and
// RAM readings, with the most recent alerts in a submenu. It blocks until the
// tray exits.
func runTray(ctx context.Context, feed trayFeed, quit context.CancelFunc, logger *utils.Logger) {
	onReady := func() {
		setGaugeIcon(0, feed.thresholds().CPUAlert, logger)
		systray.SetTitle("procmon")
		systray.SetTooltip(fmt.Sprintf("procmon %s", version.String()))

		mStatus := systray.AddMenuItem("Waiting for data", "Latest readings")
		mStatus.Disable()
		mAlerts := systray.AddMenuItem("No alerts yet", "Most recent alerts")
		alertItems := make([]*systray.MenuItem, trayRecentAlerts)
		for i := range alertItems {
			alertItems[i] = mAlerts.AddSubMenuItem("", "")
			alertItems[i].Disable()
			alertItems[i].Hide()
		}
		mLogs := systray.AddMenuItem("Open Logs Folder", "Open logs directory")
		systray.AddSeparator()
		mQuit := systray.AddMenuItem("Quit", "Stop monitoring")

		go func() {
			<-ctx.Done()
			systray.Quit()
		}()

		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			lastLevel, lastAlert := -1, -1
			var lastAlertID int64
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if recent := feed.recent(trayRecentAlerts); len(recent) > 0 && recent[0].ID != lastAlertID {
						lastAlertID = recent[0].ID
						mAlerts.SetTitle("Recent alerts")
						for i, title := range alertMenuTitles(recent) {
							alertItems[i].SetTitle(title)
							alertItems[i].Show()
						}
					}
					stats, ok := feed.board.Load()
					if !ok {
						continue
					}
					status := fmt.Sprintf("CPU %.1f %%  RAM %.1f %%  GPU %s", stats.CPU, stats.RAM, stats.GPUText)
					systray.SetTooltip("procmon\n" + status)
					mStatus.SetTitle(status)
					alert := feed.thresholds().CPUAlert
					if level := gaugeLevel(stats.CPU); level != lastLevel || alert != lastAlert {
						lastLevel, lastAlert = level, alert
						setGaugeIcon(level, alert, logger)
					}
				case <-mLogs.ClickedCh:
					if f := logger.File(); f != nil {
						logger.Write("Tray: Open Logs Folder")
						_ = exec.Command("explorer", filepath.Dir(f.Name())).Start()
					}
				case <-mQuit.ClickedCh:
					logger.Write("Tray: Quit")
					quit()
				}
			}
		}()
	}

	systray.Run(onReady, func() {})
}

func setGaugeIcon(level, alert int, logger *utils.Logger) {
	data, err := encodeICO(drawGauge(level, alert))
	if err != nil {
		logger.Warnf("Tray: icon encode failed: %v", err)
		return
	}
	systray.SetIcon(data)
}
