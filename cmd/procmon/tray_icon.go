package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	ico "github.com/Kodeworks/golang-image-ico"

	"procmon/internal/manager"
	"procmon/internal/models"
)

const (
	iconSize         = 32
	trayRecentAlerts = 5
)

// trayFeed is what the tray reads on every refresh.
type trayFeed struct {
	board      *statusBoard
	thresholds func() models.Thresholds
	recent     func(limit int) []manager.AlertRecord
}

// alertMenuTitles formats notifier records, newest first, for the tray menu.
func alertMenuTitles(records []manager.AlertRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		a := r.Alert
		title := fmt.Sprintf("%s  %s %.1f %%", a.Timestamp.Format("15:04:05"), a.Subject(), a.Value)
		if a.Scope == models.ScopeProcess {
			title = fmt.Sprintf("%s  %s (%d) %.1f %%", a.Timestamp.Format("15:04:05"), a.Name, a.PID, a.Value)
		}
		out = append(out, title)
	}
	return out
}

var (
	iconBackground = color.RGBA{R: 0x1E, G: 0x1B, B: 0x2E, A: 0xFF}
	iconOK         = color.RGBA{R: 0x22, G: 0xC5, B: 0x5E, A: 0xFF}
	iconWarning    = color.RGBA{R: 0xEA, G: 0xB3, B: 0x08, A: 0xFF}
	iconDanger     = color.RGBA{R: 0xEF, G: 0x44, B: 0x44, A: 0xFF}
)

// gaugeLevel buckets a percentage into the 0..10 steps drawn on the icon.
func gaugeLevel(percent float64) int {
	switch {
	case percent <= 0:
		return 0
	case percent >= 100:
		return 10
	default:
		return int(percent/10 + 0.5)
	}
}

// drawGauge renders a bar filled to level tenths, colored against alert.
func drawGauge(level, alert int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			img.Set(x, y, iconBackground)
		}
	}
	fill := iconOK
	switch {
	case alert > 0 && level*10 > alert:
		fill = iconDanger
	case alert > 0 && level*10 > alert-10:
		fill = iconWarning
	}
	const margin = 4
	height := (iconSize - 2*margin) * level / 10
	for y := iconSize - margin - height; y < iconSize-margin; y++ {
		for x := margin; x < iconSize-margin; x++ {
			img.Set(x, y, fill)
		}
	}
	return img
}

// encodeICO wraps ico.Encode; systray on Windows expects .ico bytes.
func encodeICO(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := ico.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
