package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"procmon/internal/manager"
	"procmon/internal/models"
)

// drainInterval is the minimum spacing between two console drains.
const drainInterval = 250 * time.Millisecond

var (
	colorOK      = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#EAB308")
	colorDanger  = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")

	styleLabel = lipgloss.NewStyle().Foreground(colorMuted)
	styleAlert = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorDanger).Padding(0, 1)
)

// statusBoard holds the latest stats for the tray.
type statusBoard struct {
	latest atomic.Pointer[models.StatsEvent]
}

func (b *statusBoard) Store(e models.StatsEvent) { b.latest.Store(&e) }

func (b *statusBoard) Load() (models.StatsEvent, bool) {
	e := b.latest.Load()
	if e == nil {
		return models.StatsEvent{}, false
	}
	return *e, true
}

type alertSink interface {
	Notify(models.AlertEvent)
}

type consoleOptions struct {
	quiet      bool
	styled     bool
	thresholds func() models.Thresholds
	notifier   alertSink
	board      *statusBoard
}

// console renders events as lines of text.
type console struct {
	out  io.Writer
	opts consoleOptions
}

func newConsole(out io.Writer, opts consoleOptions) *console {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		opts.styled = true
	}
	if opts.thresholds == nil {
		opts.thresholds = func() models.Thresholds { return models.Thresholds{} }
	}
	return &console{out: out, opts: opts}
}

// Run renders batches from q, at most one per drainInterval, until the queue
// is closed and empty.
func (c *console) Run(q *manager.EventQueue) {
	pace := time.NewTimer(drainInterval)
	defer pace.Stop()
	for {
		events, ok := q.Next(context.Background())
		if !ok {
			return
		}
		c.handle(events)

		pace.Reset(drainInterval)
		select {
		case <-pace.C:
		case <-q.Done():
		}
	}
}

func (c *console) handle(events []models.Event) {
	for _, e := range events {
		switch ev := e.(type) {
		case models.AlertEvent:
			if c.opts.notifier != nil {
				c.opts.notifier.Notify(ev)
			}
			fmt.Fprintln(c.out, c.alertLine(ev))
		case models.StatsEvent:
			if c.opts.board != nil {
				c.opts.board.Store(ev)
			}
			if !c.opts.quiet {
				fmt.Fprintln(c.out, c.statsLine(ev))
			}
		}
	}
}

func (c *console) statsLine(e models.StatsEvent) string {
	th := c.opts.thresholds()
	parts := []string{
		e.Timestamp.Format("15:04:05"),
		c.label("CPU") + " " + c.level(fmt.Sprintf("%5.1f %%", e.CPU), e.CPU, th.CPUAlert),
		c.label("RAM") + " " + c.level(fmt.Sprintf("%5.1f %%", e.RAM), e.RAM, th.RAMAlert),
	}
	gpu := e.GPUText
	if e.GPUPercent != nil {
		gpu = c.level(gpu, *e.GPUPercent, th.GPUAlert)
	}
	parts = append(parts, c.label("GPU")+" "+gpu, c.label("Fan")+" "+e.FanText)
	if len(e.TopProcesses) > 0 {
		top := e.TopProcesses[0]
		parts = append(parts, c.label("Top")+" "+fmt.Sprintf("%s (%d) %.1f %%", top.Name, top.PID, top.CPUPercent))
	}
	return strings.Join(parts, "  ")
}

func (c *console) alertLine(e models.AlertEvent) string {
	head := strings.ToUpper(e.Title())
	body := strings.ReplaceAll(e.Message(), "\n\n", " ")
	body = strings.ReplaceAll(body, "\n", ", ")
	if c.opts.styled {
		head = styleAlert.Render(head)
	}
	return e.Timestamp.Format("15:04:05") + "  " + head + " " + body
}

func (c *console) label(s string) string {
	if !c.opts.styled {
		return s
	}
	return styleLabel.Render(s)
}

// level colors a reading by its distance to the alert level.
func (c *console) level(text string, value float64, alert int) string {
	if !c.opts.styled || alert <= 0 {
		return text
	}
	color := colorOK
	switch {
	case value > float64(alert):
		color = colorDanger
	case value > float64(alert-manager.ResetHysteresis):
		color = colorWarning
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
