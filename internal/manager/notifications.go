package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"procmon/internal/integrations/discord"
	"procmon/internal/models"
	"procmon/internal/utils"
)

const (
	maxRecentAlerts   = 50
	alertBacklog      = 32
	alertPostTimeout  = 10 * time.Second
	alertEmbedFooter  = "procmon"
	colorSystemAlert  = 0xDC2626
	colorProcessAlert = 0xF59E0B
)

// AlertRecord is an alert kept for display in the recent list.
type AlertRecord struct {
	ID    int64             `json:"id"`
	Alert models.AlertEvent `json:"alert"`
}

// AlertNotifier keeps the most recent alerts and forwards them to a Discord
// webhook. Posting happens on its own goroutine.
type AlertNotifier struct {
	webhook func() string
	post    func(ctx context.Context, url string, payload discord.WebhookPayload) (int, error)
	log     *utils.Logger

	seq    atomic.Int64
	mu     sync.RWMutex
	recent []AlertRecord

	sendMu  sync.Mutex
	closed  bool
	pending chan models.AlertEvent
	wg      sync.WaitGroup
}

// NewAlertNotifier starts the posting worker. webhook is read on every alert
// so configuration reloads apply immediately; nil disables posting.
func NewAlertNotifier(webhook func() string, logger *utils.Logger) *AlertNotifier {
	n := &AlertNotifier{
		webhook: webhook,
		post:    discord.Post,
		log:     logger,
		pending: make(chan models.AlertEvent, alertBacklog),
	}
	n.wg.Add(1)
	go n.worker()
	return n
}

// Notify records the alert and queues it for the webhook. It never blocks; an
// alert is dropped from posting (but still recorded) when the backlog is full.
func (n *AlertNotifier) Notify(alert models.AlertEvent) {
	if n == nil {
		return
	}
	n.remember(alert)
	if n.webhookURL() == "" {
		return
	}
	n.sendMu.Lock()
	defer n.sendMu.Unlock()
	if n.closed {
		return
	}
	select {
	case n.pending <- alert:
	default:
		n.log.Warnf("Discord notify backlog full, dropping alert for %s", alert.Subject())
	}
}

// Close stops the worker after pending alerts are posted.
func (n *AlertNotifier) Close() {
	if n == nil {
		return
	}
	n.sendMu.Lock()
	if n.closed {
		n.sendMu.Unlock()
		return
	}
	n.closed = true
	close(n.pending)
	n.sendMu.Unlock()
	n.wg.Wait()
}

// RecentAlerts returns up to limit most recent alerts, newest first.
func (n *AlertNotifier) RecentAlerts(limit int) []AlertRecord {
	if n == nil {
		return nil
	}
	n.mu.RLock()
	defer n.mu.RUnlock()
	if len(n.recent) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(n.recent) {
		limit = len(n.recent)
	}
	out := make([]AlertRecord, limit)
	copy(out, n.recent[:limit])
	return out
}

func (n *AlertNotifier) remember(alert models.AlertEvent) {
	entry := AlertRecord{ID: n.seq.Add(1), Alert: alert}
	n.mu.Lock()
	defer n.mu.Unlock()
	// Prepend and enforce max buffer length
	buffer := make([]AlertRecord, 0, len(n.recent)+1)
	buffer = append(buffer, entry)
	buffer = append(buffer, n.recent...)
	if len(buffer) > maxRecentAlerts {
		buffer = buffer[:maxRecentAlerts]
	}
	n.recent = buffer
}

func (n *AlertNotifier) webhookURL() string {
	if n.webhook == nil {
		return ""
	}
	return strings.TrimSpace(n.webhook())
}

func (n *AlertNotifier) worker() {
	defer n.wg.Done()
	for alert := range n.pending {
		n.deliver(alert)
	}
}

func (n *AlertNotifier) deliver(alert models.AlertEvent) {
	url := n.webhookURL()
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), alertPostTimeout)
	defer cancel()
	payload := discord.WebhookPayload{Embeds: []discord.Embed{AlertEmbed(alert)}}
	status, err := n.post(ctx, url, payload)
	if err != nil || status < 200 || status >= 300 {
		n.log.Write(fmt.Sprintf("Discord notify failed (status=%d): %v", status, err))
	}
}

// AlertEmbed renders an alert as a Discord embed.
func AlertEmbed(alert models.AlertEvent) discord.Embed {
	color := colorSystemAlert
	if alert.Scope == models.ScopeProcess {
		color = colorProcessAlert
	}
	embed := discord.NewEmbed(alert.Title(), alert.Message(), color, alertEmbedFooter, alert.Timestamp)
	if alert.Scope == models.ScopeProcess {
		embed.Fields = []discord.EmbedField{
			{Name: "Process", Value: alert.Name, Inline: true},
			{Name: "PID", Value: fmt.Sprintf("%d", alert.PID), Inline: true},
			{Name: "CPU", Value: fmt.Sprintf("%.1f %%", alert.Value), Inline: true},
		}
	} else {
		embed.Fields = []discord.EmbedField{
			{Name: "Metric", Value: string(alert.Metric), Inline: true},
			{Name: "Usage", Value: fmt.Sprintf("%.1f %%", alert.Value), Inline: true},
		}
	}
	return embed
}
