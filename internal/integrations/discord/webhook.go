package discord

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"emperror.dev/errors"
	json "github.com/goccy/go-json"
)

// Embed is the subset of a Discord embed that alert messages use.
// See: https://discord.com/developers/docs/resources/channel#embed-object-embed-structure
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// WebhookPayload is the JSON body for Discord webhooks.
type WebhookPayload struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

var httpClient = &http.Client{Timeout: 8 * time.Second}

// Post sends a JSON webhook to the provided URL. Returns the HTTP status code and any error.
// An empty URL is a no-op.
func Post(ctx context.Context, webhookURL string, payload WebhookPayload) (int, error) {
	if webhookURL == "" {
		return 0, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, errors.Wrap(err, "encode webhook payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(b))
	if err != nil {
		return 0, errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// NewEmbed creates an embed stamped with the given time in RFC3339 format.
func NewEmbed(title, description string, color int, footer string, at time.Time) Embed {
	if at.IsZero() {
		at = time.Now()
	}
	return Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   at.UTC().Format(time.RFC3339),
		Footer:      &EmbedFooter{Text: footer},
	}
}
