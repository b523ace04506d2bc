package discord

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestPostSendsJSONPayload(t *testing.T) {
	var got WebhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	embed := NewEmbed("System alert", "CPU at 95.0 %", 0xDC2626, "procmon", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	status, err := Post(context.Background(), srv.URL, WebhookPayload{Embeds: []Embed{embed}})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if status != http.StatusNoContent {
		t.Fatalf("status = %d", status)
	}
	if contentType != "application/json" {
		t.Fatalf("content type = %q", contentType)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Title != "System alert" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Embeds[0].Timestamp != "2026-01-02T03:04:05Z" {
		t.Fatalf("timestamp = %q", got.Embeds[0].Timestamp)
	}
	if got.Embeds[0].Footer == nil || got.Embeds[0].Footer.Text != "procmon" {
		t.Fatalf("footer = %+v", got.Embeds[0].Footer)
	}
}

func TestPostEmptyURLIsNoop(t *testing.T) {
	status, err := Post(context.Background(), "", WebhookPayload{Content: "x"})
	if err != nil || status != 0 {
		t.Fatalf("Post(empty) = %d, %v", status, err)
	}
}

func TestPostReportsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	if _, err := Post(context.Background(), url, WebhookPayload{Content: "x"}); err == nil {
		t.Fatal("expected error for closed server")
	} else if !strings.Contains(err.Error(), "post webhook") {
		t.Fatalf("error not wrapped: %v", err)
	}
}
