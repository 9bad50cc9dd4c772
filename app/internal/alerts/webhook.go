// Package alerts posts notifications when a service's log keeps failing
// to load, and again when it recovers.
package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"statuspage/app/internal/monitor"
)

// SignatureHeader carries "sha256=<hex hmac>" of the body when a secret is set.
const SignatureHeader = "X-Statuspage-Signature"

// Event statuses.
const (
	StatusFailing   = "failing"
	StatusRecovered = "recovered"
)

// Event is the JSON body posted to the webhook.
type Event struct {
	Event      string `json:"event"`
	ServiceKey string `json:"service_key"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Failures   int    `json:"consecutive_failures,omitempty"`
	Since      string `json:"since,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Webhook delivers events to a generic HTTP endpoint with optional HMAC signing.
type Webhook struct {
	URL    string
	Secret string
	Client *http.Client
	Log    zerolog.Logger

	now func() time.Time
}

// NewWebhook returns nil when url is empty, which disables alerting.
func NewWebhook(url, secret string, log zerolog.Logger) *Webhook {
	if url == "" {
		return nil
	}
	return &Webhook{
		URL:    url,
		Secret: secret,
		Client: &http.Client{Timeout: 10 * time.Second},
		Log:    log,
		now:    time.Now,
	}
}

// Send posts ev and fails on transport errors or a non-2xx reply.
func (w *Webhook) Send(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "statuspage/1")
	if w.Secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign([]byte(w.Secret), body))
	}

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook post: http %d", resp.StatusCode)
	}
	return nil
}

// FetchFailing reports that key's log has failed to load repeatedly.
func (w *Webhook) FetchFailing(key string, st monitor.FailureState) {
	w.deliver(Event{
		Event:      "log_fetch",
		ServiceKey: key,
		Status:     StatusFailing,
		Message:    st.LastError,
		Failures:   st.Consecutive,
		Since:      st.Since.UTC().Format(time.RFC3339),
		Timestamp:  w.now().UTC().Format(time.RFC3339),
	})
}

// FetchRecovered reports that key's log loads again.
func (w *Webhook) FetchRecovered(key string) {
	w.deliver(Event{
		Event:      "log_fetch",
		ServiceKey: key,
		Status:     StatusRecovered,
		Message:    "log fetch recovered",
		Timestamp:  w.now().UTC().Format(time.RFC3339),
	})
}

// deliver sends in the background so the fetch path never waits on the hook.
func (w *Webhook) deliver(ev Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := w.Send(ctx, ev); err != nil {
			w.Log.Error().Err(err).Str("service", ev.ServiceKey).Str("status", ev.Status).Msg("webhook notification failed")
			return
		}
		w.Log.Info().Str("service", ev.ServiceKey).Str("status", ev.Status).Msg("webhook notification sent")
	}()
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
