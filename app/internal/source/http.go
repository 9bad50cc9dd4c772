package source

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTP fetches logs from a URL template such as
// "https://raw.githubusercontent.com/owner/repo/master/logs/%s_report.log".
type HTTP struct {
	URLTemplate string
	Client      *http.Client
}

// NewHTTP creates an HTTP source whose requests time out after timeout.
func NewHTTP(urlTemplate string, timeout time.Duration) *HTTP {
	return &HTTP{
		URLTemplate: urlTemplate,
		Client:      &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) Name() string { return "http" }

// URL returns the log location for key.
func (h *HTTP) URL(key string) string {
	return fmt.Sprintf(h.URLTemplate, key)
}

func (h *HTTP) Fetch(ctx context.Context, key string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL(key), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: http %d", key, resp.StatusCode)
	}

	text, err := readLog(resp.Body, maxLogBytes)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return text, nil
}
