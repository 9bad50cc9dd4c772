// Package source fetches raw per-service uptime logs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// maxLogBytes caps a single log download.
const maxLogBytes = 32 << 20

// ErrTooLarge reports a log longer than maxLogBytes. Logs are append-only,
// so truncating would drop the newest records.
var ErrTooLarge = errors.New("log too large")

// ErrNotFound reports that the store has no log for the key.
var ErrNotFound = errors.New("log not found")

// Source returns the raw newline-delimited log text for a service key.
type Source interface {
	Fetch(ctx context.Context, key string) (string, error)
	Name() string
}

// ObjectName is the log file name used for key by file-style stores.
func ObjectName(key string) string {
	return key + "_report.log"
}

// readLog reads r whole, failing with ErrTooLarge past limit bytes.
func readLog(r io.Reader, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > limit {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return string(b), nil
}
