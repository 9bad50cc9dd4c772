package source

import (
	"context"
	"strings"

	"statuspage/app/internal/database"
)

// LogTimeLayout is the timestamp format written for stored samples.
const LogTimeLayout = "2006-01-02 15:04:05"

// SQLite renders samples recorded by the probe as log text.
type SQLite struct {
	Store *database.Store
}

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Fetch(ctx context.Context, key string) (string, error) {
	samples, err := s.Store.Samples(ctx, key)
	if err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", ErrNotFound
	}

	var b strings.Builder
	for _, sm := range samples {
		b.WriteString(sm.TakenAt.UTC().Format(LogTimeLayout))
		b.WriteByte(',')
		b.WriteString(sm.Result())
		b.WriteByte('\n')
	}
	return b.String(), nil
}
