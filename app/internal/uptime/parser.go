package uptime

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for the timestamp field. Each input gets a trailing "Z"
// appended before matching so every record is read as UTC.
var timeLayouts = []string{
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02Z07:00",
}

// ParseError describes a line that could not be turned into a record.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// ParseTime reads a log timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	withZone := s + "Z"
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, withZone)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParseResult classifies a result token. Only the exact tokens "success"
// and "failure" are meaningful.
func ParseResult(s string) Result {
	switch strings.TrimSpace(s) {
	case "success":
		return Success
	case "failure":
		return Failure
	default:
		return Unknown
	}
}

// Parse turns newline-delimited "TIMESTAMP,RESULT" text into records.
// Blank lines are ignored. Malformed lines are skipped and counted unless
// opts.Strict is set, in which case the first one is returned as a *ParseError.
func Parse(text string, opts ParseOptions) ([]LogRecord, ParseStats, error) {
	var stats ParseStats
	var records []LogRecord

	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++

		ts, res, found := strings.Cut(line, ",")
		if !found {
			stats.Malformed++
			if opts.Strict {
				return nil, stats, &ParseError{Line: i + 1, Text: line, Reason: "missing comma"}
			}
			continue
		}

		t, err := ParseTime(ts)
		if err != nil {
			stats.Malformed++
			if opts.Strict {
				return nil, stats, &ParseError{Line: i + 1, Text: line, Reason: "bad timestamp"}
			}
			continue
		}

		r := ParseResult(res)
		if r == Unknown {
			stats.Unknown++
		}
		records = append(records, LogRecord{Time: t, Result: r})
		stats.Records++
	}

	return records, stats, nil
}
