package uptime

import "time"

// WindowDays is the number of daily slots in a Summary.
const WindowDays = 30

// NoData is the overall uptime reported when a log holds no classified records.
const NoData = "--%"

// Result is the outcome recorded on a single log line.
type Result int

const (
	Unknown Result = iota
	Success
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// LogRecord is one parsed log line.
type LogRecord struct {
	Time   time.Time
	Result Result
}

// ParseOptions controls how malformed lines are treated.
type ParseOptions struct {
	// Strict makes the first malformed line abort parsing.
	Strict bool
}

// ParseStats counts what the parser saw.
type ParseStats struct {
	Lines     int // non-blank lines
	Records   int // lines turned into records
	Malformed int
	Unknown   int
}

// Summary is the per-service rolling window plus overall uptime.
// Days[0] is the current UTC day, Days[29] is 29 days earlier. A nil slot
// means no classified records exist for that day.
type Summary struct {
	Days   [WindowDays]*float64
	UpTime string

	Up   int
	Down int
	// Last is the timestamp of the newest record, zero if none.
	Last time.Time
}
