package uptime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const day = 24 * time.Hour

// DayOf truncates t to midnight UTC.
func DayOf(t time.Time) time.Time {
	return t.UTC().Truncate(day)
}

// Bucketize groups records by UTC day. Every day that has at least one
// record gets an entry; unknown results create the entry but add no outcome.
func Bucketize(records []LogRecord) map[time.Time][]bool {
	buckets := make(map[time.Time][]bool)
	for _, rec := range records {
		d := DayOf(rec.Time)
		outcomes, ok := buckets[d]
		if !ok {
			outcomes = []bool{}
		}
		switch rec.Result {
		case Success:
			outcomes = append(outcomes, true)
		case Failure:
			outcomes = append(outcomes, false)
		}
		buckets[d] = outcomes
	}
	return buckets
}

// Mean returns the fraction of true outcomes, or nil if there are none.
func Mean(outcomes []bool) *float64 {
	if len(outcomes) == 0 {
		return nil
	}
	up := 0
	for _, ok := range outcomes {
		if ok {
			up++
		}
	}
	v := float64(up) / float64(len(outcomes))
	return &v
}

// FormatUptime renders up/(up+down) as "NN.NN%", or NoData when nothing
// was classified.
func FormatUptime(up, down int) string {
	total := up + down
	if total == 0 {
		return NoData
	}
	return fmt.Sprintf("%.2f%%", float64(up)/float64(total)*100)
}

// EmptySummary is the summary reported for a service without usable data.
func EmptySummary() Summary {
	return Summary{UpTime: NoData}
}

// Summarize computes the rolling window relative to now. Overall uptime
// covers every record, including ones outside the window.
func Summarize(records []LogRecord, now time.Time) Summary {
	s := Summary{}
	for _, rec := range records {
		switch rec.Result {
		case Success:
			s.Up++
		case Failure:
			s.Down++
		}
		if rec.Time.After(s.Last) {
			s.Last = rec.Time
		}
	}
	s.UpTime = FormatUptime(s.Up, s.Down)

	today := DayOf(now)
	for d, outcomes := range Bucketize(records) {
		idx := int(today.Sub(d) / day)
		if idx < 0 || idx >= WindowDays {
			continue
		}
		s.Days[idx] = Mean(outcomes)
	}
	return s
}

// Aggregate parses text and summarizes it relative to now.
func Aggregate(text string, now time.Time, opts ParseOptions) (Summary, ParseStats, error) {
	records, stats, err := Parse(text, opts)
	if err != nil {
		return EmptySummary(), stats, err
	}
	return Summarize(records, now), stats, nil
}

// MarshalJSON writes the slots as "0".."29" followed by "upTime".
func (s Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, v := range s.Days {
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(i))
		buf.WriteString(`":`)
		if v == nil {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(*v, 'f', -1, 64))
		}
		buf.WriteByte(',')
	}
	upTime, err := json.Marshal(s.UpTime)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"upTime":`)
	buf.Write(upTime)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the shape written by MarshalJSON.
func (s *Summary) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := Summary{}
	for i := range out.Days {
		v, ok := raw[strconv.Itoa(i)]
		if !ok {
			continue
		}
		var f *float64
		if err := json.Unmarshal(v, &f); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
		out.Days[i] = f
	}
	if v, ok := raw["upTime"]; ok {
		if err := json.Unmarshal(v, &out.UpTime); err != nil {
			return fmt.Errorf("upTime: %w", err)
		}
	}
	*s = out
	return nil
}
