package uptime

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fp(v float64) *float64 { return &v }

var scenarioLog = `2024-01-01 10:00:00,success
2024-01-01 14:00:00,failure
2024-01-02 09:00:00,success
`

var scenarioNow = time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC)

// --- Parse ---

func TestParse_Basic(t *testing.T) {
	recs, stats, err := Parse(scenarioLog, ParseOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []LogRecord{
		{Time: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Result: Success},
		{Time: time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC), Result: Failure},
		{Time: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), Result: Success},
	}
	if diff := cmp.Diff(want, recs); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if stats.Lines != 3 || stats.Records != 3 || stats.Malformed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestParse_BlankLines(t *testing.T) {
	recs, stats, err := Parse("\n   \n2024-01-01 10:00:00,success\n\t\n", ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || stats.Lines != 1 {
		t.Errorf("expected 1 record from 1 line, got %d records, stats %+v", len(recs), stats)
	}
}

func TestParse_ResultTrimmedAndCaseSensitive(t *testing.T) {
	text := "2024-01-01 10:00:00, success \r\n2024-01-01 11:00:00,Success\n2024-01-01 12:00:00,failure\n"
	recs, stats, err := Parse(text, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got := []Result{recs[0].Result, recs[1].Result, recs[2].Result}
	want := []Result{Success, Unknown, Failure}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if stats.Unknown != 1 {
		t.Errorf("expected 1 unknown, got %d", stats.Unknown)
	}
}

func TestParse_SplitsOnFirstComma(t *testing.T) {
	recs, _, err := Parse("2024-01-01 10:00:00,success,extra\n", ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Result != Unknown {
		t.Errorf("expected single unknown record, got %+v", recs)
	}
}

func TestParse_MalformedLenient(t *testing.T) {
	text := "2024-01-01 10:00:00,success\nnot a record\nyesterday,failure\n2024-01-01 12:00:00,failure\n"
	recs, stats, err := Parse(text, ParseOptions{})
	if err != nil {
		t.Fatalf("lenient parse should not fail: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 records, got %d", len(recs))
	}
	if stats.Malformed != 2 {
		t.Errorf("expected 2 malformed, got %d", stats.Malformed)
	}
}

func TestParse_MalformedStrict(t *testing.T) {
	text := "2024-01-01 10:00:00,success\nnot a record\n"
	_, _, err := Parse(text, ParseOptions{Strict: true})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 2 || pe.Reason != "missing comma" {
		t.Errorf("unexpected parse error: %+v", pe)
	}
}

// --- ParseTime ---

func TestParseTime_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-05 07:08:09", time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)},
		{"2024-03-05T07:08:09", time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC)},
		{"2024-03-05 07:08", time.Date(2024, 3, 5, 7, 8, 0, 0, time.UTC)},
		{"2024-03-05T07:08", time.Date(2024, 3, 5, 7, 8, 0, 0, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-03-05 07:08:09.250", time.Date(2024, 3, 5, 7, 8, 9, 250000000, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Errorf("ParseTime(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTime_RejectsExplicitZone(t *testing.T) {
	if _, err := ParseTime("2024-03-05T07:08:09+02:00"); err == nil {
		t.Error("expected timestamps with their own offset to be rejected")
	}
	if _, err := ParseTime(""); err == nil {
		t.Error("expected empty timestamp to be rejected")
	}
}

// --- Summarize ---

func TestSummarize_Scenario(t *testing.T) {
	s, _, err := Aggregate(scenarioLog, scenarioNow, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var want [WindowDays]*float64
	want[0] = fp(1.0)
	want[1] = fp(0.5)
	if diff := cmp.Diff(want, s.Days); diff != "" {
		t.Errorf("days mismatch (-want +got):\n%s", diff)
	}
	if s.UpTime != "66.67%" {
		t.Errorf("expected 66.67%%, got %q", s.UpTime)
	}
}

func TestSummarize_ThreeQuarters(t *testing.T) {
	text := "2024-01-02 01:00:00,success\n2024-01-02 02:00:00,success\n2024-01-02 03:00:00,failure\n2024-01-02 04:00:00,success\n"
	s, _, _ := Aggregate(text, scenarioNow, ParseOptions{})
	if s.Days[0] == nil || *s.Days[0] != 0.75 {
		t.Errorf("expected day 0 = 0.75, got %v", s.Days[0])
	}
	if s.UpTime != "75.00%" {
		t.Errorf("expected 75.00%%, got %q", s.UpTime)
	}
}

func TestSummarize_NoClassifiedRecords(t *testing.T) {
	s, _, _ := Aggregate("2024-01-02 01:00:00,timeout\n2024-01-02 02:00:00,pending\n", scenarioNow, ParseOptions{})
	if s.UpTime != NoData {
		t.Errorf("expected %q, got %q", NoData, s.UpTime)
	}
	if s.Days[0] != nil {
		t.Errorf("unknown-only day should be null, got %v", *s.Days[0])
	}
}

func TestSummarize_UnknownExcludedFromDay(t *testing.T) {
	text := "2024-01-02 01:00:00,success\n2024-01-02 02:00:00,maintenance\n"
	s, _, _ := Aggregate(text, scenarioNow, ParseOptions{})
	if s.Days[0] == nil || *s.Days[0] != 1.0 {
		t.Errorf("unknown records must not count toward the day, got %v", s.Days[0])
	}
	if s.UpTime != "100.00%" {
		t.Errorf("expected 100.00%%, got %q", s.UpTime)
	}
}

func TestSummarize_ZeroPercentIsNotNoData(t *testing.T) {
	s, _, _ := Aggregate("2024-01-02 01:00:00,failure\n", scenarioNow, ParseOptions{})
	if s.UpTime != "0.00%" {
		t.Errorf("expected 0.00%%, got %q", s.UpTime)
	}
	if s.Days[0] == nil || *s.Days[0] != 0 {
		t.Errorf("expected day 0 = 0, got %v", s.Days[0])
	}
}

func TestSummarize_OutsideWindowCountsOverall(t *testing.T) {
	text := strings.Join([]string{
		"2023-11-01 00:00:00,failure", // long before the window
		"2024-01-05 00:00:00,success", // after now
		"2023-12-04 12:00:00,success", // exactly 29 days before now
		"2023-12-03 12:00:00,success", // 30 days before now
	}, "\n")
	s, _, _ := Aggregate(text, scenarioNow, ParseOptions{})
	if s.UpTime != "75.00%" {
		t.Errorf("expected 75.00%%, got %q", s.UpTime)
	}
	for i, v := range s.Days {
		if i == 29 {
			if v == nil || *v != 1 {
				t.Errorf("expected slot 29 = 1, got %v", v)
			}
			continue
		}
		if v != nil {
			t.Errorf("slot %d should be null, got %v", i, *v)
		}
	}
}

func TestSummarize_MalformedDoesNotChangeResult(t *testing.T) {
	clean, _, _ := Aggregate(scenarioLog, scenarioNow, ParseOptions{})
	noisy, stats, err := Aggregate("garbage\n"+scenarioLog+"2024-01-02,\nno comma here\n", scenarioNow, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if stats.Malformed != 2 {
		t.Errorf("expected 2 malformed lines, got %d", stats.Malformed)
	}
	// "2024-01-02," parses as an unknown record on day 0; it must not shift anything.
	if diff := cmp.Diff(clean.Days, noisy.Days); diff != "" {
		t.Errorf("days changed by malformed lines (-clean +noisy):\n%s", diff)
	}
	if clean.UpTime != noisy.UpTime {
		t.Errorf("uptime changed: %q vs %q", clean.UpTime, noisy.UpTime)
	}
}

func TestSummarize_Idempotent(t *testing.T) {
	a, _, _ := Aggregate(scenarioLog, scenarioNow, ParseOptions{})
	b, _, _ := Aggregate(scenarioLog, scenarioNow, ParseOptions{})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("re-aggregation differs:\n%s", diff)
	}
}

func TestSummarize_EmptyLog(t *testing.T) {
	s, _, err := Aggregate("", scenarioNow, ParseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(EmptySummary(), s); diff != "" {
		t.Errorf("expected empty summary:\n%s", diff)
	}
}

func TestAggregate_StrictReturnsEmpty(t *testing.T) {
	s, _, err := Aggregate(scenarioLog+"oops\n", scenarioNow, ParseOptions{Strict: true})
	if err == nil {
		t.Fatal("expected strict parse error")
	}
	if s.UpTime != NoData {
		t.Errorf("expected empty summary on error, got %q", s.UpTime)
	}
}

// --- JSON ---

func TestSummary_MarshalJSON(t *testing.T) {
	s, _, _ := Aggregate(scenarioLog, scenarioNow, ParseOptions{})
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	out := string(b)
	if !strings.HasPrefix(out, `{"0":1,"1":0.5,"2":null,`) {
		t.Errorf("unexpected prefix: %s", out)
	}
	if !strings.HasSuffix(out, `"29":null,"upTime":"66.67%"}`) {
		t.Errorf("unexpected suffix: %s", out)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(m) != WindowDays+1 {
		t.Errorf("expected %d keys, got %d", WindowDays+1, len(m))
	}
}

func TestSummary_UnmarshalJSON(t *testing.T) {
	s, _, _ := Aggregate(scenarioLog, scenarioNow, ParseOptions{})
	b, _ := json.Marshal(s)

	var back Summary
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(s.Days, back.Days); diff != "" {
		t.Errorf("days mismatch:\n%s", diff)
	}
	if back.UpTime != s.UpTime {
		t.Errorf("upTime mismatch: %q vs %q", back.UpTime, s.UpTime)
	}
}

// --- DayStatus ---

func TestDayStatus(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, StatusNoData},
		{fp(1), StatusSuccess},
		{fp(0.29), StatusFailure},
		{fp(0), StatusFailure},
		{fp(0.3), StatusPartial},
		{fp(0.99), StatusPartial},
	}
	for _, tt := range tests {
		if got := DayStatus(tt.in); got != tt.want {
			t.Errorf("DayStatus(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if StatusText(StatusPartial) != "Partial Outage" {
		t.Error("unexpected status text for partial")
	}
}
