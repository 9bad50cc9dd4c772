package uptime

// Day status labels, as shown on the status page.
const (
	StatusNoData  = "nodata"
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusPartial = "partial"
)

// DayStatus classifies a daily average. Anything under 30% counts as an outage.
func DayStatus(v *float64) string {
	switch {
	case v == nil:
		return StatusNoData
	case *v == 1:
		return StatusSuccess
	case *v < 0.3:
		return StatusFailure
	default:
		return StatusPartial
	}
}

// StatusText is the human label for a day status.
func StatusText(status string) string {
	switch status {
	case StatusNoData:
		return "No Data Available"
	case StatusSuccess:
		return "Fully Operational"
	case StatusFailure:
		return "Major Outage"
	case StatusPartial:
		return "Partial Outage"
	default:
		return "Unknown"
	}
}
