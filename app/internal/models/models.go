package models

import "time"

// Service is one entry of the monitored-service registry.
type Service struct {
	Key     string
	URL     string
	Timeout time.Duration // probe timeout
	MinOK   int
	MaxOK   int
}

// Sample is a single recorded probe outcome.
type Sample struct {
	TakenAt    time.Time
	ServiceKey string
	OK         bool
	HTTPStatus int
	LatencyMS  *int
}

// Result renders the sample's outcome as a log result token.
func (s Sample) Result() string {
	if s.OK {
		return "success"
	}
	return "failure"
}
