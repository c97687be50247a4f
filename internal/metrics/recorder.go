package metrics

import "time"

// Outcome labels shared by page and placeholder counters.
const (
	OutcomeSuccess       = "success"
	OutcomeFailed        = "failed"
	OutcomeUnknown       = "unknown"
	OutcomeMisconfigured = "misconfigured"
	OutcomeBadParams     = "bad_params"
)

// Recorder receives generation run telemetry. Implementations must accept
// calls on a zero value.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncPage(outcome string)
	IncPlaceholder(key, outcome string)
	IncRun(outcome string)
}

// NoopRecorder drops every observation.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncPage(string)                             {}
func (NoopRecorder) IncPlaceholder(string, string)              {}
func (NoopRecorder) IncRun(string)                              {}
