package history

import "time"

// MaxEntries is the number of runs retained in the log. Older runs are
// discarded on append; the full record lives in the optional archive.
const MaxEntries = 50

// Status classifies the outcome of a single space check.
type Status string

const (
	StatusHealthy   Status = "healthy"   // space responded to the probe
	StatusUnhealthy Status = "unhealthy" // probe failed, restart not yet resolved
	StatusRebuilt   Status = "rebuilt"   // restart issued and the space came back
	StatusError     Status = "error"     // status query or restart request failed
	StatusTimeout   Status = "timeout"   // run budget exhausted before recovery
)

// Ok reports whether the status counts toward the success rate.
func (s Status) Ok() bool {
	return s == StatusHealthy || s == StatusRebuilt
}

// CheckResult is the outcome of checking one space during one run.
type CheckResult struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Latency   float64   `json:"latency_seconds"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"` // failure reason for error results
}

// RunEntry is one full poll-all-spaces invocation.
type RunEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Results   []CheckResult `json:"results"`
}

// SuccessRate returns the fraction of ok checks in this run, 0 for an empty run.
func (e RunEntry) SuccessRate() float64 {
	if len(e.Results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range e.Results {
		if r.Status.Ok() {
			ok++
		}
	}
	return float64(ok) / float64(len(e.Results))
}

// Log is the persisted run history, oldest entry first.
type Log struct {
	Entries []RunEntry `json:"entries"`
}

// Stats aggregates a log for the report header.
type Stats struct {
	TotalChecks int
	OkChecks    int
	SuccessRate float64
	LastRun     time.Time
}
