package spaces

import "strings"

// Stage is the runtime lifecycle state reported by the platform for a space.
// The set of stage names is an external contract; the classification below
// covers the stages the API is known to return and treats anything unknown
// as unhealthy so it gets a restart attempt rather than being ignored.
type Stage string

const (
	StageRunning Stage = "RUNNING"
)

// convergingStages are transitional states where the space is expected to
// become RUNNING on its own. Restarting during these would abort the build.
var convergingStages = map[Stage]bool{
	"BUILDING":             true,
	"RUNNING_BUILDING":     true,
	"RUNNING_APP_STARTING": true,
	"APP_STARTING":         true,
}

// Healthy reports whether the space is running and serving.
func (s Stage) Healthy() bool {
	return s == StageRunning
}

// Converging reports whether the space is mid-build or mid-start.
func (s Stage) Converging() bool {
	return convergingStages[s]
}

// Failed reports whether the stage is a terminal error state.
func (s Stage) Failed() bool {
	return strings.Contains(string(s), "ERROR")
}
