package monitor

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spacewatch/internal/history"
	"spacewatch/internal/spaces"
)

// fakeClient scripts probe/runtime/restart behavior per space. The runner is
// strictly sequential, so no locking is needed.
type fakeClient struct {
	probeErr     map[string]error
	stages       map[string][]spaces.Stage // consumed one per Runtime call, last repeats
	stageIdx     map[string]int
	runtimeErr   map[string]error
	restartErr   map[string]error
	probeCalls   int
	restartCalls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		probeErr:     make(map[string]error),
		stages:       make(map[string][]spaces.Stage),
		stageIdx:     make(map[string]int),
		runtimeErr:   make(map[string]error),
		restartErr:   make(map[string]error),
		restartCalls: make(map[string]int),
	}
}

func (f *fakeClient) Probe(ctx context.Context, name string) (time.Duration, error) {
	f.probeCalls++
	if err := f.probeErr[name]; err != nil {
		return 10 * time.Millisecond, err
	}
	return 42 * time.Millisecond, nil
}

func (f *fakeClient) Runtime(ctx context.Context, name string) (spaces.Stage, error) {
	if err := f.runtimeErr[name]; err != nil {
		return "", err
	}
	seq := f.stages[name]
	if len(seq) == 0 {
		return spaces.StageRunning, nil
	}
	idx := f.stageIdx[name]
	if idx >= len(seq) {
		idx = len(seq) - 1
	}
	f.stageIdx[name]++
	return seq[idx], nil
}

func (f *fakeClient) Restart(ctx context.Context, name string) error {
	f.restartCalls[name]++
	return f.restartErr[name]
}

func testRunner(client Client) *Runner {
	r := NewRunner(client, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	r.PollInterval = time.Millisecond
	return r
}

func errFor(msg string) error {
	return &testErr{msg}
}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }

func TestRun_AllHealthy(t *testing.T) {
	client := newFakeClient()
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"a", "b", "c"}, time.Minute)

	if len(entry.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(entry.Results))
	}
	for i, name := range []string{"a", "b", "c"} {
		r := entry.Results[i]
		if r.Name != name {
			t.Errorf("Result %d: expected name %s, got %s", i, name, r.Name)
		}
		if r.Status != history.StatusHealthy {
			t.Errorf("Result %d: expected healthy, got %s", i, r.Status)
		}
		if r.Latency <= 0 {
			t.Errorf("Result %d: expected positive latency, got %v", i, r.Latency)
		}
	}
	if entry.SuccessRate() != 1.0 {
		t.Errorf("Expected success rate 1.0, got %v", entry.SuccessRate())
	}
}

func TestRun_ZeroBudgetTimesOutWithoutCalls(t *testing.T) {
	client := newFakeClient()
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"a", "b"}, 0)

	if len(entry.Results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(entry.Results))
	}
	for _, r := range entry.Results {
		if r.Status != history.StatusTimeout {
			t.Errorf("Space %s: expected timeout, got %s", r.Name, r.Status)
		}
	}
	if client.probeCalls != 0 {
		t.Errorf("Expected no probes after budget exhaustion, got %d", client.probeCalls)
	}
	if len(client.restartCalls) != 0 {
		t.Errorf("Expected no restarts after budget exhaustion, got %v", client.restartCalls)
	}
}

func TestRun_UnhealthySpaceRebuilt(t *testing.T) {
	client := newFakeClient()
	client.probeErr["x"] = errFor("connection refused")
	client.stages["x"] = []spaces.Stage{"PAUSED", "BUILDING", "RUNNING"}
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"x"}, time.Minute)

	r := entry.Results[0]
	if r.Status != history.StatusRebuilt {
		t.Fatalf("Expected rebuilt, got %s (%s)", r.Status, r.Detail)
	}
	if client.restartCalls["x"] != 1 {
		t.Errorf("Expected exactly one restart, got %d", client.restartCalls["x"])
	}
}

func TestRun_RebuildExceedsBudget(t *testing.T) {
	client := newFakeClient()
	client.probeErr["x"] = errFor("connection refused")
	client.stages["x"] = []spaces.Stage{"PAUSED"} // never recovers
	runner := testRunner(client)
	runner.PollInterval = 50 * time.Millisecond

	// A re-poll would land past the deadline, so the space must be
	// reported as timed out rather than rebuilt.
	entry := runner.Run(context.Background(), []string{"x"}, 20*time.Millisecond)

	r := entry.Results[0]
	if r.Status != history.StatusTimeout {
		t.Fatalf("Expected timeout, got %s", r.Status)
	}
	if client.restartCalls["x"] != 1 {
		t.Errorf("Expected exactly one restart attempt, got %d", client.restartCalls["x"])
	}
}

func TestRun_StatusQueryFailureIsError(t *testing.T) {
	client := newFakeClient()
	client.probeErr["x"] = errFor("probe down")
	client.runtimeErr["x"] = errFor("401 unauthorized")
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"x", "y"}, time.Minute)

	if len(entry.Results) != 2 {
		t.Fatalf("Expected the run to continue past the error, got %d results", len(entry.Results))
	}
	r := entry.Results[0]
	if r.Status != history.StatusError {
		t.Fatalf("Expected error, got %s", r.Status)
	}
	if r.Detail == "" {
		t.Error("Expected failure reason recorded in detail")
	}
	if len(client.restartCalls) != 0 {
		t.Errorf("Expected no restart on status query failure, got %v", client.restartCalls)
	}
	if entry.Results[1].Status != history.StatusHealthy {
		t.Errorf("Expected following space still checked, got %s", entry.Results[1].Status)
	}
}

func TestRun_RestartRejectedIsError(t *testing.T) {
	client := newFakeClient()
	client.probeErr["x"] = errFor("probe down")
	client.stages["x"] = []spaces.Stage{"STOPPED"}
	client.restartErr["x"] = errFor("403 forbidden")
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"x"}, time.Minute)

	r := entry.Results[0]
	if r.Status != history.StatusError {
		t.Fatalf("Expected error, got %s", r.Status)
	}
	if client.restartCalls["x"] != 1 {
		t.Errorf("Restart must not be retried, got %d attempts", client.restartCalls["x"])
	}
}

func TestRun_ConvergingSpaceNotRestarted(t *testing.T) {
	client := newFakeClient()
	client.probeErr["x"] = errFor("502 while building")
	client.stages["x"] = []spaces.Stage{"RUNNING_BUILDING", "RUNNING"}
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"x"}, time.Minute)

	if entry.Results[0].Status != history.StatusRebuilt {
		t.Fatalf("Expected rebuilt after in-flight build finished, got %s", entry.Results[0].Status)
	}
	if len(client.restartCalls) != 0 {
		t.Errorf("A build already in flight must not be restarted, got %v", client.restartCalls)
	}
}

func TestRun_RebuildEndsInErrorStage(t *testing.T) {
	client := newFakeClient()
	client.probeErr["x"] = errFor("probe down")
	client.stages["x"] = []spaces.Stage{"STOPPED", "BUILD_ERROR"}
	runner := testRunner(client)

	entry := runner.Run(context.Background(), []string{"x"}, time.Minute)

	r := entry.Results[0]
	if r.Status != history.StatusError {
		t.Fatalf("Expected error for terminal build stage, got %s", r.Status)
	}
	if r.Detail == "" {
		t.Error("Expected the terminal stage recorded in detail")
	}
}

func TestRun_FailureHookRuns(t *testing.T) {
	tmpDir := t.TempDir()

	client := newFakeClient()
	client.probeErr["x"] = errFor("probe down")
	client.runtimeErr["x"] = errFor("boom")
	runner := testRunner(client)
	runner.Hook = "touch " + filepath.Join(tmpDir, "hook-{spaces}")

	runner.Run(context.Background(), []string{"x", "y"}, time.Minute)

	// Only the failed space name is substituted.
	if _, err := os.Stat(filepath.Join(tmpDir, "hook-x")); err != nil {
		t.Errorf("Expected failure hook to run with failed names: %v", err)
	}
}

func TestRun_NoHookWhenAllOk(t *testing.T) {
	tmpDir := t.TempDir()

	client := newFakeClient()
	runner := testRunner(client)
	runner.Hook = "touch " + filepath.Join(tmpDir, "hook-{spaces}")

	runner.Run(context.Background(), []string{"a"}, time.Minute)

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no hook run for a fully ok cycle, found %d files", len(entries))
	}
}
