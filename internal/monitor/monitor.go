package monitor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"spacewatch/internal/history"
	"spacewatch/internal/spaces"
	"spacewatch/pkg/cmdutil"
)

const (
	// DefaultPollInterval is the wait between runtime re-polls while a
	// restarted space converges.
	DefaultPollInterval = 30 * time.Second

	// HookTimeout bounds the failure hook command.
	HookTimeout = 60 * time.Second
)

// Client is the subset of the platform client the runner needs.
type Client interface {
	Probe(ctx context.Context, name string) (time.Duration, error)
	Runtime(ctx context.Context, name string) (spaces.Stage, error)
	Restart(ctx context.Context, name string) error
}

// Runner executes one poll/repair/record cycle over a list of spaces.
type Runner struct {
	Client Client
	Logger *slog.Logger

	// Hook is an optional shell-quoted command run once after the cycle
	// when any space ended the run not ok. The literal "{spaces}" in any
	// argument is replaced with the comma-joined failed names.
	Hook string

	// PollInterval overrides DefaultPollInterval, mainly for tests.
	PollInterval time.Duration
}

// NewRunner creates a runner with the default poll interval.
func NewRunner(client Client, logger *slog.Logger) *Runner {
	return &Runner{
		Client:       client,
		Logger:       logger,
		PollInterval: DefaultPollInterval,
	}
}

// Run checks every space in order and returns one entry covering exactly the
// given list. The budget is shared: every check consumes from the same
// deadline, and spaces not reached before it expires are recorded as timed
// out without any network call. Individual failures never abort the run.
func (r *Runner) Run(ctx context.Context, names []string, budget time.Duration) history.RunEntry {
	deadline := time.Now().Add(budget)
	entry := history.RunEntry{Timestamp: time.Now().UTC()}

	for _, name := range names {
		if time.Until(deadline) <= 0 {
			r.Logger.Warn("run budget exhausted, skipping remaining space", "space", name)
			entry.Results = append(entry.Results, history.CheckResult{
				Name:      name,
				Status:    history.StatusTimeout,
				Timestamp: time.Now().UTC(),
				Detail:    "run budget exhausted before check",
			})
			continue
		}

		result := r.checkSpace(ctx, name, deadline)
		r.Logger.Info("space checked",
			"space", name,
			"status", result.Status,
			"latency_seconds", result.Latency)
		entry.Results = append(entry.Results, result)
	}

	if r.Hook != "" {
		if failed := failedNames(entry); len(failed) > 0 {
			r.runHook(ctx, failed)
		}
	}

	return entry
}

// checkSpace classifies one space. Probe first; on probe failure fall back
// to the API stage, and restart unless the space is already converging.
func (r *Runner) checkSpace(ctx context.Context, name string, deadline time.Time) history.CheckResult {
	start := time.Now()

	latency, probeErr := r.Client.Probe(ctx, name)
	if probeErr == nil {
		return history.CheckResult{
			Name:      name,
			Status:    history.StatusHealthy,
			Latency:   latency.Seconds(),
			Timestamp: time.Now().UTC(),
		}
	}

	r.Logger.Warn("space probe failed", "space", name, "error", probeErr)

	stage, err := r.Client.Runtime(ctx, name)
	if err != nil {
		return history.CheckResult{
			Name:      name,
			Status:    history.StatusError,
			Latency:   time.Since(start).Seconds(),
			Timestamp: time.Now().UTC(),
			Detail:    err.Error(),
		}
	}

	// A build already in flight will abort if restarted; just wait for it.
	if stage.Converging() {
		r.Logger.Info("space already rebuilding, waiting", "space", name, "stage", string(stage))
		return r.awaitRunning(ctx, name, deadline, start)
	}

	r.Logger.Info("space unhealthy, issuing restart", "space", name, "stage", string(stage))
	if err := r.Client.Restart(ctx, name); err != nil {
		return history.CheckResult{
			Name:      name,
			Status:    history.StatusError,
			Latency:   time.Since(start).Seconds(),
			Timestamp: time.Now().UTC(),
			Detail:    err.Error(),
		}
	}

	return r.awaitRunning(ctx, name, deadline, start)
}

// awaitRunning re-polls the runtime stage until the space is RUNNING, a
// terminal error stage appears, or the shared budget runs out. The restart
// is never retried; an unrecovered space is reported and picked up again on
// the next scheduled invocation.
func (r *Runner) awaitRunning(ctx context.Context, name string, deadline time.Time, start time.Time) history.CheckResult {
	for {
		// A re-poll landing past the deadline would overrun the budget,
		// so the space is reported as timed out instead.
		wait := r.PollInterval
		if time.Until(deadline) <= wait {
			return history.CheckResult{
				Name:      name,
				Status:    history.StatusTimeout,
				Latency:   time.Since(start).Seconds(),
				Timestamp: time.Now().UTC(),
				Detail:    "budget exhausted before space recovered",
			}
		}

		select {
		case <-ctx.Done():
			return history.CheckResult{
				Name:      name,
				Status:    history.StatusTimeout,
				Latency:   time.Since(start).Seconds(),
				Timestamp: time.Now().UTC(),
				Detail:    ctx.Err().Error(),
			}
		case <-time.After(wait):
		}

		stage, err := r.Client.Runtime(ctx, name)
		if err != nil {
			return history.CheckResult{
				Name:      name,
				Status:    history.StatusError,
				Latency:   time.Since(start).Seconds(),
				Timestamp: time.Now().UTC(),
				Detail:    err.Error(),
			}
		}

		r.Logger.Info("space stage", "space", name, "stage", string(stage))

		switch {
		case stage.Healthy():
			return history.CheckResult{
				Name:      name,
				Status:    history.StatusRebuilt,
				Latency:   time.Since(start).Seconds(),
				Timestamp: time.Now().UTC(),
			}
		case stage.Failed():
			return history.CheckResult{
				Name:      name,
				Status:    history.StatusError,
				Latency:   time.Since(start).Seconds(),
				Timestamp: time.Now().UTC(),
				Detail:    "rebuild ended in stage " + string(stage),
			}
		}
	}
}

// runHook executes the configured failure hook once. Hook failures are
// logged, never escalated.
func (r *Runner) runHook(ctx context.Context, failed []string) {
	parts, err := cmdutil.ParseCommandString(r.Hook)
	if err != nil {
		r.Logger.Error("invalid failure hook command", "error", err)
		return
	}

	joined := strings.Join(failed, ",")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(part, "{spaces}", joined)
	}

	r.Logger.Info("running failure hook", "command", cmdutil.FormatCommand(parts))
	result, err := cmdutil.Run(ctx, HookTimeout, parts)
	if err != nil {
		r.Logger.Error("failure hook failed", "error", err, "output", outputSnippet(result))
	}
}

func failedNames(entry history.RunEntry) []string {
	var failed []string
	for _, res := range entry.Results {
		if !res.Status.Ok() {
			failed = append(failed, res.Name)
		}
	}
	return failed
}

func outputSnippet(result *cmdutil.Result) string {
	if result == nil {
		return ""
	}
	out := strings.TrimSpace(string(result.Output))
	if len(out) > 256 {
		out = out[:256]
	}
	return out
}
