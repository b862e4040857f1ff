package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"spacewatch/internal/archive"
	"spacewatch/internal/config"
	"spacewatch/internal/gh"
	"spacewatch/internal/history"
	"spacewatch/internal/monitor"
	"spacewatch/internal/report"
	"spacewatch/internal/spaces"

	"github.com/spf13/cobra"
)

var (
	configFile  string
	outputDir   string
	historyFile string
	archiveDB   string
	timeoutSecs int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one poll/repair/record cycle",
	Long: `Check every configured space once, restart the unhealthy ones, append the
outcome to the history log and regenerate the static status page.

Individual space failures are recorded, not escalated: the command exits
non-zero only when required configuration is missing or the output cannot
be written.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("SPACEWATCH_CONFIG_FILE", ""), "Path to spaces.yaml configuration file")
	checkCmd.Flags().StringVarP(&outputDir, "output", "o", getEnvOrDefault("SPACEWATCH_OUTPUT_DIR", "docs"), "Directory for the generated report")
	checkCmd.Flags().StringVar(&historyFile, "history", getEnvOrDefault("SPACEWATCH_HISTORY_FILE", ""), "Path to the history log (default <output>/history.json)")
	checkCmd.Flags().StringVar(&archiveDB, "archive", getEnvOrDefault("SPACEWATCH_ARCHIVE_DB", ""), "Path to the SQLite check archive (disabled when empty)")
	checkCmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Global run budget in seconds (overrides GLOBAL_TIMEOUT_SECONDS)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	ctx := cmd.Context()

	logger.Info("Starting spacewatch check")

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if timeoutSecs > 0 {
		cfg.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if historyFile == "" {
		historyFile = filepath.Join(outputDir, "history.json")
	}

	logger.Info("Configuration loaded",
		"owner", cfg.Owner,
		"spaces", len(cfg.Spaces),
		"timeout", cfg.Timeout)

	client := spaces.NewClient(cfg.Owner, cfg.Token)
	runner := monitor.NewRunner(client, logger)
	runner.Hook = cfg.FailureHook

	entry := runner.Run(ctx, cfg.Spaces, cfg.Timeout)

	log := history.Load(historyFile)
	log.Append(entry)
	if err := log.Save(historyFile); err != nil {
		logger.Error("Failed to persist history", "error", err)
		return fmt.Errorf("failed to persist history: %w", err)
	}

	recordArchive(ctx, logger, entry)

	meta := report.Meta{
		Owner:       cfg.Owner,
		Repository:  cfg.Repository,
		GeneratedAt: entry.Timestamp,
	}
	if cfg.Repository != "" {
		state, err := gh.LatestRunConclusion(ctx, cfg.GitHubToken, cfg.Repository)
		if err != nil {
			logger.Warn("Failed to fetch scheduler status", "error", err)
		} else {
			meta.SchedulerState = state
		}
	}

	if err := report.Write(outputDir, log, meta); err != nil {
		logger.Error("Failed to write report", "error", err)
		return fmt.Errorf("failed to write report: %w", err)
	}

	writeGitHubOutput(logger, entry)

	rate := entry.SuccessRate()
	logger.Info("Check complete",
		"ok", countOk(entry),
		"total", len(entry.Results),
		"success_rate", rate)

	return nil
}

// recordArchive appends the run to the optional SQLite archive. Archive
// problems are logged only; the JSON log remains the source of truth.
func recordArchive(ctx context.Context, logger *slog.Logger, entry history.RunEntry) {
	if archiveDB == "" {
		return
	}

	arch, err := archive.Open(archiveDB)
	if err != nil {
		logger.Warn("Failed to open check archive", "error", err, "db", archiveDB)
		return
	}
	defer arch.Close()

	if err := arch.RecordRun(ctx, entry); err != nil {
		logger.Warn("Failed to archive check results", "error", err)
	}
}

// writeGitHubOutput exports the run outcome for downstream workflow steps
// when running under GitHub Actions. Never affects the exit code.
func writeGitHubOutput(logger *slog.Logger, entry history.RunEntry) {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.Warn("Failed to open GITHUB_OUTPUT", "error", err)
		return
	}
	defer f.Close()

	ok := countOk(entry) == len(entry.Results)
	percent := int(math.Round(entry.SuccessRate() * 100))
	fmt.Fprintf(f, "ok=%t\nsuccess_rate=%d\n", ok, percent)
}

func countOk(entry history.RunEntry) int {
	ok := 0
	for _, r := range entry.Results {
		if r.Status.Ok() {
			ok++
		}
	}
	return ok
}

// newLogger builds the text logger used by all commands. CI captures
// stderr, so no log file is involved.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
