package archive

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"spacewatch/internal/history"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	arch, err := Open(filepath.Join(t.TempDir(), "checks.db"))
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	t.Cleanup(func() { arch.Close() })
	return arch
}

func TestRecordRunAndRecentChecks(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	entry := history.RunEntry{
		Timestamp: ts,
		Results: []history.CheckResult{
			{Name: "chat-demo", Status: history.StatusHealthy, Latency: 1.5, Timestamp: ts},
			{Name: "image-gen", Status: history.StatusError, Latency: 0.2, Timestamp: ts, Detail: "401 unauthorized"},
		},
	}

	if err := arch.RecordRun(ctx, entry); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	checks, err := arch.RecentChecks(ctx, "image-gen", 10)
	if err != nil {
		t.Fatalf("Failed to query recent checks: %v", err)
	}
	if len(checks) != 1 {
		t.Fatalf("Expected 1 check for image-gen, got %d", len(checks))
	}
	if checks[0].Status != history.StatusError {
		t.Errorf("Status = %s, want error", checks[0].Status)
	}
	if checks[0].Detail != "401 unauthorized" {
		t.Errorf("Detail = %q", checks[0].Detail)
	}
	if !checks[0].Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", checks[0].Timestamp, ts)
	}
}

func TestRecentChecks_NewestFirst(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		entry := history.RunEntry{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Results: []history.CheckResult{
				{Name: "demo", Status: history.StatusHealthy, Latency: float64(i), Timestamp: base.Add(time.Duration(i) * time.Hour)},
			},
		}
		if err := arch.RecordRun(ctx, entry); err != nil {
			t.Fatalf("Failed to record run %d: %v", i, err)
		}
	}

	checks, err := arch.RecentChecks(ctx, "demo", 2)
	if err != nil {
		t.Fatalf("Failed to query recent checks: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("Expected limit applied, got %d checks", len(checks))
	}
	if !checks[0].Timestamp.After(checks[1].Timestamp) {
		t.Errorf("Expected newest first, got %v then %v", checks[0].Timestamp, checks[1].Timestamp)
	}
}

func TestSpaceStats(t *testing.T) {
	arch := openTestArchive(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	entry := history.RunEntry{
		Timestamp: ts,
		Results: []history.CheckResult{
			{Name: "demo", Status: history.StatusHealthy, Latency: 1.0, Timestamp: ts},
			{Name: "demo", Status: history.StatusRebuilt, Latency: 3.0, Timestamp: ts},
			{Name: "demo", Status: history.StatusTimeout, Latency: 99.0, Timestamp: ts},
			{Name: "other", Status: history.StatusHealthy, Latency: 5.0, Timestamp: ts},
		},
	}
	if err := arch.RecordRun(ctx, entry); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	stats, err := arch.SpaceStats(ctx, "demo")
	if err != nil {
		t.Fatalf("Failed to query stats: %v", err)
	}
	if stats.TotalChecks != 3 {
		t.Errorf("TotalChecks = %d, want 3", stats.TotalChecks)
	}
	if stats.OkChecks != 2 {
		t.Errorf("OkChecks = %d, want 2", stats.OkChecks)
	}
	// Average over ok checks only: (1.0 + 3.0) / 2
	if math.Abs(stats.AvgLatency-2.0) > 1e-9 {
		t.Errorf("AvgLatency = %v, want 2.0", stats.AvgLatency)
	}
}

func TestSpaceStats_EmptyArchive(t *testing.T) {
	arch := openTestArchive(t)

	stats, err := arch.SpaceStats(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Failed to query stats: %v", err)
	}
	if stats.TotalChecks != 0 || stats.OkChecks != 0 || stats.AvgLatency != 0 {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}
