package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"time"

	"spacewatch/internal/history"
)

// timeLayout is the run key format used in data.js and on the page.
const timeLayout = "2006-01-02 15:04:05"

// Meta carries the report decorations that do not come from the log itself.
type Meta struct {
	Owner          string
	Repository     string    // owner/repo of the scheduling repository, optional
	SchedulerState string    // conclusion of the latest scheduler run, optional
	GeneratedAt    time.Time // injected by the caller so rendering stays deterministic
}

// Write renders the status page (index.html) and its data artifact (data.js)
// into dir. Output is byte-identical for identical log content and meta.
func Write(dir string, log *history.Log, meta Meta) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := DataJS(log)
	if err != nil {
		return fmt.Errorf("failed to render data file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "data.js"), data, 0644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}

	page, err := Render(log, meta)
	if err != nil {
		return fmt.Errorf("failed to render status page: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.html"), page, 0644); err != nil {
		return fmt.Errorf("failed to write status page: %w", err)
	}

	return nil
}

// DataJS renders the log as the `const spaceStatusData = {...};` artifact.
// The object is keyed by run timestamp, oldest first, each value keyed by
// space name in check order. Built by hand because encoding/json does not
// preserve map order.
func DataJS(log *history.Log) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("const spaceStatusData = {")

	for i, entry := range log.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		if err := writeJSONString(&buf, entry.Timestamp.UTC().Format(timeLayout)); err != nil {
			return nil, err
		}
		buf.WriteString(": {")

		for j, r := range entry.Results {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString("\n    ")
			if err := writeJSONString(&buf, r.Name); err != nil {
				return nil, err
			}
			buf.WriteString(fmt.Sprintf(`: {"status": %q, "ok": %t, "duration": "%.2fs"}`,
				string(r.Status), r.Status.Ok(), r.Latency))
		}

		buf.WriteString("\n  }")
	}

	buf.WriteString("\n};\n")
	return buf.Bytes(), nil
}

// Render produces the full status page.
func Render(log *history.Log, meta Meta) ([]byte, error) {
	stats := log.Stats()

	page := pageData{
		Owner:          meta.Owner,
		Repository:     meta.Repository,
		SchedulerState: meta.SchedulerState,
		GeneratedAt:    meta.GeneratedAt.UTC().Format(timeLayout),
		TotalChecks:    stats.TotalChecks,
		SuccessRate:    fmt.Sprintf("%d%%", int(math.Round(stats.SuccessRate*100))),
	}
	if !stats.LastRun.IsZero() {
		page.LastRun = stats.LastRun.UTC().Format(timeLayout)
	} else {
		page.LastRun = "never"
	}

	// Newest run first on the page.
	for i := len(log.Entries) - 1; i >= 0; i-- {
		entry := log.Entries[i]
		run := runView{
			Timestamp:   entry.Timestamp.UTC().Format(timeLayout),
			SuccessRate: fmt.Sprintf("%d%%", int(math.Round(entry.SuccessRate()*100))),
		}
		for _, r := range entry.Results {
			run.Checks = append(run.Checks, checkView{
				Name:  r.Name,
				Ok:    r.Status.Ok(),
				Label: checkLabel(r),
			})
		}
		page.Runs = append(page.Runs, run)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to execute page template: %w", err)
	}
	return buf.Bytes(), nil
}

// checkLabel is the per-check text after the name: latency for ok checks,
// the classification (plus reason when present) otherwise.
func checkLabel(r history.CheckResult) string {
	if r.Status.Ok() {
		return fmt.Sprintf("%.2fs", r.Latency)
	}
	if r.Detail != "" {
		return fmt.Sprintf("%s (%s)", r.Status, r.Detail)
	}
	return string(r.Status)
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode string: %w", err)
	}
	buf.Write(encoded)
	return nil
}

type pageData struct {
	Owner          string
	Repository     string
	SchedulerState string
	GeneratedAt    string
	TotalChecks    int
	SuccessRate    string
	LastRun        string
	Runs           []runView
}

type runView struct {
	Timestamp   string
	SuccessRate string
	Checks      []checkView
}

type checkView struct {
	Name  string
	Ok    bool
	Label string
}

var pageTemplate = template.Must(template.New("status").Parse(pageHTML))
