package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads the persisted run log. A missing or malformed file yields an
// empty log rather than an error: the log is rewritten in full on every run,
// so a corrupt file simply restarts the history.
func Load(path string) *Log {
	data, err := os.ReadFile(path)
	if err != nil {
		return &Log{}
	}

	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return &Log{}
	}

	return &log
}

// Append adds an entry at the end and discards the oldest entries until the
// log holds at most MaxEntries runs.
func (l *Log) Append(entry RunEntry) {
	l.Entries = append(l.Entries, entry)
	if len(l.Entries) > MaxEntries {
		l.Entries = l.Entries[len(l.Entries)-MaxEntries:]
	}
}

// Save writes the full log back to disk. Writes are whole-file; invocations
// are serialized by the external scheduler, so no locking is done here.
func (l *Log) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	return nil
}

// Stats aggregates the whole retained log.
func (l *Log) Stats() Stats {
	var s Stats
	for _, entry := range l.Entries {
		for _, r := range entry.Results {
			s.TotalChecks++
			if r.Status.Ok() {
				s.OkChecks++
			}
		}
	}
	if s.TotalChecks > 0 {
		s.SuccessRate = float64(s.OkChecks) / float64(s.TotalChecks)
	}
	if n := len(l.Entries); n > 0 {
		s.LastRun = l.Entries[n-1].Timestamp
	}
	return s
}
