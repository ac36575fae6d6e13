// Package ledger persists request timestamps across process restarts so
// the daily quota survives a restart. The backing file holds one RFC 3339
// timestamp per line and is compacted to the current day on every write.
package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Ledger is a best-effort durable log of request instants. I/O failures
// never propagate: a ledger that cannot be read counts zero, a ledger
// that cannot be written drops the entry. Concurrent processes writing
// the same file race last-writer-wins; the ledger is advisory, not a
// source of truth.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// New returns a Ledger backed by the file at path. The file and its
// parent directory are created lazily on first Record.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Record appends t to the ledger, then rewrites the file keeping only
// entries from t's calendar day (local date). Compaction on write keeps
// the read path a plain line count.
func (l *Ledger) Record(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines := l.readEntries()

	kept := lines[:0]
	for _, entry := range lines {
		if sameLocalDay(entry, t) {
			kept = append(kept, entry)
		}
	}
	kept = append(kept, t)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		zap.L().Warn("ledger: create directory failed", zap.String("path", l.path), zap.Error(err))
		return
	}

	var sb strings.Builder
	for _, entry := range kept {
		sb.WriteString(entry.Format(time.RFC3339))
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(l.path, []byte(sb.String()), 0o644); err != nil {
		zap.L().Warn("ledger: write failed", zap.String("path", l.path), zap.Error(err))
	}
}

// CountSince returns the number of recorded requests on day's calendar
// day (local date). An unreadable ledger counts as zero.
func (l *Ledger) CountSince(day time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, entry := range l.readEntries() {
		if sameLocalDay(entry, day) {
			count++
		}
	}
	return count
}

// readEntries loads and parses the ledger file. Unparseable lines are
// skipped so a corrupted file degrades instead of poisoning the count.
func (l *Ledger) readEntries() []time.Time {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("ledger: read failed", zap.String("path", l.path), zap.Error(err))
		}
		return nil
	}

	var entries []time.Time
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, line)
		if err != nil {
			continue
		}
		entries = append(entries, ts)
	}
	return entries
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
