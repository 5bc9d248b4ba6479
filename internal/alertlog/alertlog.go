// Package alertlog keeps the bounded, newest-first list of dashboard alerts.
package alertlog

import (
	"sync"

	"github.com/aiguardian/guardian/internal/models"
)

// MaxEntries is the number of most recent alerts retained.
const MaxEntries = 50

// Log is an append-only, in-memory alert log. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []models.AlertLogEntry
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Append prepends entry and drops everything past the MaxEntries most recent.
func (l *Log) Append(entry models.AlertLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries) + 1
	if n > MaxEntries {
		n = MaxEntries
	}
	next := make([]models.AlertLogEntry, 0, n)
	next = append(next, entry)
	next = append(next, l.entries[:n-1]...)
	l.entries = next
}

// List returns a copy of the entries, newest first.
func (l *Log) List() []models.AlertLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.AlertLogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len reports the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
