// Package transcript records every message accepted into a room to a
// durable, append-only per-room log file, decoupled from the delivery
// path so disk latency never stalls fan-out.
package transcript

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tidelake/chatrelay/internal/config"
)

// Logger owns one Writer per room. Writers are created on first
// reference and kept for the process lifetime; their file handles are
// opened once and never reopened.
type Logger struct {
	mu      sync.RWMutex
	writers map[string]*Writer
	cfg     config.TranscriptConfig
}

func NewLogger(cfg config.TranscriptConfig) (*Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create transcript dir %s: %w", cfg.Dir, err)
	}

	return &Logger{
		writers: make(map[string]*Writer),
		cfg:     cfg,
	}, nil
}

// Writer returns the writer for roomID, creating it on first use.
// Concurrent first-callers for the same room observe exactly one
// writer; a re-created room keeps appending to its existing file.
func (l *Logger) Writer(roomID string) (*Writer, error) {
	l.mu.RLock()
	w, ok := l.writers[roomID]
	l.mu.RUnlock()
	if ok {
		return w, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.writers[roomID]; ok {
		return w, nil
	}

	w, err := newWriter(l.cfg.Dir, roomID, l.cfg.QueueSize, l.cfg.FlushInterval)
	if err != nil {
		return nil, err
	}
	l.writers[roomID] = w
	return w, nil
}

// Stats returns per-room durability counters keyed by room id.
func (l *Logger) Stats() map[string]WriterStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[string]WriterStats, len(l.writers))
	for roomID, w := range l.writers {
		stats[roomID] = w.Stats()
	}
	return stats
}

// Close flushes and closes every room writer concurrently. Call once
// at process shutdown after message intake has stopped.
func (l *Logger) Close() error {
	l.mu.Lock()
	writers := make([]*Writer, 0, len(l.writers))
	for _, w := range l.writers {
		writers = append(writers, w)
	}
	l.mu.Unlock()

	var g errgroup.Group
	for _, w := range writers {
		g.Go(w.Close)
	}
	return g.Wait()
}
