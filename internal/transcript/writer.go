package transcript

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidelake/chatrelay/pkg/log"
)

// Entry is a single transcript record. Entries are immutable once
// accepted and appear in the room file in hub accept order.
type Entry struct {
	Timestamp time.Time
	UserID    uint64
	Payload   string
}

func (e Entry) appendLine(b []byte) []byte {
	b = e.Timestamp.AppendFormat(b, time.RFC3339Nano)
	b = append(b, '\t')
	b = fmt.Appendf(b, "%d", e.UserID)
	b = append(b, ':', ' ')
	b = append(b, e.Payload...)
	b = append(b, '\n')
	return b
}

// WriterStats reports durability counters for one room writer.
type WriterStats struct {
	Dropped     uint64
	WriteErrors uint64
}

// Writer appends entries to a single room's transcript file. Append is
// non-blocking; a dedicated goroutine drains the queue into a buffered
// sequential writer and flushes when the queue goes idle or on a
// periodic tick. The file handle stays open for the process lifetime.
type Writer struct {
	roomID string
	path   string

	entries chan Entry
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once

	file *os.File
	bw   *bufio.Writer
	buf  []byte

	flushInterval time.Duration

	dropped     atomic.Uint64
	writeErrors atomic.Uint64
}

func newWriter(dir, roomID string, queueSize int, flushInterval time.Duration) (*Writer, error) {
	path := filepath.Join(dir, roomID+".log")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript file %s: %w", path, err)
	}

	w := &Writer{
		roomID:        roomID,
		path:          path,
		entries:       make(chan Entry, queueSize),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
		file:          file,
		bw:            bufio.NewWriter(file),
		flushInterval: flushInterval,
	}

	go w.run()

	return w, nil
}

// Append enqueues an entry and returns immediately. When the queue is
// full the entry is dropped and counted; the delivery path never waits
// on disk.
func (w *Writer) Append(e Entry) {
	select {
	case w.entries <- e:
	default:
		w.dropped.Add(1)
		l := log.L()
		l.Warn().Str(log.FieldRoomID, w.roomID).Msg("transcript queue full, entry dropped")
	}
}

// Stats returns the writer's durability counters.
func (w *Writer) Stats() WriterStats {
	return WriterStats{
		Dropped:     w.dropped.Load(),
		WriteErrors: w.writeErrors.Load(),
	}
}

// Path returns the transcript file path for this room.
func (w *Writer) Path() string {
	return w.path
}

// Close drains queued entries, flushes, and closes the file. Used only
// at process shutdown; rooms never close their writer while running.
func (w *Writer) Close() error {
	w.once.Do(func() {
		close(w.stop)
	})
	<-w.done
	return nil
}

func (w *Writer) run() {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case e := <-w.entries:
			w.write(e)
			w.drainQueued()
			w.flush()
		case <-ticker.C:
			w.flush()
		case <-w.stop:
			w.drainQueued()
			w.flush()
			if err := w.file.Close(); err != nil {
				l := log.L()
				l.Error().Str(log.FieldRoomID, w.roomID).Err(err).Msg("failed to close transcript file")
			}
			close(w.done)
			return
		}
	}
}

// drainQueued writes every entry already sitting in the queue so a
// burst becomes one flush instead of one syscall per message.
func (w *Writer) drainQueued() {
	for {
		select {
		case e := <-w.entries:
			w.write(e)
		default:
			return
		}
	}
}

func (w *Writer) write(e Entry) {
	w.buf = e.appendLine(w.buf[:0])
	if _, err := w.bw.Write(w.buf); err != nil {
		w.writeErrors.Add(1)
		l := log.L()
		l.Error().Str(log.FieldRoomID, w.roomID).Err(err).Msg("transcript write failed")
	}
}

func (w *Writer) flush() {
	if err := w.bw.Flush(); err != nil {
		w.writeErrors.Add(1)
		l := log.L()
		l.Error().Str(log.FieldRoomID, w.roomID).Err(err).Msg("transcript flush failed")
	}
}
