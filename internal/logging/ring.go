package logging

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// RingBuffer is a logrus hook that keeps the most recent formatted entries.
type RingBuffer struct {
	mu        sync.Mutex
	entries   []string
	next      int
	full      bool
	formatter log.Formatter
}

// NewRingBuffer returns a buffer holding at most capacity entries.
func NewRingBuffer(capacity int, formatter log.Formatter) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	if formatter == nil {
		formatter = &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	}
	return &RingBuffer{entries: make([]string, capacity), formatter: formatter}
}

func (b *RingBuffer) Levels() []log.Level {
	return log.AllLevels
}

func (b *RingBuffer) Fire(entry *log.Entry) error {
	line, errFormat := b.formatter.Format(entry)
	if errFormat != nil {
		return errFormat
	}
	b.Append(strings.TrimRight(string(line), "\n"))
	return nil
}

// Append stores one entry, dropping the oldest when full.
func (b *RingBuffer) Append(line string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = line
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Snapshot returns the retained entries, oldest first.
func (b *RingBuffer) Snapshot() []string {
	if b == nil {
		return []string{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.full {
		return append([]string{}, b.entries[:b.next]...)
	}
	out := make([]string, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	return append(out, b.entries[:b.next]...)
}

// Len reports the number of retained entries.
func (b *RingBuffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}
