package feedback

import (
	"sync"
	"time"
)

const DefaultCapacity = 20

// Source tells where a feedback message came from.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceSystem Source = "system"
)

type Message struct {
	Text      string    `json:"text"`
	Source    Source    `json:"source"`
	IsCorrect *bool     `json:"isCorrect,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Log keeps the most recent messages of a session. Appending to a full log
// evicts the oldest entry.
type Log struct {
	mutex    sync.RWMutex
	capacity int
	entries  []Message
	start    int
	total    int
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		entries:  make([]Message, 0, capacity),
	}
}

func (l *Log) Append(msg Message) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.total++
	if len(l.entries) < l.capacity {
		l.entries = append(l.entries, msg)
		return
	}
	l.entries[l.start] = msg
	l.start = (l.start + 1) % l.capacity
}

// Entries returns the retained messages, oldest first.
func (l *Log) Entries() []Message {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	out := make([]Message, 0, len(l.entries))
	out = append(out, l.entries[l.start:]...)
	out = append(out, l.entries[:l.start]...)
	return out
}

// Last returns the newest message, if any.
func (l *Log) Last() (Message, bool) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if len(l.entries) == 0 {
		return Message{}, false
	}
	idx := (l.start + len(l.entries) - 1) % len(l.entries)
	return l.entries[idx], true
}

func (l *Log) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.entries)
}

// Total is the number of messages ever appended, evicted ones included.
func (l *Log) Total() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return l.total
}
