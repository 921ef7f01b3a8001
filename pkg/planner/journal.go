package planner

import (
	"sync"

	"github.com/planward/planward/pkg/events"
)

// journalLimit bounds how many entries one session's feed retains. A
// client polling at any sane interval stays far below it; one that falls
// further behind simply misses the oldest entries.
const journalLimit = 256

// JournalEntry is one event as seen by a polling client. Seq numbers
// entries per session, starting at 1, so clients resume with the last
// sequence they saw.
type JournalEntry struct {
	Seq   uint64           `json:"seq"`
	Type  events.EventType `json:"type"`
	Event any              `json:"event"`
}

type feed struct {
	nextSeq uint64
	entries []JournalEntry
}

// journal keeps a bounded, ordered record of recent events per session.
// It is fed from the event bus, so it sees exactly what external
// subscribers see, in the same order.
type journal struct {
	mu    sync.Mutex
	limit int
	feeds map[string]*feed
}

func newJournal(limit int) *journal {
	return &journal{
		limit: limit,
		feeds: make(map[string]*feed),
	}
}

// record appends one decoded event to its session's feed. Events that do
// not expose a session key are ignored.
func (j *journal) record(eventType events.EventType, event any) {
	keyed, ok := event.(interface{ SessionKey() string })
	if !ok {
		return
	}

	sessionID := keyed.SessionKey()
	if sessionID == "" {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, ok := j.feeds[sessionID]
	if !ok {
		f = &feed{}
		j.feeds[sessionID] = f
	}

	f.nextSeq++

	f.entries = append(f.entries, JournalEntry{
		Seq:   f.nextSeq,
		Type:  eventType,
		Event: event,
	})

	if len(f.entries) > j.limit {
		overflow := len(f.entries) - j.limit
		f.entries = append(f.entries[:0], f.entries[overflow:]...)
	}
}

// after returns the session's entries with sequence numbers greater than
// seq, oldest first. The result is a copy.
func (j *journal) after(sessionID string, seq uint64) []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, ok := j.feeds[sessionID]
	if !ok {
		return []JournalEntry{}
	}

	start := len(f.entries)

	for i, entry := range f.entries {
		if entry.Seq > seq {
			start = i

			break
		}
	}

	result := make([]JournalEntry, len(f.entries)-start)
	copy(result, f.entries[start:])

	return result
}

// drop discards a deleted session's feed.
func (j *journal) drop(sessionID string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.feeds, sessionID)
}
