package runtime

import (
	"sync"

	"chat-relay/domain"
)

// recordingSink captures deliveries for assertions; it mimics a session's
// non-blocking outbound queue.
type recordingSink struct {
	mu        sync.Mutex
	messages  []domain.Message
	snapshots [][]domain.PresenceEntry
}

func (s *recordingSink) DeliverMessage(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) DeliverPresence(entries []domain.PresenceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, entries)
}

func (s *recordingSink) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *recordingSink) LastSnapshot() []domain.PresenceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) == 0 {
		return nil
	}
	return s.snapshots[len(s.snapshots)-1]
}
