// Package projection builds local timelines from observed events.
// Handles ordering and deduplication; does not emit events or interact
// with transport directly.
package projection

import (
	"github.com/google/uuid"

	"chat-relay/domain"
)

// Timeline holds one channel's locally observed messages. A message can
// arrive twice - once via fan-out and once via a history fetch - so entries
// are deduplicated by message id and kept ordered by (createdAt, id).
type Timeline struct {
	Owner    string
	Messages []domain.Message
	seen     map[uuid.UUID]struct{}
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{Owner: owner, seen: make(map[uuid.UUID]struct{})}
}

// Observe inserts a message at its ordered position. Returns false when the
// message was already present.
func (t *Timeline) Observe(msg domain.Message) bool {
	if _, dup := t.seen[msg.ID]; dup {
		return false
	}
	t.seen[msg.ID] = struct{}{}

	// Messages almost always arrive in order; walk back from the tail.
	idx := len(t.Messages)
	for idx > 0 && after(t.Messages[idx-1], msg) {
		idx--
	}
	t.Messages = append(t.Messages, domain.Message{})
	copy(t.Messages[idx+1:], t.Messages[idx:])
	t.Messages[idx] = msg
	return true
}

// ObserveAll feeds a history page into the timeline; already-seen entries
// are skipped. Returns the number of newly inserted messages.
func (t *Timeline) ObserveAll(msgs []domain.Message) int {
	var added int
	for _, msg := range msgs {
		if t.Observe(msg) {
			added++
		}
	}
	return added
}

func after(a, b domain.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}
