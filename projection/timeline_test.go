package projection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func msgAt(body string, at time.Time) domain.Message {
	return domain.Message{ID: uuid.New(), Channel: "general", Body: body, CreatedAt: at}
}

func Test_Observe_Deduplicates_By_MessageID(t *testing.T) {
	req := require.New(t)
	tl := NewTimeline("alice")

	msg := msgAt("hi", time.Now().UTC())
	req.True(tl.Observe(msg))
	req.False(tl.Observe(msg))
	req.Len(tl.Messages, 1)
}

func Test_Observe_Keeps_Chronological_Order(t *testing.T) {
	req := require.New(t)
	tl := NewTimeline("alice")
	now := time.Now().UTC()

	second := msgAt("second", now.Add(time.Second))
	first := msgAt("first", now)
	third := msgAt("third", now.Add(2*time.Second))

	tl.Observe(second)
	tl.Observe(third)
	tl.Observe(first)

	req.Equal([]string{"first", "second", "third"},
		[]string{tl.Messages[0].Body, tl.Messages[1].Body, tl.Messages[2].Body})
}

func Test_ObserveAll_Merges_History_With_Live_Messages(t *testing.T) {
	req := require.New(t)
	tl := NewTimeline("bob")
	now := time.Now().UTC()

	live := msgAt("live", now.Add(time.Minute))
	tl.Observe(live)

	history := []domain.Message{msgAt("old 1", now), msgAt("old 2", now.Add(time.Second)), live}
	added := tl.ObserveAll(history)

	req.Equal(2, added)
	req.Len(tl.Messages, 3)
	req.Equal("old 1", tl.Messages[0].Body)
	req.Equal("live", tl.Messages[2].Body)
}
