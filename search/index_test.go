package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewIndex(writer, slog.Default())
}

func postMessage(t *testing.T, idx *Index, channel domain.ChannelID, sender, body string) domain.Message {
	t.Helper()
	msg := domain.Message{
		ID:         uuid.New(),
		Channel:    channel,
		SenderID:   sender,
		SenderName: sender,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, idx.Consume(context.Background(), event.MessagePosted{Message: msg}))
	return msg
}

func Test_Search_Finds_Indexed_Message(t *testing.T) {
	req := require.New(t)
	idx := openTestIndex(t)

	msg := postMessage(t, idx, "general", "Alice", "the quarterly invoice arrived")
	postMessage(t, idx, "general", "Bob", "lunch anyone")

	hits, err := idx.Search(context.Background(), "general", "invoice", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(msg.ID.String(), hits[0].MessageID)
	req.Equal("the quarterly invoice arrived", hits[0].Body)
	req.Equal("Alice", hits[0].Sender)
}

func Test_Search_Is_Channel_Scoped(t *testing.T) {
	req := require.New(t)
	idx := openTestIndex(t)

	postMessage(t, idx, "general", "Alice", "invoice in general")
	postMessage(t, idx, "random", "Bob", "invoice in random")

	hits, err := idx.Search(context.Background(), "random", "invoice", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("invoice in random", hits[0].Body)
}

func Test_Search_No_Match(t *testing.T) {
	req := require.New(t)
	idx := openTestIndex(t)

	postMessage(t, idx, "general", "Alice", "hello world")

	hits, err := idx.Search(context.Background(), "general", "submarine", 10)
	req.NoError(err)
	req.Empty(hits)
}
