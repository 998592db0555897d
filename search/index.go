// Package search maintains a full-text index over broadcast messages and
// answers channel-scoped queries. It is fed asynchronously by the event
// fan-out, so indexing lag never delays message delivery.
package search

import (
	"context"
	"log/slog"

	"github.com/blugelabs/bluge"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// Hit is one search result; Body is the stored message text at index time.
type Hit struct {
	MessageID string
	Sender    string
	Body      string
}

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Consume implements contract.EventSink: every persisted message becomes an
// indexed document keyed by its message id.
func (i *Index) Consume(_ context.Context, e event.DomainEvent) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return nil
	}
	msg := posted.Message

	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewTextField("body", msg.Body).StoreValue()).
		AddField(bluge.NewKeywordField("channel", string(msg.Channel))).
		AddField(bluge.NewKeywordField("sender", msg.SenderName).StoreValue()).
		AddField(bluge.NewDateTimeField("at", msg.CreatedAt))

	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit messages of one channel matching the terms.
func (i *Index) Search(ctx context.Context, channel domain.ChannelID, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	match := bluge.NewMatchQuery(terms)
	match.SetField("body")
	scope := bluge.NewTermQuery(string(channel))
	scope.SetField("channel")
	query := bluge.NewBooleanQuery().AddMust(match).AddMust(scope)

	iter, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		next, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		var hit Hit
		err = next.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "body":
				hit.Body = string(value)
			case "sender":
				hit.Sender = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
