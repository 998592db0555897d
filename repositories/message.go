//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
)

// DefaultPageLimit bounds a history page when the caller asks for nothing
// sane. It is also the hard maximum for caller-requested limits.
const DefaultPageLimit = 50

type IMessageRepository interface {
	Append(channel domain.ChannelID, sender domain.Principal, body, lang string) (domain.Message, error)
	Page(channel domain.ChannelID, before *string, limit int) ([]domain.Message, *string, error)
}

// MessageRepository is the append-only per-channel message log on BadgerDB.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	maxLimit int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, maxLimit int) MessageRepository {
	if maxLimit <= 0 {
		maxLimit = DefaultPageLimit
	}
	return MessageRepository{db: db, log: log, maxLimit: maxLimit}
}

// diskMessage is the CBOR record stored as the Badger value.
type diskMessage struct {
	ID         string `cbor:"id"`
	Channel    string `cbor:"channel"`
	SenderID   string `cbor:"sender_id"`
	SenderName string `cbor:"sender_name"`
	Body       string `cbor:"body"`
	Lang       string `cbor:"lang,omitempty"`
	At         int64  `cbor:"at"`
}

// Append assigns the message id and timestamp, then persists the record.
// The key is formatted as "msg:{channel}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
//
// The write is durable before the message is returned; callers may broadcast it.
func (m MessageRepository) Append(channel domain.ChannelID, sender domain.Principal, body, lang string) (domain.Message, error) {
	msg := domain.Message{
		ID:         uuid.New(),
		Channel:    channel,
		SenderID:   sender.ID,
		SenderName: sender.DisplayName,
		Body:       body,
		Lang:       lang,
		CreatedAt:  time.Now().UTC(),
	}

	key := fmt.Sprintf("msg:%s:%019d:%s", msg.Channel, msg.CreatedAt.UnixNano(), msg.ID)
	bytes, err := cbor.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
	}
	return msg, nil
}

// Page retrieves up to limit messages of a channel strictly older than the
// cursor (or the most recent ones when the cursor is nil). The underlying scan
// is most-recent-first for efficient bounding; the returned slice is reversed
// to oldest-first for direct rendering. The second return value is the cursor
// of the oldest message in the page, to be passed back for the next page.
//
// The whole read runs inside one Badger View transaction, so a page never
// observes appends that happen after its snapshot.
func (m MessageRepository) Page(channel domain.ChannelID, before *string, limit int) ([]domain.Message, *string, error) {
	if limit <= 0 || limit > m.maxLimit {
		limit = m.maxLimit
	}

	var records []diskMessage
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", channel)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch before {
		case nil:
			// Seek past any possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*before)...)
		}

		it.Seek(seekKey)

		// The cursor names the oldest message of the previous page; skip it
		// so pages never overlap. A reverse seek lands on the largest key <=
		// the target, so only skip when it landed on the cursor itself - a
		// cursor that matches no stored key already points at an older entry.
		if before != nil && it.ValidForPrefix(prefix) &&
			string(it.Item().Key()[len(prefixStr):]) == *before {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(records) == limit {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(value []byte) error {
				var rec diskMessage
				if err := cbor.Unmarshal(value, &rec); err != nil {
					return err
				}
				records = append(records, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	if len(records) == 0 {
		return nil, nil, nil
	}

	// Scan order is newest-first; flip it for chat rendering.
	messages := make([]domain.Message, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		msg, err := toMessage(records[i])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		messages = append(messages, msg)
	}
	return messages, lo.ToPtr(lastKey), nil
}

// CursorFor rebuilds the opaque pagination cursor of a message, letting
// clients resume paging from any message they already hold.
func CursorFor(msg domain.Message) string {
	return fmt.Sprintf("%019d:%s", msg.CreatedAt.UnixNano(), msg.ID)
}

// DecodeStored turns a raw Badger value back into a message. Used by the
// offline inspection tool; the repository itself goes through toMessage.
func DecodeStored(value []byte) (domain.Message, error) {
	var rec diskMessage
	if err := cbor.Unmarshal(value, &rec); err != nil {
		return domain.Message{}, err
	}
	return toMessage(rec)
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:         msg.ID.String(),
		Channel:    string(msg.Channel),
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Lang:       msg.Lang,
		At:         msg.CreatedAt.UnixNano(),
	}
}

func toMessage(rec diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(rec.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         parsedID,
		Channel:    domain.ChannelID(rec.Channel),
		SenderID:   rec.SenderID,
		SenderName: rec.SenderName,
		Body:       rec.Body,
		Lang:       rec.Lang,
		CreatedAt:  time.Unix(0, rec.At).UTC(),
	}, nil
}
