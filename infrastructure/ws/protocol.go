// Package ws carries the event-style socket protocol: one persistent
// WebSocket per client, a closed set of tagged client events validated at the
// boundary, and typed server events pushed back.
package ws

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"chat-relay/domain"
	"chat-relay/search"
)

// Client event types.
const (
	EventHandshake      = "handshake"
	EventJoinChannel    = "joinChannel"
	EventLeaveChannel   = "leaveChannel"
	EventSendMessage    = "sendMessage"
	EventRequestHistory = "requestHistory"
	EventSearchMessages = "searchMessages"
)

// Server event types.
const (
	EventPresenceSnapshot = "presenceSnapshot"
	EventChannelJoined    = "channelJoined"
	EventHistoryPage      = "historyPage"
	EventMessageDelivered = "messageDelivered"
	EventSearchResults    = "searchResults"
	EventErrorNotice      = "errorNotice"
)

// CodeBadEvent flags frames rejected at the protocol boundary, before any
// handler runs; it is transport-level, unlike the domain codes in errors.
const CodeBadEvent = "BAD_EVENT"

var validate = validator.New()

// ClientEvent is the single inbound frame shape; Type selects which fields
// are meaningful. Unknown types are rejected before dispatch.
type ClientEvent struct {
	Type    string  `json:"type" validate:"required,oneof=handshake joinChannel leaveChannel sendMessage requestHistory searchMessages"`
	Token   string  `json:"token,omitempty"`
	Channel string  `json:"channel,omitempty"`
	Body    string  `json:"body,omitempty"`
	Before  *string `json:"before,omitempty"`
	Limit   int     `json:"limit,omitempty" validate:"gte=0"`
	Query   string  `json:"query,omitempty"`
}

// Validate rejects malformed frames early, before any handler runs.
func (e ClientEvent) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	switch e.Type {
	case EventHandshake:
		if e.Token == "" {
			return fmt.Errorf("handshake requires a token")
		}
	case EventJoinChannel, EventLeaveChannel, EventSendMessage, EventRequestHistory, EventSearchMessages:
		if e.Channel == "" {
			return fmt.Errorf("%s requires a channel", e.Type)
		}
	}
	return nil
}

// WireMessage is the JSON rendering of a persisted message.
type WireMessage struct {
	ID         string `json:"id"`
	Channel    string `json:"channel"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Body       string `json:"body"`
	Lang       string `json:"lang,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

// WireHit is one search result row.
type WireHit struct {
	MessageID string `json:"messageId"`
	Sender    string `json:"sender"`
	Body      string `json:"body"`
}

// ServerEvent is the single outbound frame shape.
type ServerEvent struct {
	Type       string                 `json:"type"`
	Channel    string                 `json:"channel,omitempty"`
	Entries    []domain.PresenceEntry `json:"entries,omitempty"`
	Messages   []WireMessage          `json:"messages,omitempty"`
	Message    *WireMessage           `json:"message,omitempty"`
	NextCursor *string                `json:"nextCursor,omitempty"`
	Members    int                    `json:"members,omitempty"`
	Hits       []WireHit              `json:"hits,omitempty"`
	Code       string                 `json:"code,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

func toWireMessage(msg domain.Message) WireMessage {
	return WireMessage{
		ID:         msg.ID.String(),
		Channel:    string(msg.Channel),
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		Lang:       msg.Lang,
		CreatedAt:  msg.CreatedAt.Format(time.RFC3339Nano),
	}
}

// FromWireMessage parses a received frame back into the domain shape, for
// clients that keep a local timeline.
func FromWireMessage(wire WireMessage) (domain.Message, error) {
	id, err := uuid.Parse(wire.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("bad message id %q: %w", wire.ID, err)
	}
	at, err := time.Parse(time.RFC3339Nano, wire.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("bad timestamp %q: %w", wire.CreatedAt, err)
	}
	return domain.Message{
		ID:         id,
		Channel:    domain.ChannelID(wire.Channel),
		SenderID:   wire.SenderID,
		SenderName: wire.SenderName,
		Body:       wire.Body,
		Lang:       wire.Lang,
		CreatedAt:  at,
	}, nil
}

func toWireMessages(msgs []domain.Message) []WireMessage {
	return lo.Map(msgs, func(msg domain.Message, _ int) WireMessage {
		return toWireMessage(msg)
	})
}

func toWireHits(hits []search.Hit) []WireHit {
	return lo.Map(hits, func(hit search.Hit, _ int) WireHit {
		return WireHit{MessageID: hit.MessageID, Sender: hit.Sender, Body: hit.Body}
	})
}
