package event

import (
	"chat-relay/domain"
)

// DomainEvent is the closed set of facts emitted by the broadcast pipeline
// for side-effect consumers (search index, metrics). Events carry the channel
// they belong to so consumers can scope their work.
type DomainEvent interface {
	ChannelID() domain.ChannelID
}

// MessagePosted is emitted after a message has been durably persisted and
// fanned out. It carries the stored message, ids and timestamp included.
type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) ChannelID() domain.ChannelID {
	return m.Message.Channel
}
