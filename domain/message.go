// Package domain contains core concepts of the messaging system.
// This file defines Message events and related rules.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event. ID and CreatedAt are assigned
// by the store at persistence time and order messages within a channel.
type Message struct {
	ID         uuid.UUID
	Channel    ChannelID
	SenderID   string
	SenderName string
	Body       string
	Lang       string
	CreatedAt  time.Time
}
