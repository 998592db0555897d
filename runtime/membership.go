package runtime

import (
	"sync"

	"chat-relay/domain"
)

type set map[domain.ConnectionID]struct{}

// Membership tracks, per channel, the set of member connection ids. It is the
// single source of truth for "who gets this message", decoupled from the
// transport so fan-out is testable without network connections.
//
// Membership is ephemeral: when a channel loses its last member the entry is
// pruned; durable channel identity lives in the external channel directory.
type Membership struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]set
	joined   map[domain.ConnectionID]map[domain.ChannelID]struct{}
}

func NewMembership() *Membership {
	return &Membership{
		channels: make(map[domain.ChannelID]set),
		joined:   make(map[domain.ConnectionID]map[domain.ChannelID]struct{}),
	}
}

// Join adds the connection to the channel set and returns the updated member
// count. Joining twice does not duplicate the member.
func (m *Membership) Join(channel domain.ChannelID, conn domain.ConnectionID) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.channels[channel]
	if !ok {
		members = make(set)
		m.channels[channel] = members
	}
	members[conn] = struct{}{}

	if _, ok := m.joined[conn]; !ok {
		m.joined[conn] = make(map[domain.ChannelID]struct{})
	}
	m.joined[conn][channel] = struct{}{}

	return len(members)
}

// Leave removes the connection from the channel; a no-op if not a member.
func (m *Membership) Leave(channel domain.ChannelID, conn domain.ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(channel, conn)
}

// LeaveAll removes the connection from every channel it has joined, in one
// atomic step. Used on disconnect so no partial deregistration is observable.
func (m *Membership) LeaveAll(conn domain.ConnectionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for channel := range m.joined[conn] {
		m.leaveLocked(channel, conn)
	}
}

func (m *Membership) leaveLocked(channel domain.ChannelID, conn domain.ConnectionID) {
	members, ok := m.channels[channel]
	if !ok {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(m.channels, channel)
	}

	if joined, ok := m.joined[conn]; ok {
		delete(joined, channel)
		if len(joined) == 0 {
			delete(m.joined, conn)
		}
	}
}

// IsMember reports whether the connection has joined the channel.
func (m *Membership) IsMember(channel domain.ChannelID, conn domain.ConnectionID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[channel][conn]
	return ok
}

// MembersOf returns a snapshot of the channel's member connections. The
// snapshot reflects every join/leave that completed before this call; the
// caller iterates it without holding any lock.
func (m *Membership) MembersOf(channel domain.ChannelID) []domain.ConnectionID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.channels[channel]
	if len(members) == 0 {
		return nil
	}
	out := make([]domain.ConnectionID, 0, len(members))
	for conn := range members {
		out = append(out, conn)
	}
	return out
}
