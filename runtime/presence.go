// Package runtime owns the shared mutable state of the messaging core:
// presence, channel membership, and the broadcast pipeline. It contains no
// transport or UI logic.
package runtime

import (
	"log/slog"
	"sort"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
)

// Presence is the process-wide registry of live connections. State resets
// with the process; nothing is persisted. Mutations are serialized by a
// single writer lock, but snapshot delivery happens outside the lock and may
// race with further changes - clients tolerate slightly stale snapshots.
type Presence struct {
	mu      sync.RWMutex
	log     *slog.Logger
	entries map[domain.ConnectionID]domain.PresenceEntry
	sinks   map[domain.ConnectionID]contract.SessionSink
}

func NewPresence(log *slog.Logger) *Presence {
	return &Presence{
		log:     log,
		entries: make(map[domain.ConnectionID]domain.PresenceEntry),
		sinks:   make(map[domain.ConnectionID]contract.SessionSink),
	}
}

// Announce inserts or overwrites the entry for a connection and pushes a full
// snapshot to every registered session, the announcing one included.
func (p *Presence) Announce(entry domain.PresenceEntry, sink contract.SessionSink) {
	p.mu.Lock()
	p.entries[entry.ConnectionID] = entry
	p.sinks[entry.ConnectionID] = sink
	snapshot, targets := p.snapshotLocked()
	p.mu.Unlock()

	p.log.Debug("presence announced",
		"connection", entry.ConnectionID, "principal", entry.PrincipalID, "online", len(snapshot))
	broadcastSnapshot(snapshot, targets)
}

// Withdraw removes the entry for a specific connection and pushes the updated
// snapshot to the remaining sessions. Unknown connections are a no-op.
func (p *Presence) Withdraw(conn domain.ConnectionID) {
	p.mu.Lock()
	if _, ok := p.entries[conn]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.entries, conn)
	delete(p.sinks, conn)
	snapshot, targets := p.snapshotLocked()
	p.mu.Unlock()

	p.log.Debug("presence withdrawn", "connection", conn, "online", len(snapshot))
	broadcastSnapshot(snapshot, targets)
}

// Snapshot returns the current mapping, ordered for stable wire output.
func (p *Presence) Snapshot() []domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snapshot, _ := p.snapshotLocked()
	return snapshot
}

// SinkFor resolves a connection id into its delivery sink. The second return
// is false when the connection has already gone away.
func (p *Presence) SinkFor(conn domain.ConnectionID) (contract.SessionSink, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sink, ok := p.sinks[conn]
	return sink, ok
}

func (p *Presence) snapshotLocked() ([]domain.PresenceEntry, []contract.SessionSink) {
	snapshot := make([]domain.PresenceEntry, 0, len(p.entries))
	for _, entry := range p.entries {
		snapshot = append(snapshot, entry)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].PrincipalID != snapshot[j].PrincipalID {
			return snapshot[i].PrincipalID < snapshot[j].PrincipalID
		}
		return snapshot[i].ConnectionID < snapshot[j].ConnectionID
	})

	targets := make([]contract.SessionSink, 0, len(p.sinks))
	for _, sink := range p.sinks {
		targets = append(targets, sink)
	}
	return snapshot, targets
}

// broadcastSnapshot runs without the registry lock; sinks enqueue and never
// block, so one slow connection cannot stall presence updates.
func broadcastSnapshot(snapshot []domain.PresenceEntry, targets []contract.SessionSink) {
	for _, sink := range targets {
		sink.DeliverPresence(snapshot)
	}
}
