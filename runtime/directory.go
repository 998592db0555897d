package runtime

import (
	"strings"
	"sync"

	"chat-relay/domain"
)

// IChannelDirectory resolves channel ids to their durable identity. The real
// directory is the external CRUD service; the core only needs existence and
// name resolution.
type IChannelDirectory interface {
	Resolve(id domain.ChannelID) (domain.Channel, bool)
}

// StaticDirectory is a directory fed from configuration, for deployments
// where the channel set is fixed and the CRUD service is not wired in.
type StaticDirectory struct {
	mu       sync.RWMutex
	channels map[domain.ChannelID]domain.Channel
}

// NewStaticDirectory builds a directory from "id=name" declarations; a bare
// "id" uses the id as its name.
func NewStaticDirectory(decls []string) *StaticDirectory {
	channels := make(map[domain.ChannelID]domain.Channel, len(decls))
	for _, decl := range decls {
		decl = strings.TrimSpace(decl)
		if decl == "" {
			continue
		}
		id, name, found := strings.Cut(decl, "=")
		if !found {
			name = id
		}
		channels[domain.ChannelID(id)] = domain.Channel{ID: domain.ChannelID(id), Name: name}
	}
	return &StaticDirectory{channels: channels}
}

func (d *StaticDirectory) Resolve(id domain.ChannelID) (domain.Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[id]
	return ch, ok
}

// Register adds a channel at runtime, mirroring what the external directory
// does on channel creation.
func (d *StaticDirectory) Register(ch domain.Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[ch.ID] = ch
}
