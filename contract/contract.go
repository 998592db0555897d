//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor recovers its panics.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker lifecycle
// events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink consumes domain events for side effects (search index, metrics).
// Sinks run on the fan-out worker goroutine and must not block indefinitely.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// SessionSink is the delivery surface of one live connection. Both methods
// are fire-and-forget: implementations enqueue and never block the caller,
// dropping the payload if the connection cannot keep up.
type SessionSink interface {
	DeliverMessage(msg domain.Message)
	DeliverPresence(entries []domain.PresenceEntry)
}

// IPresence is the process-wide registry of live connections.
type IPresence interface {
	Announce(entry domain.PresenceEntry, sink SessionSink)
	Withdraw(conn domain.ConnectionID)
	Snapshot() []domain.PresenceEntry
	SinkFor(conn domain.ConnectionID) (SessionSink, bool)
}

// IMembership tracks which connections currently subscribe to which channel.
type IMembership interface {
	Join(channel domain.ChannelID, conn domain.ConnectionID) int
	Leave(channel domain.ChannelID, conn domain.ConnectionID)
	LeaveAll(conn domain.ConnectionID)
	IsMember(channel domain.ChannelID, conn domain.ConnectionID) bool
	MembersOf(channel domain.ChannelID) []domain.ConnectionID
}
