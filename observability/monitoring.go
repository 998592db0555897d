// Package observability aggregates runtime counters of the messaging core.
package observability

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of the core's counters.
type Stats struct {
	ConnectionsOpened  uint64 `json:"connections_opened"`
	ConnectionsClosed  uint64 `json:"connections_closed"`
	MessagesPersisted  uint64 `json:"messages_persisted"`
	DeliveriesSent     uint64 `json:"deliveries_sent"`
	DeliveriesDropped  uint64 `json:"deliveries_dropped"`
	OperationsRejected uint64 `json:"operations_rejected"`
	CollectedAt        string `json:"collected_at"`
}

// Monitor collects counters from many goroutines without locking.
type Monitor struct {
	connectionsOpened  atomic.Uint64
	connectionsClosed  atomic.Uint64
	messagesPersisted  atomic.Uint64
	deliveriesSent     atomic.Uint64
	deliveriesDropped  atomic.Uint64
	operationsRejected atomic.Uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) IncrConnectionsOpened()  { m.connectionsOpened.Add(1) }
func (m *Monitor) IncrConnectionsClosed()  { m.connectionsClosed.Add(1) }
func (m *Monitor) IncrMessagesPersisted()  { m.messagesPersisted.Add(1) }
func (m *Monitor) IncrDeliveriesSent()     { m.deliveriesSent.Add(1) }
func (m *Monitor) IncrDeliveriesDropped()  { m.deliveriesDropped.Add(1) }
func (m *Monitor) IncrOperationsRejected() { m.operationsRejected.Add(1) }

func (m *Monitor) GetLatest() Stats {
	return Stats{
		ConnectionsOpened:  m.connectionsOpened.Load(),
		ConnectionsClosed:  m.connectionsClosed.Load(),
		MessagesPersisted:  m.messagesPersisted.Load(),
		DeliveriesSent:     m.deliveriesSent.Load(),
		DeliveriesDropped:  m.deliveriesDropped.Load(),
		OperationsRejected: m.operationsRejected.Load(),
		CollectedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}
