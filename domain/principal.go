// Package domain contains core concepts of the messaging system.
// This file defines identities attached to live connections.
// No runtime, network, or UI logic should be added here.
package domain

// Principal is the authenticated identity resolved once at handshake.
// It is immutable for the lifetime of the connection that carries it.
type Principal struct {
	ID          string
	DisplayName string
}

// ConnectionID identifies one live transport session. A principal may own
// several concurrent connections (multi-device), each with its own id.
type ConnectionID string

// PresenceEntry is one row of the process-wide presence mapping.
// Exactly one entry exists per live connection; entries of the same
// principal coexist independently.
type PresenceEntry struct {
	PrincipalID  string       `json:"principalId"`
	DisplayName  string       `json:"displayName"`
	ConnectionID ConnectionID `json:"connectionId"`
}
