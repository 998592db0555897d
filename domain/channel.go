package domain

// ChannelID identifies a named room. Identity lives in the external channel
// directory; membership is tracked separately and is ephemeral.
type ChannelID string

// Channel couples a channel id with its display name.
type Channel struct {
	ID   ChannelID
	Name string
}
