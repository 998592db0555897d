package domain

// SendMessageCommand asks the pipeline to persist and fan out one message.
type SendMessageCommand struct {
	Channel    ChannelID
	Connection ConnectionID
	Sender     Principal
	Body       string
}

// HistoryCommand requests one page of a channel's message log.
// Before is an opaque cursor; nil means "most recent page".
type HistoryCommand struct {
	Channel ChannelID
	Before  *string
	Limit   int
}
