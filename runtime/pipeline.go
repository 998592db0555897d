package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	apperrors "chat-relay/errors"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/repositories"
)

//go:embed censored/*
var censoredFolder embed.FS

// LoadCensoredWords reads the embedded moderation wordlist, one word per
// line, '#' starting a comment.
func LoadCensoredWords() ([]string, error) {
	data, err := censoredFolder.ReadFile("censored/words.txt")
	if err != nil {
		return nil, fmt.Errorf("reading censored wordlist: %w", err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words, nil
}

// Pipeline drives one send through Validated -> Persisted -> Broadcast.
// No partial state is observable: a message is either rejected before any
// write, or durably persisted and then fanned out.
type Pipeline struct {
	log        *slog.Logger
	membership contract.IMembership
	presence   contract.IPresence
	directory  IChannelDirectory
	repository repositories.IMessageRepository
	moderator  *moderation.Moderator
	monitor    *observability.Monitor
	events     chan event.DomainEvent
}

func NewPipeline(
	log *slog.Logger,
	membership contract.IMembership,
	presence contract.IPresence,
	directory IChannelDirectory,
	repository repositories.IMessageRepository,
	moderator *moderation.Moderator,
	monitor *observability.Monitor,
	bufferSize int,
) *Pipeline {
	return &Pipeline{
		log:        log,
		membership: membership,
		presence:   presence,
		directory:  directory,
		repository: repository,
		moderator:  moderator,
		monitor:    monitor,
		events:     make(chan event.DomainEvent, bufferSize),
	}
}

// Events exposes the side-effect bus consumed by the fan-out worker.
func (p *Pipeline) Events() chan event.DomainEvent {
	return p.events
}

// Send validates, persists, and fans out one message. On any validation or
// store failure the error goes back to the sender alone and nothing is
// broadcast. The returned message carries the id and timestamp assigned by
// the store, identical for every recipient.
func (p *Pipeline) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	body := strings.TrimSpace(cmd.Body)
	if body == "" {
		p.monitor.IncrOperationsRejected()
		return domain.Message{}, apperrors.ErrEmptyBody
	}
	if _, ok := p.directory.Resolve(cmd.Channel); !ok {
		p.monitor.IncrOperationsRejected()
		return domain.Message{}, apperrors.ErrUnknownChannel
	}
	if !p.membership.IsMember(cmd.Channel, cmd.Connection) {
		p.monitor.IncrOperationsRejected()
		return domain.Message{}, apperrors.ErrNotMember
	}

	lang := detectLang(body)
	if p.moderator != nil {
		censored, found := p.moderator.Censor(body)
		if len(found) > 0 {
			p.log.Warn("message censored",
				"channel", cmd.Channel, "sender", cmd.Sender.ID, "matches", len(found))
		}
		body = censored
	}

	msg, err := p.repository.Append(cmd.Channel, cmd.Sender, body, lang)
	if err != nil {
		return domain.Message{}, err
	}
	p.monitor.IncrMessagesPersisted()

	p.fanout(msg)
	p.emit(ctx, event.MessagePosted{Message: msg})
	return msg, nil
}

// fanout enumerates the channel members at the instant after persistence and
// delivers to each exactly once. Sinks are resolved through presence at
// delivery time, so a connection that disconnected between persist and
// fan-out is skipped. No lock is held across delivery and each delivery is
// fire-and-forget.
func (p *Pipeline) fanout(msg domain.Message) {
	members := p.membership.MembersOf(msg.Channel)
	for _, conn := range members {
		sink, ok := p.presence.SinkFor(conn)
		if !ok {
			continue
		}
		sink.DeliverMessage(msg)
		p.monitor.IncrDeliveriesSent()
	}
	p.log.Debug("message fanned out",
		"channel", msg.Channel, "message", msg.ID, "recipients", len(members))
}

// emit is best-effort: the event bus feeds observability and search, never
// the delivery path, so a full buffer drops the event instead of blocking.
func (p *Pipeline) emit(_ context.Context, evt event.DomainEvent) {
	select {
	case p.events <- evt:
	default:
		p.log.Debug("event bus full, side-effect event lost", "channel", evt.ChannelID())
	}
}

func detectLang(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
