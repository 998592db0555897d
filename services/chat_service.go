//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/search"
)

// IChatService is the single entry point sessions use; it hides the wiring
// between presence, membership, the store, and the broadcast pipeline.
type IChatService interface {
	Connect(entry domain.PresenceEntry, sink contract.SessionSink)
	Disconnect(conn domain.ConnectionID)
	Channel(id domain.ChannelID) (domain.Channel, error)
	Join(ctx context.Context, conn domain.ConnectionID, channel domain.ChannelID) ([]domain.Message, int, error)
	Leave(conn domain.ConnectionID, channel domain.ChannelID)
	Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	History(ctx context.Context, cmd domain.HistoryCommand) ([]domain.Message, *string, error)
	Search(ctx context.Context, channel domain.ChannelID, terms string, limit int) ([]search.Hit, error)
}

type ChatService struct {
	log        *slog.Logger
	presence   contract.IPresence
	membership contract.IMembership
	directory  runtime.IChannelDirectory
	repository repositories.IMessageRepository
	pipeline   *runtime.Pipeline
	index      *search.Index
	monitor    *observability.Monitor
}

func NewChatService(
	log *slog.Logger,
	presence contract.IPresence,
	membership contract.IMembership,
	directory runtime.IChannelDirectory,
	repository repositories.IMessageRepository,
	pipeline *runtime.Pipeline,
	index *search.Index,
	monitor *observability.Monitor,
) *ChatService {
	return &ChatService{
		log:        log,
		presence:   presence,
		membership: membership,
		directory:  directory,
		repository: repository,
		pipeline:   pipeline,
		index:      index,
		monitor:    monitor,
	}
}

// Connect announces the new connection; every live session receives the
// updated presence snapshot, the new one included.
func (s *ChatService) Connect(entry domain.PresenceEntry, sink contract.SessionSink) {
	s.monitor.IncrConnectionsOpened()
	s.presence.Announce(entry, sink)
}

// Disconnect deregisters the connection from presence and from every channel
// it joined. After it returns no component will route anything to the
// connection again.
func (s *ChatService) Disconnect(conn domain.ConnectionID) {
	s.membership.LeaveAll(conn)
	s.presence.Withdraw(conn)
	s.monitor.IncrConnectionsClosed()
}

// Channel resolves a channel id through the directory.
func (s *ChatService) Channel(id domain.ChannelID) (domain.Channel, error) {
	ch, ok := s.directory.Resolve(id)
	if !ok {
		s.monitor.IncrOperationsRejected()
		return domain.Channel{}, apperrors.ErrUnknownChannel
	}
	return ch, nil
}

// Join registers membership and returns the most recent history page plus
// the updated member count. Joining twice is harmless.
func (s *ChatService) Join(ctx context.Context, conn domain.ConnectionID, channel domain.ChannelID) ([]domain.Message, int, error) {
	if _, ok := s.directory.Resolve(channel); !ok {
		s.monitor.IncrOperationsRejected()
		return nil, 0, apperrors.ErrUnknownChannel
	}

	count := s.membership.Join(channel, conn)
	page, _, err := s.repository.Page(channel, nil, 0)
	if err != nil {
		return nil, count, err
	}
	return page, count, nil
}

func (s *ChatService) Leave(conn domain.ConnectionID, channel domain.ChannelID) {
	s.membership.Leave(channel, conn)
}

func (s *ChatService) Send(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.pipeline.Send(ctx, cmd)
}

func (s *ChatService) History(ctx context.Context, cmd domain.HistoryCommand) ([]domain.Message, *string, error) {
	if _, ok := s.directory.Resolve(cmd.Channel); !ok {
		s.monitor.IncrOperationsRejected()
		return nil, nil, apperrors.ErrUnknownChannel
	}
	return s.repository.Page(cmd.Channel, cmd.Before, cmd.Limit)
}

func (s *ChatService) Search(ctx context.Context, channel domain.ChannelID, terms string, limit int) ([]search.Hit, error) {
	if limit <= 0 || limit > repositories.DefaultPageLimit {
		limit = 10
	}
	return s.index.Search(ctx, channel, terms, limit)
}
