package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/domain"
	apperrors "chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/services"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Session owns one client's socket for the connection's lifetime. It is the
// sole owner of the transport resource: presence and membership only hold
// its connection id. All outbound traffic funnels through a buffered send
// queue drained by a single writer goroutine, so deliveries from the
// pipeline, presence pushes, and replies never interleave mid-frame.
type Session struct {
	conn      *websocket.Conn
	log       *slog.Logger
	service   services.IChatService
	monitor   *observability.Monitor
	connID    domain.ConnectionID
	principal domain.Principal
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(
	conn *websocket.Conn,
	log *slog.Logger,
	service services.IChatService,
	monitor *observability.Monitor,
	connID domain.ConnectionID,
	principal domain.Principal,
	sendBuffer int,
) *Session {
	return &Session{
		conn:      conn,
		log:       log.With("connection", connID, "principal", principal.ID),
		service:   service,
		monitor:   monitor,
		connID:    connID,
		principal: principal,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// ConnectionID exposes the id assigned at handshake.
func (s *Session) ConnectionID() domain.ConnectionID {
	return s.connID
}

// DeliverMessage implements contract.SessionSink. Fire-and-forget: a
// connection that cannot drain its queue loses the frame rather than
// stalling the broadcaster.
func (s *Session) DeliverMessage(msg domain.Message) {
	wire := toWireMessage(msg)
	s.enqueueEvent(ServerEvent{
		Type:    EventMessageDelivered,
		Channel: wire.Channel,
		Message: &wire,
	})
}

// DeliverPresence implements contract.SessionSink.
func (s *Session) DeliverPresence(entries []domain.PresenceEntry) {
	s.enqueueEvent(ServerEvent{Type: EventPresenceSnapshot, Entries: entries})
}

func (s *Session) enqueueEvent(evt ServerEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("failed to encode server event", "type", evt.Type, "error", err)
		return
	}
	select {
	case s.send <- payload:
	case <-s.done:
	default:
		s.monitor.IncrDeliveriesDropped()
		s.log.Warn("send queue full, dropping frame", "type", evt.Type)
	}
}

func (s *Session) enqueueError(err error) {
	s.enqueueEvent(ServerEvent{
		Type:  EventErrorNotice,
		Code:  apperrors.Code(err),
		Error: err.Error(),
	})
}

// run starts both pumps and blocks until the connection dies. Deregistration
// from presence and every channel happens in one step before return.
func (s *Session) run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump()
	}()

	s.readPump(ctx)

	s.service.Disconnect(s.connID)
	s.closeOnce.Do(func() { close(s.done) })
	// The writer flushes queued frames (a final errorNotice in particular)
	// and closes the socket on its way out.
	wg.Wait()
	_ = s.conn.Close()
	s.log.Info("session closed")
}

func (s *Session) readPump(ctx context.Context) {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("unexpected socket error", "error", err)
			}
			return
		}

		var evt ClientEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			s.enqueueEvent(ServerEvent{Type: EventErrorNotice, Code: CodeBadEvent, Error: "malformed frame"})
			s.log.Debug("dropping malformed frame", "error", err)
			continue
		}
		if err := evt.Validate(); err != nil {
			s.enqueueEvent(ServerEvent{Type: EventErrorNotice, Code: CodeBadEvent, Error: err.Error()})
			continue
		}
		if err := s.dispatch(ctx, evt); err != nil {
			s.enqueueError(err)
			if apperrors.Fatal(err) {
				s.log.Warn("fatal protocol error, closing session", "type", evt.Type, "error", err)
				return
			}
		}
	}
}

// dispatch routes one validated client event. A returned non-fatal error is
// reported to this connection only; a fatal one ends the session. Nothing
// here can take down another session or the shared registries.
func (s *Session) dispatch(ctx context.Context, evt ClientEvent) error {
	switch evt.Type {
	case EventHandshake:
		// Authentication happens exactly once, before the session exists.
		// A repeated handshake is a protocol violation.
		return apperrors.ErrUnauthenticated
	case EventJoinChannel:
		return s.handleJoin(ctx, domain.ChannelID(evt.Channel))
	case EventLeaveChannel:
		s.service.Leave(s.connID, domain.ChannelID(evt.Channel))
		return nil
	case EventSendMessage:
		return s.handleSend(ctx, evt)
	case EventRequestHistory:
		return s.handleHistory(ctx, evt)
	case EventSearchMessages:
		return s.handleSearch(ctx, evt)
	}
	return nil
}

// handleJoin acknowledges the join before membership becomes visible to the
// fan-out, so a client can never observe messageDelivered for a channel
// ahead of its channelJoined ack. The history page follows as its own frame.
func (s *Session) handleJoin(ctx context.Context, channel domain.ChannelID) error {
	if _, err := s.service.Channel(channel); err != nil {
		return err
	}

	s.enqueueEvent(ServerEvent{Type: EventChannelJoined, Channel: string(channel)})

	page, members, err := s.service.Join(ctx, s.connID, channel)
	if err != nil {
		return err
	}
	s.enqueueEvent(ServerEvent{
		Type:     EventHistoryPage,
		Channel:  string(channel),
		Messages: toWireMessages(page),
		Members:  members,
	})
	return nil
}

func (s *Session) handleSend(ctx context.Context, evt ClientEvent) error {
	_, err := s.service.Send(ctx, domain.SendMessageCommand{
		Channel:    domain.ChannelID(evt.Channel),
		Connection: s.connID,
		Sender:     s.principal,
		Body:       evt.Body,
	})
	return err
}

func (s *Session) handleHistory(ctx context.Context, evt ClientEvent) error {
	page, next, err := s.service.History(ctx, domain.HistoryCommand{
		Channel: domain.ChannelID(evt.Channel),
		Before:  evt.Before,
		Limit:   evt.Limit,
	})
	if err != nil {
		return err
	}
	s.enqueueEvent(ServerEvent{
		Type:       EventHistoryPage,
		Channel:    evt.Channel,
		Messages:   toWireMessages(page),
		NextCursor: next,
	})
	return nil
}

func (s *Session) handleSearch(ctx context.Context, evt ClientEvent) error {
	hits, err := s.service.Search(ctx, domain.ChannelID(evt.Channel), evt.Query, evt.Limit)
	if err != nil {
		return err
	}
	s.enqueueEvent(ServerEvent{
		Type:    EventSearchResults,
		Channel: evt.Channel,
		Hits:    toWireHits(hits),
	})
	return nil
}

// flush drains frames already queued at shutdown so the client sees the
// reason for a server-initiated close. Write failures just end the drain.
func (s *Session) flush() {
	for {
		select {
		case payload := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-s.done:
			s.flush()
			return
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
