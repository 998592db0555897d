// Package client is a small programmatic client for the relay's socket
// protocol, shared by the interactive CLI and the end-to-end suite.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-relay/infrastructure/ws"
)

const writeWait = 10 * time.Second

// Client holds one authenticated connection. Incoming server events are
// decoded by a background reader and surfaced on Events(); the channel closes
// when the connection dies.
type Client struct {
	conn      *websocket.Conn
	events    chan ws.ServerEvent
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial connects, performs the authenticated handshake, and starts the reader.
// The server answers a successful handshake with a presence snapshot, so the
// first event on Events() tells the caller who is online.
func Dial(ctx context.Context, url, token string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan ws.ServerEvent, 64),
		closed: make(chan struct{}),
	}
	if err := c.write(ws.ClientEvent{Type: ws.EventHandshake, Token: token}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}

	go c.readLoop()
	return c, nil
}

// Events streams every server event in arrival order.
func (c *Client) Events() <-chan ws.ServerEvent {
	return c.events
}

func (c *Client) Join(channel string) error {
	return c.write(ws.ClientEvent{Type: ws.EventJoinChannel, Channel: channel})
}

func (c *Client) Leave(channel string) error {
	return c.write(ws.ClientEvent{Type: ws.EventLeaveChannel, Channel: channel})
}

func (c *Client) Send(channel, body string) error {
	return c.write(ws.ClientEvent{Type: ws.EventSendMessage, Channel: channel, Body: body})
}

// History asks for a page before the given cursor; nil means newest.
func (c *Client) History(channel string, before *string, limit int) error {
	return c.write(ws.ClientEvent{Type: ws.EventRequestHistory, Channel: channel, Before: before, Limit: limit})
}

func (c *Client) Search(channel, query string, limit int) error {
	return c.write(ws.ClientEvent{Type: ws.EventSearchMessages, Channel: channel, Query: query, Limit: limit})
}

// Await blocks until an event of the wanted type arrives, discarding others.
func (c *Client) Await(ctx context.Context, eventType string) (ws.ServerEvent, error) {
	for {
		select {
		case evt, ok := <-c.events:
			if !ok {
				return ws.ServerEvent{}, fmt.Errorf("connection closed while waiting for %s", eventType)
			}
			if evt.Type == eventType {
				return evt, nil
			}
		case <-ctx.Done():
			return ws.ServerEvent{}, ctx.Err()
		}
	}
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) write(evt ws.ClientEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(evt)
}

func (c *Client) readLoop() {
	defer close(c.events)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var evt ws.ServerEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			continue
		}
		select {
		case c.events <- evt:
		case <-c.closed:
			return
		}
	}
}
