package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"chat-relay/auth"
	"chat-relay/client"
	"chat-relay/infrastructure/ws"
)

// MessagingSuite exercises the full stack against a running relay: two users
// exchanging messages in one channel, presence updates, and history replay
// after a reconnect.
type MessagingSuite struct {
	suite.Suite
	Config Config
}

func TestMessagingSuite(t *testing.T) {
	suite.Run(t, new(MessagingSuite))
}

func (s *MessagingSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.RelayAddr == "" {
		s.T().Skip("RELAY_ADDR not set, skipping end-to-end suite")
	}
}

func (s *MessagingSuite) step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

func (s *MessagingSuite) connect(ctx context.Context, user string) *client.Client {
	token, err := auth.GenerateToken([]byte(s.Config.JWTSecret), user, user, time.Minute)
	s.Require().NoError(err)

	c, err := client.Dial(ctx, s.Config.RelayAddr, token)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = c.Close() })

	_, err = c.Await(ctx, ws.EventPresenceSnapshot)
	s.Require().NoError(err, "handshake for %s", user)
	return c
}

func (s *MessagingSuite) join(ctx context.Context, c *client.Client) ws.ServerEvent {
	s.Require().NoError(c.Join(s.Config.Channel))
	_, err := c.Await(ctx, ws.EventChannelJoined)
	s.Require().NoError(err)
	history, err := c.Await(ctx, ws.EventHistoryPage)
	s.Require().NoError(err)
	return history
}

func (s *MessagingSuite) TestTwoUsersExchangeAndReplay() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.step("alice and bob connect and join")
	alice := s.connect(ctx, "e2e-alice")
	bob := s.connect(ctx, "e2e-bob")
	s.join(ctx, alice)
	s.join(ctx, bob)

	s.step("alice talks, both receive the same message")
	body := fmt.Sprintf("hello at %d", time.Now().UnixNano())
	s.Require().NoError(alice.Send(s.Config.Channel, body))

	gotAlice, err := alice.Await(ctx, ws.EventMessageDelivered)
	s.Require().NoError(err)
	gotBob, err := bob.Await(ctx, ws.EventMessageDelivered)
	s.Require().NoError(err)
	s.Require().NotNil(gotAlice.Message)
	s.Require().NotNil(gotBob.Message)
	s.Equal(gotAlice.Message.ID, gotBob.Message.ID)
	s.Equal(body, gotBob.Message.Body)

	s.step("bob drops, alice keeps talking")
	s.Require().NoError(bob.Close())
	followUp := fmt.Sprintf("still here at %d", time.Now().UnixNano())
	s.Require().NoError(alice.Send(s.Config.Channel, followUp))
	_, err = alice.Await(ctx, ws.EventMessageDelivered)
	s.Require().NoError(err)

	s.step("bob reconnects and replays both messages in order")
	bob2 := s.connect(ctx, "e2e-bob")
	history := s.join(ctx, bob2)
	s.Require().GreaterOrEqual(len(history.Messages), 2)

	last := history.Messages[len(history.Messages)-1]
	prev := history.Messages[len(history.Messages)-2]
	s.Equal(body, prev.Body)
	s.Equal(followUp, last.Body)
}

func (s *MessagingSuite) TestEmptyBodyRejected() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.step("whitespace-only message is refused")
	alice := s.connect(ctx, "e2e-alice")
	s.join(ctx, alice)

	s.Require().NoError(alice.Send(s.Config.Channel, "   "))
	notice, err := alice.Await(ctx, ws.EventErrorNotice)
	s.Require().NoError(err)
	s.Equal("EMPTY_BODY", notice.Code)
}
