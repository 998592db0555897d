// Command chat is an interactive terminal client for the relay. It keeps one
// authenticated connection open, renders incoming events as they arrive, and
// turns slash commands into protocol events.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"

	"chat-relay/client"
	"chat-relay/infrastructure/ws"
	"chat-relay/projection"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("CHAT_URL", "ws://localhost:8080/ws"), "Server websocket URL")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "Auth token (see cmd/token)")
	channel := flag.String("channel", "general", "Channel to join on start")
	flag.Parse()

	if *token == "" {
		log.Fatal("a token is required; set CHAT_TOKEN or pass -token")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := client.Dial(ctx, *url, *token)
	if err != nil {
		log.Fatal("Connection failed: ", err)
	}
	defer c.Close()

	current := *channel
	if err := c.Join(current); err != nil {
		log.Fatal("Join failed: ", err)
	}

	go renderEvents(c)

	color.Cyan.Printf("Connected to %s, talking in #%s\n", *url, current)
	color.Gray.Println("Commands: /join <ch>  /leave  /who  /history  /find <terms>  /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			if err := c.Send(current, line); err != nil {
				color.Red.Println("send failed:", err)
			}
			continue
		}

		parts := strings.SplitN(line, " ", 2)
		arg := ""
		if len(parts) == 2 {
			arg = strings.TrimSpace(parts[1])
		}

		switch parts[0] {
		case "/quit":
			return
		case "/join":
			if arg == "" {
				color.Red.Println("usage: /join <channel>")
				continue
			}
			current = arg
			_ = c.Join(current)
		case "/leave":
			_ = c.Leave(current)
			color.Gray.Printf("left #%s\n", current)
		case "/who":
			// The server pushes a fresh snapshot on every connect and
			// disconnect; renderEvents keeps the latest one on screen.
			color.Gray.Println("presence is pushed automatically; watch for the table")
		case "/history":
			_ = c.History(current, nil, 0)
		case "/find":
			if arg == "" {
				color.Red.Println("usage: /find <terms>")
				continue
			}
			_ = c.Search(current, arg, 10)
		default:
			color.Red.Println("unknown command:", parts[0])
		}
	}
}

// renderEvents prints server events as they come. A message can arrive twice,
// once live and once inside a history page, so each channel keeps a local
// timeline and duplicates stay silent.
func renderEvents(c *client.Client) {
	timelines := make(map[string]*projection.Timeline)
	timeline := func(channel string) *projection.Timeline {
		t, ok := timelines[channel]
		if !ok {
			t = projection.NewTimeline(channel)
			timelines[channel] = t
		}
		return t
	}

	for evt := range c.Events() {
		switch evt.Type {
		case ws.EventMessageDelivered:
			if evt.Message == nil {
				continue
			}
			msg, err := ws.FromWireMessage(*evt.Message)
			if err != nil || !timeline(evt.Channel).Observe(msg) {
				continue
			}
			color.Green.Printf("[#%s] %s: ", evt.Channel, msg.SenderName)
			fmt.Println(msg.Body)
		case ws.EventChannelJoined:
			color.Cyan.Printf("joined #%s\n", evt.Channel)
		case ws.EventHistoryPage:
			t := timeline(evt.Channel)
			for _, wire := range evt.Messages {
				msg, err := ws.FromWireMessage(wire)
				if err != nil || !t.Observe(msg) {
					continue
				}
				color.Gray.Printf("[#%s] %s: %s\n", evt.Channel, msg.SenderName, msg.Body)
			}
			if evt.NextCursor != nil {
				color.Gray.Printf("(older messages available, cursor %s)\n", *evt.NextCursor)
			}
		case ws.EventPresenceSnapshot:
			renderPresence(evt)
		case ws.EventSearchResults:
			for _, hit := range evt.Hits {
				color.Yellow.Printf("%s: %s\n", hit.Sender, hit.Body)
			}
			if len(evt.Hits) == 0 {
				color.Gray.Println("no matches")
			}
		case ws.EventErrorNotice:
			color.Red.Printf("error [%s]: %s\n", evt.Code, evt.Error)
		}
	}
	color.Red.Println("connection closed")
}

func renderPresence(evt ws.ServerEvent) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"User", "Connection"})
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	for _, entry := range evt.Entries {
		table.Append([]string{entry.DisplayName, string(entry.ConnectionID)})
	}
	color.Cyan.Printf("online now (%d connections):\n", len(evt.Entries))
	table.Render()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
