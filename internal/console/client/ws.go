package client

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/livedev/devserver/internal/ws"
)

const (
	reconnectBaseDelay = 1 * time.Second
	reconnectMaxDelay  = 30 * time.Second
	writeTimeout       = 10 * time.Second
	pongTimeout        = 60 * time.Second
	pingInterval       = 30 * time.Second
)

// ErrNotConnected is returned by sends while no connection is up.
var ErrNotConnected = errors.New("not connected")

// WSClient manages the WebSocket connection to the dev server.
type WSClient struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes (ping, requests)
	conn    *websocket.Conn
	pingCtx context.CancelFunc // cancels the active ping goroutine
}

// NewWSClient creates a client that connects to the given WebSocket URL.
func NewWSClient(url string) *WSClient {
	return &WSClient{url: url}
}

// --- Bubble Tea messages ---

// WSConnectedMsg is sent when the WebSocket connects.
type WSConnectedMsg struct{}

// WSDisconnectedMsg is sent when the connection drops.
type WSDisconnectedMsg struct{ Err error }

// WSServerMsg delivers one decoded server frame.
type WSServerMsg struct{ Msg ws.ServerMessage }

// Listen returns a Bubble Tea command that connects, retrying with
// exponential backoff until it succeeds or ctx ends.
func (c *WSClient) Listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		delay := reconnectBaseDelay
		for {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("ws dial error: %v (retry in %v)", err, delay)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
				delay = min(delay*2, reconnectMaxDelay)
				continue
			}

			c.mu.Lock()
			if c.pingCtx != nil {
				c.pingCtx()
			}
			pingCtx, pingCancel := context.WithCancel(ctx)
			c.conn = conn
			c.pingCtx = pingCancel
			c.mu.Unlock()

			go c.pingLoop(pingCtx, conn)

			return WSConnectedMsg{}
		}
	}
}

// ReadLoop returns a Bubble Tea command that reads until one server message
// decodes, then returns it. It should be started after WSConnectedMsg and
// re-issued after every WSServerMsg.
func (c *WSClient) ReadLoop(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return WSDisconnectedMsg{Err: ErrNotConnected}
		}

		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongTimeout))
			return nil
		})
		conn.SetReadDeadline(time.Now().Add(pongTimeout))

		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				c.drop(conn)
				return WSDisconnectedMsg{Err: err}
			}
			if typ != websocket.BinaryMessage {
				continue
			}

			msg, err := ws.DecodeServerMessage(data)
			if err != nil {
				log.Printf("ws decode error: %v", err)
				continue
			}
			return WSServerMsg{Msg: msg}
		}
	}
}

func (c *WSClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		if c.pingCtx != nil {
			c.pingCtx()
			c.pingCtx = nil
		}
	}
	c.mu.Unlock()
	conn.Close()
}

// pingLoop sends periodic pings on the given connection. It exits when the
// context is cancelled or the connection changes.
func (c *WSClient) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			cc := c.conn
			c.mu.Unlock()
			if cc != conn {
				return
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// SentMsg reports how a request queued with Send went out.
type SentMsg struct {
	RequestID string
	Kind      string
	Payload   string
	Err       error
}

// Send returns the request id up front and a command that writes the request.
// The id is known before any reply can arrive.
func (c *WSClient) Send(kind, payload string) (string, tea.Cmd) {
	id := uuid.NewString()
	return id, func() tea.Msg {
		err := c.write(ws.ClientRequest{Kind: kind, Payload: payload, RequestID: id})
		return SentMsg{RequestID: id, Kind: kind, Payload: payload, Err: err}
	}
}

// SendCommand asks the server to run line and returns the request id its
// reply will carry.
func (c *WSClient) SendCommand(line string) (string, error) {
	return c.sendNow(ws.RequestCommand, line)
}

// SendBroadcast relays text to every other connected client.
func (c *WSClient) SendBroadcast(text string) (string, error) {
	return c.sendNow(ws.RequestBroadcast, text)
}

func (c *WSClient) sendNow(kind, payload string) (string, error) {
	id := uuid.NewString()
	if err := c.write(ws.ClientRequest{Kind: kind, Payload: payload, RequestID: id}); err != nil {
		return "", err
	}
	return id, nil
}

func (c *WSClient) write(req ws.ClientRequest) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := ws.Encode(req)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// Close drops the current connection, if any.
func (c *WSClient) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.drop(conn)
	}
}
