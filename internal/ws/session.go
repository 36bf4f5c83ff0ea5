package ws

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// CommandRunner executes a command line on behalf of a client.
type CommandRunner interface {
	Run(ctx context.Context, line string) (string, error)
}

type sessionConfig struct {
	pingInterval time.Duration
	pongWait     time.Duration
	writeTimeout time.Duration
	readLimit    int64
	verbose      bool
}

type frame struct {
	typ  int
	data []byte
}

// session owns one connection. Its control loop is the only writer of data
// frames and the only reader of client.send.
type session struct {
	conn   *websocket.Conn
	client *client
	hub    *Hub
	runner CommandRunner
	cfg    sessionConfig
}

func newSession(conn *websocket.Conn, c *client, hub *Hub, runner CommandRunner, cfg sessionConfig) *session {
	return &session{conn: conn, client: c, hub: hub, runner: runner, cfg: cfg}
}

// run serves the connection until the peer closes it, an I/O or decode error
// occurs, the hub shuts the client down, or ctx ends. The registry entry is
// always removed before the connection is closed.
func (s *session) run(ctx context.Context) {
	defer s.conn.Close()
	defer s.hub.Unregister(s.client.id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan frame)
	go s.readLoop(ctx, frames)

	var ping <-chan time.Time
	if s.cfg.pingInterval > 0 {
		ticker := time.NewTicker(s.cfg.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := s.handleFrame(ctx, f); err != nil {
				log.Printf("ws client %d: %v", s.client.id, err)
				return
			}

		case data := <-s.client.send:
			if err := s.write(websocket.BinaryMessage, data); err != nil {
				log.Printf("ws client %d: write error: %v", s.client.id, err)
				return
			}

		case <-ping:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.client.done:
			s.writeClose(websocket.CloseGoingAway, "server shutting down")
			return

		case <-ctx.Done():
			s.writeClose(websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}

// readLoop feeds inbound frames to the control loop. Pings are answered by
// gorilla's default handler; pongs only extend the read deadline.
func (s *session) readLoop(ctx context.Context, frames chan<- frame) {
	defer close(frames)

	s.conn.SetReadLimit(s.cfg.readLimit)
	if s.cfg.pingInterval > 0 && s.cfg.pongWait > 0 {
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.pongWait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(s.cfg.pongWait))
		})
	}

	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				log.Printf("ws client %d: read error: %v", s.client.id, err)
			}
			return
		}

		select {
		case frames <- frame{typ: typ, data: data}:
		case <-ctx.Done():
			return
		}
	}
}

// handleFrame returns an error only when the connection must be dropped.
func (s *session) handleFrame(ctx context.Context, f frame) error {
	if f.typ != websocket.BinaryMessage {
		return nil
	}

	req, err := DecodeRequest(f.data)
	if err != nil {
		return err
	}

	switch req.Kind {
	case RequestCommand:
		go s.runCommand(ctx, req)
	case RequestBroadcast:
		s.relay(req)
	default:
		log.Printf("ws client %d: unrecognized request kind %q", s.client.id, req.Kind)
	}
	return nil
}

func (s *session) runCommand(ctx context.Context, req ClientRequest) {
	if s.cfg.verbose {
		log.Printf("ws client %d: cmd %q", s.client.id, req.Payload)
	}

	reply := CommandReply{Type: MsgCmdResult, RequestID: req.RequestID}
	out, err := s.runner.Run(ctx, req.Payload)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("ws client %d: cmd %q: %v", s.client.id, req.Payload, err)
		reply.Type = MsgCmdError
		reply.Body = err.Error()
	} else {
		reply.Body = out
	}

	data, err := Encode(reply)
	if err != nil {
		log.Printf("ws client %d: encode reply: %v", s.client.id, err)
		return
	}

	// The reply goes through the session's own queue so the control loop
	// stays the only writer. It waits for room rather than dropping.
	select {
	case s.client.send <- data:
	case <-s.client.done:
	case <-ctx.Done():
	}
}

func (s *session) relay(req ClientRequest) {
	data, err := Encode(RelayMessage{
		Type:      MsgBroadcast,
		Body:      req.Payload,
		SenderID:  s.client.id,
		RequestID: req.RequestID,
	})
	if err != nil {
		log.Printf("ws client %d: encode relay: %v", s.client.id, err)
		return
	}

	n := s.hub.Relay(s.client.id, data)
	if s.cfg.verbose {
		log.Printf("ws client %d: relayed %s to %d clients", s.client.id, req.RequestID, n)
	}
}

func (s *session) write(typ int, data []byte) error {
	if s.cfg.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout))
	}
	return s.conn.WriteMessage(typ, data)
}

func (s *session) writeClose(code int, text string) {
	deadline := time.Now().Add(time.Second)
	if s.cfg.writeTimeout > 0 {
		deadline = time.Now().Add(s.cfg.writeTimeout)
	}
	s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
