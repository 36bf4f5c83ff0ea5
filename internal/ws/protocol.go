package ws

import (
	"errors"
	"fmt"

	"github.com/livedev/devserver/internal/watcher"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrDecode wraps every failure to decode an inbound frame.
var ErrDecode = errors.New("decode client request")

type MessageType string

const (
	MsgReload       MessageType = "hmr::reload"
	MsgCSSUpdate    MessageType = "hmr::css_update"
	MsgJSUpdate     MessageType = "hmr::js_update"
	MsgNotifyUpdate MessageType = "notify::update"
	MsgCmdResult    MessageType = "cmd_result"
	MsgCmdError     MessageType = "cmd_error"
	MsgBroadcast    MessageType = "broadcast"
)

const (
	RequestCommand   = "cmd"
	RequestBroadcast = "broadcast"
)

// ClientRequest is the only message a client sends.
type ClientRequest struct {
	Kind      string `msgpack:"kind"`
	Payload   string `msgpack:"payload"`
	RequestID string `msgpack:"request_id"`
}

// PushMessage notifies clients of a change under the watched root.
type PushMessage struct {
	Type MessageType `msgpack:"type"`
	Body string      `msgpack:"body"`
}

// CommandReply answers a "cmd" request, on success or failure.
type CommandReply struct {
	Type      MessageType `msgpack:"type"`
	Body      string      `msgpack:"body"`
	RequestID string      `msgpack:"request_id"`
}

// RelayMessage carries a "broadcast" request to the other clients.
type RelayMessage struct {
	Type      MessageType `msgpack:"type"`
	Body      string      `msgpack:"body"`
	SenderID  ClientID    `msgpack:"sender_id"`
	RequestID string      `msgpack:"request_id"`
}

// ServerMessage is the union of everything the server sends, for clients that
// decode first and switch on Type afterwards.
type ServerMessage struct {
	Type      MessageType `msgpack:"type"`
	Body      string      `msgpack:"body"`
	SenderID  ClientID    `msgpack:"sender_id,omitempty"`
	RequestID string      `msgpack:"request_id,omitempty"`
}

func pushType(kind watcher.UpdateKind) MessageType {
	switch kind {
	case watcher.StyleUpdate:
		return MsgCSSUpdate
	case watcher.ScriptUpdate:
		return MsgJSUpdate
	case watcher.FullReload:
		return MsgReload
	default:
		return MsgNotifyUpdate
	}
}

// NewPushMessage converts a change into its wire form. The body is the
// root-relative path with a leading slash, as the browser requests it.
func NewPushMessage(ev watcher.ChangeEvent) PushMessage {
	return PushMessage{Type: pushType(ev.Kind), Body: "/" + ev.Path}
}

func Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func DecodeRequest(data []byte) (ClientRequest, error) {
	var req ClientRequest
	if err := msgpack.Unmarshal(data, &req); err != nil {
		return ClientRequest{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return req, nil
}

func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, err
	}
	return msg, nil
}
