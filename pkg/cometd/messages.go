package cometd

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Meta channels used during session establishment.
const (
	// ChannelHandshake is the handshake negotiation channel.
	ChannelHandshake = "/meta/handshake"

	// ChannelConnect is the connection establishment channel.
	ChannelConnect = "/meta/connect"

	// ChannelSubscribe is the hub's player subscription channel.
	ChannelSubscribe = "/slim/subscribe"
)

// ProtocolVersion is the CometD protocol version declared at handshake.
const ProtocolVersion = "1.0"

// Connection types supported by this client. The hub picks "streaming"
// for the persistent socket.
const (
	ConnectionTypeLongPolling = "long-polling"
	ConnectionTypeStreaming   = "streaming"
)

// StatusChannel returns the per-client status subscription channel derived
// from the hub-issued client id.
func StatusChannel(clientID string) string {
	return "/slim/" + clientID + "/status"
}

// Message is a single CometD message object as exchanged with the hub.
// Requests and responses share this shape; unused fields stay empty.
type Message struct {
	Channel                  string          `json:"channel"`
	ClientID                 string          `json:"clientId,omitempty"`
	ID                       int             `json:"id,omitempty"`
	Successful               *bool           `json:"successful,omitempty"`
	Version                  string          `json:"version,omitempty"`
	ConnectionType           string          `json:"connectionType,omitempty"`
	SupportedConnectionTypes []string        `json:"supportedConnectionTypes,omitempty"`
	Data                     json.RawMessage `json:"data,omitempty"`
}

// OK reports whether the message is an acknowledgement with the success
// flag set. Messages without the flag (status pushes) report false.
func (m *Message) OK() bool {
	return m.Successful != nil && *m.Successful
}

// SubscribeData is the data payload of a /slim/subscribe request.
type SubscribeData struct {
	// Response is the channel the hub should push status updates to.
	Response string `json:"response"`

	// Request is the inner slim request: [playerID, [command tokens...]].
	Request []any `json:"request"`

	// Priority of the subscription.
	Priority int `json:"priority"`
}

// NewHandshake builds the handshake request declaring the connection
// types this client supports.
func NewHandshake() Message {
	return Message{
		Channel:                  ChannelHandshake,
		Version:                  ProtocolVersion,
		SupportedConnectionTypes: []string{ConnectionTypeLongPolling, ConnectionTypeStreaming},
	}
}

// NewConnect builds the connect request for the given hub-issued client id.
func NewConnect(clientID string) Message {
	return Message{
		Channel:        ChannelConnect,
		ClientID:       clientID,
		ConnectionType: ConnectionTypeStreaming,
	}
}

// NewSubscribe builds a /slim/subscribe request for one player. The
// command string is whitespace-split into tokens the same way the RPC
// endpoint expects them; id correlates the eventual acknowledgement and
// status pushes back to the player.
func NewSubscribe(clientID string, id int, responseChannel, playerID, command string, priority int) (Message, error) {
	data, err := json.Marshal(SubscribeData{
		Response: responseChannel,
		Request:  []any{playerID, strings.Fields(command)},
		Priority: priority,
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode subscribe data: %w", err)
	}

	return Message{
		Channel:  ChannelSubscribe,
		ClientID: clientID,
		ID:       id,
		Data:     data,
	}, nil
}

// EncodeMessages encodes messages as the JSON array the hub expects.
func EncodeMessages(msgs []Message) ([]byte, error) {
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode messages: %w", err)
	}
	return data, nil
}

// DecodeMessages decodes one inbound JSON array of message objects.
func DecodeMessages(data []byte) ([]Message, error) {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, &ProtocolError{Payload: string(data), Err: err}
	}
	return msgs, nil
}
