// Package hub fans websocket messages out to connected clients through a
// single goroutine that owns the client set.
package hub

import "github.com/gofiber/websocket/v2"

// Kind is the websocket frame type a message is sent as.
type Kind uint8

const (
	Text   Kind = iota // JSON events
	Binary             // JPEG preview frames
)

// Message is one broadcast unit. Data is shared between clients and must
// not be modified after broadcasting.
type Message struct {
	Kind Kind
	Data []byte
}

func (m Message) opcode() int {
	if m.Kind == Binary {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}
