package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, code, message string) error {
	return WriteTyped(conn, ErrorResponse{
		Event:   EventError,
		Code:    code,
		Message: message,
	})
}

// ReadRequest reads the next client message. An idle client is dropped
// after readWait.
func ReadRequest(conn *websocket.Conn) (*Request, error) {
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	var req Request
	if err := conn.ReadJSON(&req); err != nil {
		return nil, err
	}
	return &req, nil
}
