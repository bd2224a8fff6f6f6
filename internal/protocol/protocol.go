// Package protocol is the length-prefixed wire framing shared by
// cmd/poolsrv and cmd/poolcli. Grounded on the teacher's protocol.go
// (SendMessage/RecvMessage: a 4-byte little-endian length prefix
// followed by the payload), kept nearly verbatim since it is pure
// transport, with the JSON envelope repointed at buffer-pool admin
// commands instead of SQL query results.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net"
)

// SendMessage writes a length-prefixed frame to conn.
func SendMessage(conn net.Conn, message []byte) error {
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(message)))
	if _, err := conn.Write(lenbuf[:]); err != nil {
		return err
	}

	sent := 0
	for sent < len(message) {
		n, err := conn.Write(message[sent:])
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.New("connection closed")
		}
		sent += n
	}
	return nil
}

// RecvMessage reads one length-prefixed frame from conn.
func RecvMessage(conn net.Conn) ([]byte, error) {
	var lenbuf [4]byte
	if _, err := io.ReadFull(conn, lenbuf[:]); err != nil {
		return nil, err
	}

	length := binary.LittleEndian.Uint32(lenbuf[:])
	if length == 0 {
		return nil, nil
	}

	message := make([]byte, length)
	_, err := io.ReadFull(conn, message)
	return message, err
}

// Command is one admin request: an operation name plus its arguments.
// The argument set is intentionally untyped JSON since each op (fetch,
// new, write, unpin, flush, flushall, delete) takes a different shape.
type Command struct {
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response carries either a result payload or an error message, never
// both.
type Response struct {
	Result json.RawMessage `json:",omitempty"`
	Error  string          `json:",omitempty"`
}

// SendCommand marshals cmd as JSON and sends it as a frame.
func SendCommand(conn net.Conn, cmd *Command) error {
	message, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return SendMessage(conn, message)
}

// ReceiveCommand reads and unmarshals one Command frame. A nil, nil
// return means the peer sent an empty (zero-length) frame; a
// connection closed between commands is reported as io.EOF.
func ReceiveCommand(conn net.Conn) (*Command, error) {
	message, err := RecvMessage(conn)
	if err != nil {
		return nil, err
	}
	if len(message) == 0 {
		return nil, nil
	}
	var cmd Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// SendResponse marshals resp as JSON and sends it as a frame.
func SendResponse(conn net.Conn, resp *Response) error {
	message, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return SendMessage(conn, message)
}

// ReceiveResponse reads and unmarshals one Response frame.
func ReceiveResponse(conn net.Conn) (*Response, error) {
	message, err := RecvMessage(conn)
	if err != nil {
		return nil, err
	}
	if len(message) == 0 {
		return nil, nil
	}
	var resp Response
	if err := json.Unmarshal(message, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
