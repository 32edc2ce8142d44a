// package wire implements the framed message format shared by the
// controller and worker ends of the control channel.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"gitlab.com/emaxgrid.net/internal/tcp/defs"
)

// header layout: magic(2) type(1) reserved(1) payloadLen(4)
const headerSize = 8

// maxPayloadSize bounds the frame size accepted off the wire so a corrupt
// length field cannot force a huge allocation. The largest real payload is
// the specification aggregate, orders of magnitude below this.
const maxPayloadSize = 16 << 20

// ReadMessage reads one framed message from the connection
func ReadMessage(conn net.Conn) (byte, []byte, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return 0, nil, err
	}

	magic := binary.BigEndian.Uint16(header[0:2])
	msgType := header[2]
	payloadLen := binary.BigEndian.Uint32(header[4:8])

	if magic != defs.MagicNumber {
		return 0, nil, fmt.Errorf("invalid magic number: %x", magic)
	}
	if payloadLen > maxPayloadSize {
		return 0, nil, fmt.Errorf("payload length %d exceeds limit of %d", payloadLen, maxPayloadSize)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return 0, nil, err
	}

	return msgType, payload, nil
}

// SendMessage writes one framed message to the connection
func SendMessage(conn net.Conn, msgType byte, payload []byte) error {
	header := make([]byte, headerSize)
	binary.BigEndian.PutUint16(header[0:2], defs.MagicNumber)
	header[2] = msgType
	header[3] = 0 // Reserved
	binary.BigEndian.PutUint32(header[4:8], uint32(len(payload)))

	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("failed to write message header: %w", err)
	}

	if len(payload) > 0 {
		if _, err := conn.Write(payload); err != nil {
			return fmt.Errorf("failed to write message payload: %w", err)
		}
	}

	return nil
}

// SendJSON marshals the payload and sends it as one framed message
func SendJSON(conn net.Conn, msgType byte, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	return SendMessage(conn, msgType, body)
}

// SendErrorMessage sends a protocol error frame. Errors while sending are
// ignored, the connection is likely already going away.
func SendErrorMessage(conn net.Conn, code int, message string) {
	errorBytes, err := json.Marshal(defs.ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	_ = SendMessage(conn, defs.MsgError, errorBytes)
}
