package primary

import (
	"context"
	"net"
)

// MessageHandler defines an interface for handling different message types.
// rank carries the connection's pool rank once the join completed; -1 before.
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn net.Conn, payload []byte, rank *int) error
}
