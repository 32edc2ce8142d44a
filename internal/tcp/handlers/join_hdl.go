package handlers

import (
	"context"
	"encoding/json"
	"net"

	"gitlab.com/emaxgrid.net/internal/controller"
	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
	"gitlab.com/emaxgrid.net/internal/tcp/wire"
)

// Implementation of message handlers
// Each handler deals with one specific message type

var _ primary.MessageHandler = (*JoinHandler)(nil)

// JoinHandler handles pool join messages
type JoinHandler struct {
	Pool   controller.IPoolService
	Logger primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *JoinHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, rank *int) error {
	var joinData defs.JoinData
	if err := json.Unmarshal(payload, &joinData); err != nil {
		h.Logger.Error("Failed to parse join request", "error", err)
		wire.SendErrorMessage(conn, 1001, "Invalid join data")
		return err
	}

	assigned, err := h.Pool.HandleJoin(ctx, conn, joinData)
	if err != nil {
		h.Logger.Error("Join refused", "workerID", joinData.WorkerID, "error", err)
		wire.SendErrorMessage(conn, 1002, err.Error())
		return err
	}

	*rank = assigned
	return nil
}
