package handlers

import (
	"context"
	"encoding/json"
	"net"

	"gitlab.com/emaxgrid.net/internal/controller"
	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*TaskDoneHandler)(nil)

// TaskDoneHandler handles round acknowledgements from workers
type TaskDoneHandler struct {
	Pool   controller.IPoolService
	Logger primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *TaskDoneHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, rank *int) error {
	var doneData defs.TaskDoneData
	if err := json.Unmarshal(payload, &doneData); err != nil {
		h.Logger.Error("Failed to parse round acknowledgement", "error", err)
		return err
	}

	h.Logger.Debug("Round acknowledgement received", "round", doneData.Round, "rank", doneData.Rank)
	return h.Pool.HandleTaskDone(ctx, doneData)
}
