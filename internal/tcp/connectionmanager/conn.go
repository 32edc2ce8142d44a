package connectionmanager

import (
	"fmt"
	"net"
	"sync"

	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/tcp/wire"
)

// ConnectionManager tracks the rank-keyed control connections of the pool
type ConnectionManager struct {
	Connections map[int]net.Conn
	ConnMutex   sync.RWMutex
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		Connections: make(map[int]net.Conn),
		Logger:      logger,
	}
}

// RegisterMember records the connection of a pool member
func (cm *ConnectionManager) RegisterMember(rank int, conn net.Conn) {
	cm.ConnMutex.Lock()
	cm.Connections[rank] = conn
	cm.ConnMutex.Unlock()
}

// RemoveMember drops a member's connection record
func (cm *ConnectionManager) RemoveMember(rank int) {
	cm.ConnMutex.Lock()
	delete(cm.Connections, rank)
	cm.ConnMutex.Unlock()
}

// GetConnection returns the connection of a member
func (cm *ConnectionManager) GetConnection(rank int) (net.Conn, bool) {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	conn, exists := cm.Connections[rank]
	return conn, exists
}

// Ranks returns the ranks with a live connection
func (cm *ConnectionManager) Ranks() []int {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	ranks := make([]int, 0, len(cm.Connections))
	for rank := range cm.Connections {
		ranks = append(ranks, rank)
	}
	return ranks
}

// Broadcast sends the same frame to every connected member. The pool runs
// in lockstep, so a single failed send fails the whole broadcast.
func (cm *ConnectionManager) Broadcast(msgType byte, payload []byte) error {
	cm.ConnMutex.RLock()
	defer cm.ConnMutex.RUnlock()

	for rank, conn := range cm.Connections {
		if err := wire.SendMessage(conn, msgType, payload); err != nil {
			return fmt.Errorf("failed to send to rank %d: %w", rank, err)
		}
	}
	return nil
}

// CloseAll closes every tracked connection
func (cm *ConnectionManager) CloseAll() {
	cm.ConnMutex.Lock()
	defer cm.ConnMutex.Unlock()

	for rank, conn := range cm.Connections {
		if err := conn.Close(); err != nil {
			cm.Logger.Error("Failed to close connection", "rank", rank, "error", err)
		}
	}
}
