package tcp

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"gitlab.com/emaxgrid.net/internal/controller"
	"gitlab.com/emaxgrid.net/internal/core/ports/primary"
	"gitlab.com/emaxgrid.net/internal/tcp/connectionmanager"
	"gitlab.com/emaxgrid.net/internal/tcp/defs"
	"gitlab.com/emaxgrid.net/internal/tcp/handlers"
	"gitlab.com/emaxgrid.net/internal/tcp/wire"
)

// Server accepts worker control connections for the pool
type Server struct {
	address       string
	pool          controller.IPoolService
	logger        primary.Logger
	listener      net.Listener
	connectionMgr *connectionmanager.ConnectionManager
	stopCh        chan struct{}
	handlers      map[byte]primary.MessageHandler
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithAddress sets the listen address
func WithAddress(address string) ServerOption {
	return func(s *Server) {
		s.address = address
	}
}

// NewServer creates the control-plane listener
func NewServer(
	pool controller.IPoolService,
	connectionMgr *connectionmanager.ConnectionManager,
	logger primary.Logger,
	options ...ServerOption,
) *Server {
	server := &Server{
		address:       ":9100", // Default address
		pool:          pool,
		logger:        logger,
		connectionMgr: connectionMgr,
		stopCh:        make(chan struct{}),
	}

	for _, option := range options {
		option(server)
	}

	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *Server) setupMessageHandlers() {
	s.handlers = map[byte]primary.MessageHandler{
		defs.MsgJoin:     &handlers.JoinHandler{Pool: s.pool, Logger: s.logger},
		defs.MsgTaskDone: &handlers.TaskDoneHandler{Pool: s.pool, Logger: s.logger},
	}
}

// Start starts the listener
func (s *Server) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start control listener: %w", err)
	}

	s.logger.Info("Control listener started", "address", s.address)

	go s.acceptConnections()

	return nil
}

// Stop stops the listener and closes all member connections
func (s *Server) Stop(ctx context.Context) error {
	close(s.stopCh)

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Failed to close listener", "error", err)
		}
	}

	s.connectionMgr.CloseAll()

	<-ctx.Done()

	return nil
}

// acceptConnections accepts incoming worker connections
func (s *Server) acceptConnections() {
	for {
		select {
		case <-s.stopCh:
			return
		default:
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.stopCh:
					return
				default:
					s.logger.Error("Failed to accept connection", "error", err)
					time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
					continue
				}
			}

			go s.handleConnection(conn)
		}
	}
}

// handleConnection reads frames from one worker connection
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	// a connection that never completes the join gets dropped
	conn.SetDeadline(time.Now().Add(defs.JoinTimeout))

	rank := -1
	for {
		select {
		case <-s.stopCh:
			return
		default:
			msgType, payload, err := wire.ReadMessage(conn)
			if err != nil {
				if err != io.EOF {
					s.logger.Error("Failed to read message", "error", err)
				}
				if rank >= 0 {
					s.pool.HandleLeave(context.Background(), rank)
					s.logger.Info("Worker disconnected", "rank", rank)
				}
				return
			}

			handler, exists := s.handlers[msgType]
			if !exists {
				s.logger.Error("Unknown message type", "type", msgType)
				wire.SendErrorMessage(conn, 1016, fmt.Sprintf("Unknown message type: %d", msgType))
				continue
			}

			ctx := context.Background()

			if err := handler.HandleMessage(ctx, conn, payload, &rank); err != nil {
				s.logger.Error("Error handling message", "type", msgType, "error", err)
				if rank >= 0 {
					s.pool.HandleLeave(ctx, rank)
					s.logger.Info("Worker disconnected due to error", "rank", rank)
				}
				return
			}

			// After a successful join the member stays connected for the
			// whole run
			if msgType == defs.MsgJoin {
				conn.SetDeadline(time.Time{}) // No timeout
			}
		}
	}
}
