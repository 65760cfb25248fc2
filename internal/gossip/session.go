package gossip

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nanochain/internal/blockchain"
)

// Session is one peer connection's lifecycle: register on connect, a
// single serialized writer, deregister on close. Modeled on the
// teacher's websocket session handling (internal/api/ws.go), restyled
// from a single hub-wide broadcast manager to one session per peer so
// each can run its own handshake and sync state machine.
type Session struct {
	conn       *websocket.Conn
	remoteAddr string
	hub        *Hub
	node       NodeView
	logger     *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func newSession(conn *websocket.Conn, remoteAddr string, hub *Hub, node NodeView, logger *zap.Logger) *Session {
	return &Session{
		conn:       conn,
		remoteAddr: remoteAddr,
		hub:        hub,
		node:       node,
		logger:     logger,
		closed:     make(chan struct{}),
	}
}

// RemoteAddr identifies the peer this session talks to.
func (s *Session) RemoteAddr() string {
	return s.remoteAddr
}

// Send marshals and writes a single message. On any write error the
// session closes itself, since the connection is assumed dead.
func (s *Session) Send(t MessageType, payload any) error {
	raw, err := encode(t, payload)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	err = s.conn.WriteMessage(websocket.TextMessage, raw)
	s.writeMu.Unlock()
	if err != nil {
		s.Close()
		return err
	}
	return nil
}

// Close deregisters the session and closes its connection. Safe to
// call more than once or concurrently.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.hub.deregister(s)
		err = s.conn.Close()
	})
	return err
}

// readLoop blocks reading and dispatching messages until the
// connection closes or a read fails. Run it in its own goroutine per
// session.
func (s *Session) readLoop() {
	defer s.Close()
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			s.logger.Debug("dropping malformed message", zap.String("peer", s.remoteAddr), zap.Error(err))
			continue
		}
		s.handle(msg)
	}
}

// handle dispatches one decoded message per spec.md §4.5.
func (s *Session) handle(msg Message) {
	switch msg.Type {
	case QueryLatest:
		if err := s.Send(ResponseBlockchain, []blockchain.Block{s.node.Latest()}); err != nil {
			s.logger.Debug("send latest failed", zap.String("peer", s.remoteAddr), zap.Error(err))
		}
	case QueryAll:
		if err := s.Send(ResponseBlockchain, s.node.Chain()); err != nil {
			s.logger.Debug("send chain failed", zap.String("peer", s.remoteAddr), zap.Error(err))
		}
	case QueryTransactionPool:
		if err := s.Send(ResponseTransactionPool, s.node.MempoolSnapshot()); err != nil {
			s.logger.Debug("send pool failed", zap.String("peer", s.remoteAddr), zap.Error(err))
		}
	case ResponseBlockchain:
		blocks, err := decodeBlocks(msg)
		if err != nil {
			s.logger.Debug("bad chain response", zap.String("peer", s.remoteAddr), zap.Error(err))
			return
		}
		handleChainResponse(s.node, s.hub, s.logger, blocks)
	case ResponseTransactionPool:
		txs, err := decodeTransactions(msg)
		if err != nil {
			s.logger.Debug("bad pool response", zap.String("peer", s.remoteAddr), zap.Error(err))
			return
		}
		handleTransactionResponse(s.node, s.hub, s.logger, txs)
	}
}
