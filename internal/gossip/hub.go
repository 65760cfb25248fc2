package gossip

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nanochain/internal/blockchain"
)

// NodeView is the slice of node state gossip handlers need. Kept
// narrow and local to this package so internal/gossip can depend on
// internal/blockchain without blockchain ever depending back on gossip
// (spec.md §9's resolution of the chain↔gossip cycle).
type NodeView interface {
	Latest() blockchain.Block
	Chain() []blockchain.Block
	AcceptBlock(blockchain.Block) error
	ReplaceChain([]blockchain.Block) (bool, error)
	AddToMempool(blockchain.Transaction) error
	MempoolSnapshot() []blockchain.Transaction
}

// handshakeDelay is how long a new session waits before broadcasting a
// transaction-pool query to every connected peer (spec.md §4.5).
const handshakeDelay = 500 * time.Millisecond

// Hub tracks every live peer session and implements
// blockchain.Broadcaster by fanning a new head out to all of them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	logger   *zap.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[*Session]struct{}),
		logger:   logger,
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) deregister(s *Session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
}

// PeerCount returns the number of live sessions.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Peers lists the remote address of every live session.
func (h *Hub) Peers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.sessions))
	for s := range h.sessions {
		out = append(out, s.remoteAddr)
	}
	return out
}

// snapshot returns the live session set at this instant, safe to
// range over after the lock is released.
func (h *Hub) snapshot() []*Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		out = append(out, s)
	}
	return out
}

// Broadcast sends a message to every live session concurrently,
// best-effort: a send failure closes that session but never aborts the
// others (spec.md §4.5).
func (h *Hub) Broadcast(t MessageType, payload any) {
	sessions := h.snapshot()
	if len(sessions) == 0 {
		return
	}
	g, _ := errgroup.WithContext(context.Background())
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			_ = s.Send(t, payload)
			return nil
		})
	}
	_ = g.Wait()
}

// BroadcastLatest implements blockchain.Broadcaster.
func (h *Hub) BroadcastLatest(b blockchain.Block) {
	h.Broadcast(ResponseBlockchain, []blockchain.Block{b})
}

// Accept starts a session over an already-upgraded connection: it
// registers the session, immediately queries the peer's latest block,
// schedules the delayed transaction-pool broadcast, and launches the
// session's read loop. Used by both the server-side accept handler and
// the client-side dialer.
func (h *Hub) Accept(conn *websocket.Conn, remoteAddr string, node NodeView) *Session {
	s := newSession(conn, remoteAddr, h, node, h.logger)
	h.register(s)
	h.logger.Info("peer connected", zap.String("peer", remoteAddr))

	if err := s.Send(QueryLatest, nil); err != nil {
		h.logger.Debug("initial query failed", zap.String("peer", remoteAddr), zap.Error(err))
	}
	go func() {
		select {
		case <-time.After(handshakeDelay):
			h.Broadcast(QueryTransactionPool, nil)
		case <-s.closed:
		}
	}()
	go s.readLoop()
	return s
}
