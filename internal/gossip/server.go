package gossip

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// upgrader accepts any origin: peer connections are not
// browser-originated, so the teacher's same-origin web UI concerns
// don't apply here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeHTTP upgrades an inbound connection to a peer session. Mount it
// at the peer listen path (spec.md §6 default "/ws").
func ServeHTTP(hub *Hub, node NodeView, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		hub.Accept(conn, r.RemoteAddr, node)
	}
}
