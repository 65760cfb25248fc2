package gossip

import (
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Dial connects outbound to a peer's hostport (e.g. "10.0.0.4:6001")
// and registers the resulting session with hub, per spec.md §6's
// addPeer operation.
func Dial(hostport string, hub *Hub, node NodeView, logger *zap.Logger) (*Session, error) {
	u := url.URL{Scheme: "ws", Host: hostport, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", hostport, err)
	}
	return hub.Accept(conn, hostport, node), nil
}
