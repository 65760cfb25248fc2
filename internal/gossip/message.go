// Package gossip implements the peer wire protocol of spec.md §4.5: a
// small set of JSON messages exchanged over per-peer WebSocket sessions,
// driving blockchain and mempool synchronization.
package gossip

import (
	"encoding/json"
	"fmt"

	"nanochain/internal/blockchain"
	"nanochain/internal/chainerr"
)

// MessageType is the wire message kind (spec.md §6).
type MessageType int

const (
	QueryLatest MessageType = iota
	QueryAll
	ResponseBlockchain
	QueryTransactionPool
	ResponseTransactionPool
)

func (t MessageType) String() string {
	switch t {
	case QueryLatest:
		return "QUERY_LATEST"
	case QueryAll:
		return "QUERY_ALL"
	case ResponseBlockchain:
		return "RESPONSE_BLOCKCHAIN"
	case QueryTransactionPool:
		return "QUERY_TRANSACTION_POOL"
	case ResponseTransactionPool:
		return "RESPONSE_TRANSACTION_POOL"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// Message is the wire envelope: a type tag plus a JSON-encoded payload
// string (or nil for query messages, which carry no payload).
type Message struct {
	Type MessageType `json:"type"`
	Data *string     `json:"data"`
}

// encode builds the wire bytes for a message carrying payload (nil for
// query-only messages).
func encode(t MessageType, payload any) ([]byte, error) {
	msg := Message{Type: t}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		s := string(b)
		msg.Data = &s
	}
	return json.Marshal(msg)
}

// decodeMessage parses the outer envelope and rejects unknown types.
func decodeMessage(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", chainerr.ErrParseError, err)
	}
	switch m.Type {
	case QueryLatest, QueryAll, ResponseBlockchain, QueryTransactionPool, ResponseTransactionPool:
	default:
		return Message{}, fmt.Errorf("%w: unknown message type %d", chainerr.ErrParseError, m.Type)
	}
	return m, nil
}

// decodeBlocks parses a RESPONSE_BLOCKCHAIN payload.
func decodeBlocks(m Message) ([]blockchain.Block, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("%w: missing payload", chainerr.ErrParseError)
	}
	var blocks []blockchain.Block
	if err := json.Unmarshal([]byte(*m.Data), &blocks); err != nil {
		return nil, fmt.Errorf("%w: %v", chainerr.ErrParseError, err)
	}
	return blocks, nil
}

// decodeTransactions parses a RESPONSE_TRANSACTION_POOL payload.
func decodeTransactions(m Message) ([]blockchain.Transaction, error) {
	if m.Data == nil {
		return nil, fmt.Errorf("%w: missing payload", chainerr.ErrParseError)
	}
	var txs []blockchain.Transaction
	if err := json.Unmarshal([]byte(*m.Data), &txs); err != nil {
		return nil, fmt.Errorf("%w: %v", chainerr.ErrParseError, err)
	}
	return txs, nil
}
