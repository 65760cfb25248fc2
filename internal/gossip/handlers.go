package gossip

import (
	"go.uber.org/zap"

	"nanochain/internal/blockchain"
)

// handleChainResponse implements the RESPONSE_BLOCKCHAIN branch of
// spec.md §4.5: compare the received chain's tip against our own,
// accept it directly if it extends our head by one, ask everyone for
// the full chain if we only got a single dangling block, or attempt a
// full fork-choice replace otherwise.
func handleChainResponse(node NodeView, hub *Hub, logger *zap.Logger, received []blockchain.Block) {
	if len(received) == 0 {
		return
	}
	last := received[len(received)-1]
	if !last.IsHashValid() {
		logger.Debug("ignoring chain response with invalid tip hash")
		return
	}

	held := node.Latest()
	if last.Index <= held.Index {
		return
	}

	if last.PreviousHash == held.Hash {
		if err := node.AcceptBlock(last); err != nil {
			logger.Debug("rejected extending block", zap.Error(err))
			return
		}
		hub.Broadcast(ResponseBlockchain, []blockchain.Block{node.Latest()})
		return
	}

	if len(received) == 1 {
		hub.Broadcast(QueryAll, nil)
		return
	}

	replaced, err := node.ReplaceChain(received)
	if err != nil {
		logger.Debug("chain replace rejected", zap.Error(err))
		return
	}
	if replaced {
		hub.Broadcast(ResponseBlockchain, []blockchain.Block{node.Latest()})
	}
}

// handleTransactionResponse implements the RESPONSE_TRANSACTION_POOL
// branch: admit each transaction into the mempool, broadcasting the
// updated pool on every successful admission and silently skipping
// ones that fail validation or conflict.
func handleTransactionResponse(node NodeView, hub *Hub, logger *zap.Logger, received []blockchain.Transaction) {
	for _, tx := range received {
		if err := node.AddToMempool(tx); err != nil {
			logger.Debug("mempool admission rejected", zap.Error(err))
			continue
		}
		hub.Broadcast(ResponseTransactionPool, node.MempoolSnapshot())
	}
}
