// Package node is the thin facade spec.md §6 describes: it exposes the
// node-level command set by wiring together the chain engine, a
// wallet, the gossip hub, and metrics, without adding any new
// consensus behavior of its own.
package node

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"nanochain/internal/blockchain"
	"nanochain/internal/chainerr"
	"nanochain/internal/cryptoutil"
	"nanochain/internal/gossip"
	"nanochain/internal/metrics"
	"nanochain/internal/wallet"
)

// Node wires the chain engine to a wallet, peer hub and metrics
// recorder, and exposes spec.md §6's operations as methods.
type Node struct {
	chain  *blockchain.Blockchain
	wallet *wallet.Wallet
	hub    *gossip.Hub
	rec    metrics.Recorder
	logger *zap.Logger
}

// New builds a node around an already-constructed chain, wallet and
// hub. rec may be metrics.Noop{} if metrics are disabled.
func New(chain *blockchain.Blockchain, w *wallet.Wallet, hub *gossip.Hub, rec metrics.Recorder, logger *zap.Logger) *Node {
	if rec == nil {
		rec = metrics.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Node{chain: chain, wallet: w, hub: hub, rec: rec, logger: logger}
}

// Latest implements gossip.NodeView.
func (n *Node) Latest() blockchain.Block { return n.chain.Latest() }

// Chain implements gossip.NodeView.
func (n *Node) Chain() []blockchain.Block { return n.chain.Chain() }

// AcceptBlock implements gossip.NodeView.
func (n *Node) AcceptBlock(b blockchain.Block) error {
	err := n.chain.AcceptBlock(b)
	n.refreshGauges()
	return err
}

// ReplaceChain implements gossip.NodeView.
func (n *Node) ReplaceChain(candidate []blockchain.Block) (bool, error) {
	replaced, err := n.chain.ReplaceChain(candidate)
	n.refreshGauges()
	return replaced, err
}

// AddToMempool implements gossip.NodeView.
func (n *Node) AddToMempool(tx blockchain.Transaction) error {
	err := n.chain.Mempool().Add(tx, n.chain.UTXOs())
	n.refreshGauges()
	return err
}

// MempoolSnapshot implements gossip.NodeView.
func (n *Node) MempoolSnapshot() []blockchain.Transaction {
	return n.chain.Mempool().Snapshot()
}

func (n *Node) refreshGauges() {
	n.rec.SetChainHeight(n.chain.Latest().Index)
	n.rec.SetMempoolSize(n.chain.Mempool().Len())
	n.rec.SetPeerCount(n.hub.PeerCount())
}

// ListPeers returns the remote address of every connected peer.
func (n *Node) ListPeers() []string { return n.hub.Peers() }

// AddPeer dials hostport and registers the resulting session.
func (n *Node) AddPeer(hostport string) error {
	_, err := gossip.Dial(hostport, n.hub, n, n.logger)
	return err
}

// nextCoinbase builds the reward transaction for the block that would
// follow the current head, paid to this node's own wallet.
func (n *Node) nextCoinbase() (blockchain.Transaction, error) {
	return blockchain.NewCoinbase(n.chain.Latest().Index+1, n.wallet.Address())
}

// MineBlock builds a coinbase paying this node's wallet and mines it
// together with the current mempool contents into the next block.
func (n *Node) MineBlock(ctx context.Context) (blockchain.Block, error) {
	coinbase, err := n.nextCoinbase()
	if err != nil {
		return blockchain.Block{}, err
	}
	data := append([]blockchain.Transaction{coinbase}, n.chain.Mempool().Snapshot()...)
	b, err := n.chain.MineWith(ctx, data)
	n.onMined(err)
	return b, err
}

// MineRawBlock mines a block carrying exactly the given data, bypassing
// the mempool entirely. The caller is responsible for data[0] being a
// valid coinbase. Exposed for operators and tests per spec.md §6.
func (n *Node) MineRawBlock(ctx context.Context, data []blockchain.Transaction) (blockchain.Block, error) {
	b, err := n.chain.MineWith(ctx, data)
	n.onMined(err)
	return b, err
}

// MineTransaction builds, signs and mines a single transaction paying
// amount to address directly into the next block alongside a coinbase
// paying this node's wallet, without touching the mempool.
func (n *Node) MineTransaction(ctx context.Context, address string, amount uint64) (blockchain.Block, error) {
	tx, err := n.wallet.Build(address, amount, n.chain.UTXOs(), n.chain.Mempool().Snapshot())
	if err != nil {
		return blockchain.Block{}, err
	}
	coinbase, err := n.nextCoinbase()
	if err != nil {
		return blockchain.Block{}, err
	}
	return n.MineRawBlock(ctx, []blockchain.Transaction{coinbase, tx})
}

// SendTransaction builds, signs and admits a transaction paying amount
// to address into the mempool, broadcasting it to peers.
func (n *Node) SendTransaction(address string, amount uint64) (blockchain.Transaction, error) {
	tx, err := n.wallet.Build(address, amount, n.chain.UTXOs(), n.chain.Mempool().Snapshot())
	if err != nil {
		return blockchain.Transaction{}, err
	}
	if err := n.chain.Mempool().Add(tx, n.chain.UTXOs()); err != nil {
		return blockchain.Transaction{}, err
	}
	n.refreshGauges()
	n.hub.Broadcast(gossip.ResponseTransactionPool, n.chain.Mempool().Snapshot())
	return tx, nil
}

func (n *Node) onMined(err error) {
	if err == nil {
		n.rec.IncBlocksMined()
	}
	n.refreshGauges()
}

// Balance returns this node's wallet balance over the current UTXO set.
func (n *Node) Balance() uint64 { return n.wallet.Balance(n.chain.UTXOs()) }

// Address returns this node's wallet address.
func (n *Node) Address() string { return n.wallet.Address() }

// ListUnspent returns every UTXO in the current set for address.
func (n *Node) ListUnspent(address string) []blockchain.UTXO {
	return n.chain.UTXOs().ForAddress(address)
}

// ListMyUnspent returns this node's own unspent outputs.
func (n *Node) ListMyUnspent() []blockchain.UTXO {
	return n.wallet.ListUnspent(n.chain.UTXOs())
}

// ListMempool returns a snapshot of the pending transaction pool.
func (n *Node) ListMempool() []blockchain.Transaction {
	return n.chain.Mempool().Snapshot()
}

// GetBlockByHash linearly scans the chain for a block with the given
// hash.
func (n *Node) GetBlockByHash(hash string) (blockchain.Block, error) {
	for _, b := range n.chain.Chain() {
		if b.Hash == hash {
			return b, nil
		}
	}
	return blockchain.Block{}, fmt.Errorf("%w: block %s", chainerr.ErrNotFound, hash)
}

// GetTransactionByID linearly scans the chain for a transaction with
// the given id.
func (n *Node) GetTransactionByID(id string) (blockchain.Transaction, error) {
	for _, b := range n.chain.Chain() {
		for _, tx := range b.Data {
			if tx.ID == id {
				return tx, nil
			}
		}
	}
	return blockchain.Transaction{}, fmt.Errorf("%w: transaction %s", chainerr.ErrNotFound, id)
}

// ListByAddress linearly scans every block's outputs for ones paid to
// address, regardless of whether they have since been spent.
func (n *Node) ListByAddress(address string) []blockchain.TxOut {
	if !cryptoutil.IsValidAddress(address) {
		return nil
	}
	var out []blockchain.TxOut
	for _, b := range n.chain.Chain() {
		for _, tx := range b.Data {
			for _, o := range tx.TxOuts {
				if o.Address == address {
					out = append(out, o)
				}
			}
		}
	}
	return out
}
