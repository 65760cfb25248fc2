package node

import (
	"context"
	"testing"

	"nanochain/internal/blockchain"
	"nanochain/internal/cryptoutil"
	"nanochain/internal/gossip"
	"nanochain/internal/metrics"
	"nanochain/internal/wallet"
)

func newTestNode(t *testing.T) *Node {
	t.Helper()
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	w := wallet.New(priv)
	hub := gossip.NewHub(nil)
	mempool := blockchain.NewMempool()
	chain, err := blockchain.NewBlockchain(mempool, hub, nil)
	if err != nil {
		t.Fatalf("NewBlockchain: %v", err)
	}
	return New(chain, w, hub, metrics.Noop{}, nil)
}

func TestNodeMineBlockRecordsReward(t *testing.T) {
	n := newTestNode(t)
	b, err := n.MineBlock(context.Background())
	if err != nil {
		t.Fatalf("MineBlock: %v", err)
	}
	if b.Index != 1 {
		t.Fatalf("expected mined block index 1, got %d", b.Index)
	}
	if len(n.Chain()) != 2 {
		t.Fatalf("expected chain length 2, got %d", len(n.Chain()))
	}
	if len(b.Data) != 1 {
		t.Fatalf("expected exactly the coinbase in an empty-mempool block, got %d txs", len(b.Data))
	}
	if n.Balance() != blockchain.CoinbaseAmount {
		t.Fatalf("expected wallet balance to equal the coinbase reward, got %d", n.Balance())
	}
}

func TestNodeMineBlockIncludesMempool(t *testing.T) {
	n := newTestNode(t)
	if _, err := n.MineBlock(context.Background()); err != nil {
		t.Fatalf("MineBlock (first): %v", err)
	}

	other, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherAddr := cryptoutil.PublicKeyHex(other)
	if _, err := n.SendTransaction(otherAddr, 10); err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if len(n.ListMempool()) != 1 {
		t.Fatalf("expected pending transaction in mempool")
	}

	b, err := n.MineBlock(context.Background())
	if err != nil {
		t.Fatalf("MineBlock (second): %v", err)
	}
	if len(b.Data) != 2 {
		t.Fatalf("expected coinbase + pending tx in mined block, got %d txs", len(b.Data))
	}
	if len(n.ListMempool()) != 0 {
		t.Fatalf("expected mempool to be drained after mining, got %v", n.ListMempool())
	}
	if n.Balance() != 2*blockchain.CoinbaseAmount-10 {
		t.Fatalf("expected balance to reflect two coinbases minus the sent amount, got %d", n.Balance())
	}
}

func TestNodeMineTransactionPaysReceiver(t *testing.T) {
	n := newTestNode(t)

	// A fresh wallet owns nothing yet, so building the payment fails
	// before mining is ever attempted.
	if _, err := n.MineTransaction(context.Background(), n.Address(), 1); err == nil {
		t.Fatalf("expected insufficient funds before this wallet owns anything")
	}

	if _, err := n.MineBlock(context.Background()); err != nil {
		t.Fatalf("MineBlock: %v", err)
	}

	other, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherAddr := cryptoutil.PublicKeyHex(other)

	b, err := n.MineTransaction(context.Background(), otherAddr, 10)
	if err != nil {
		t.Fatalf("MineTransaction: %v", err)
	}
	if len(b.Data) != 2 {
		t.Fatalf("expected coinbase + payment in mined block, got %d txs", len(b.Data))
	}
	if n.Balance() != 2*blockchain.CoinbaseAmount-10 {
		t.Fatalf("expected balance to reflect two coinbases minus the sent amount, got %d", n.Balance())
	}
}

func TestNodeSendTransactionWithoutFundsLeavesMempoolEmpty(t *testing.T) {
	n := newTestNode(t)
	other, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherAddr := cryptoutil.PublicKeyHex(other)

	if _, err := n.SendTransaction(otherAddr, 1); err == nil {
		t.Fatalf("expected insufficient funds for a freshly created wallet")
	}
	if len(n.ListMempool()) != 0 {
		t.Fatalf("mempool should remain empty after a rejected send")
	}
}

func TestNodeGetBlockAndTransactionLookups(t *testing.T) {
	n := newTestNode(t)
	genesis := n.Chain()[0]

	got, err := n.GetBlockByHash(genesis.Hash)
	if err != nil {
		t.Fatalf("GetBlockByHash: %v", err)
	}
	if got.Hash != genesis.Hash {
		t.Fatalf("expected genesis block back, got %+v", got)
	}

	coinbaseID := genesis.Data[0].ID
	tx, err := n.GetTransactionByID(coinbaseID)
	if err != nil {
		t.Fatalf("GetTransactionByID: %v", err)
	}
	if tx.ID != coinbaseID {
		t.Fatalf("expected coinbase transaction back, got %+v", tx)
	}

	if _, err := n.GetBlockByHash("does-not-exist"); err == nil {
		t.Fatalf("expected lookup of a missing block to fail")
	}
}

func TestNodeListByAddressFindsGenesisCoinbase(t *testing.T) {
	n := newTestNode(t)
	genesis := n.Chain()[0]
	recipient := genesis.Data[0].TxOuts[0].Address

	outs := n.ListByAddress(recipient)
	if len(outs) != 1 || outs[0].Amount != blockchain.CoinbaseAmount {
		t.Fatalf("expected to find the genesis coinbase output, got %+v", outs)
	}

	if got := n.ListByAddress("not-a-valid-address"); got != nil {
		t.Fatalf("expected nil for an invalid address, got %+v", got)
	}
}

func TestNodeAddressAndBalance(t *testing.T) {
	n := newTestNode(t)
	if !cryptoutil.IsValidAddress(n.Address()) {
		t.Fatalf("expected a valid address")
	}
	if n.Balance() != 0 {
		t.Fatalf("expected a fresh wallet to have 0 balance, got %d", n.Balance())
	}
}
