package blockchain

import (
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"nanochain/internal/cryptoutil"
)

func mustKey(t *testing.T) (*secp256k1.PrivateKey, string) {
	t.Helper()
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return priv, cryptoutil.PublicKeyHex(priv)
}

func TestComputeTransactionIDExcludesSignature(t *testing.T) {
	tx := Transaction{
		TxIns:  []TxIn{{TxOutID: "a", TxOutIndex: 0, Signature: "sig1"}},
		TxOuts: []TxOut{{Address: "addr", Amount: 10}},
	}
	id1, err := ComputeTransactionID(tx)
	if err != nil {
		t.Fatalf("ComputeTransactionID: %v", err)
	}
	tx.TxIns[0].Signature = "sig2"
	id2, err := ComputeTransactionID(tx)
	if err != nil {
		t.Fatalf("ComputeTransactionID: %v", err)
	}
	if id1 != id2 {
		t.Errorf("transaction id should not depend on signature: %s vs %s", id1, id2)
	}
}

func TestSignAndValidateTransaction(t *testing.T) {
	priv, addr := mustKey(t)

	utxos := NewUTXOSet()
	utxos[UTXOKey{TxOutID: "src", TxOutIndex: 0}] = UTXO{TxOutID: "src", TxOutIndex: 0, Address: addr, Amount: 100}

	tx := Transaction{
		TxIns:  []TxIn{{TxOutID: "src", TxOutIndex: 0}},
		TxOuts: []TxOut{{Address: addr, Amount: 100}},
	}
	id, err := ComputeTransactionID(tx)
	if err != nil {
		t.Fatalf("ComputeTransactionID: %v", err)
	}
	tx.ID = id

	if err := SignTxIn(&tx, 0, priv, utxos); err != nil {
		t.Fatalf("SignTxIn: %v", err)
	}
	if err := ValidateTransaction(tx, utxos); err != nil {
		t.Fatalf("ValidateTransaction: %v", err)
	}
}

func TestValidateTransactionRejectsUnbalancedAmounts(t *testing.T) {
	priv, addr := mustKey(t)
	utxos := NewUTXOSet()
	utxos[UTXOKey{TxOutID: "src", TxOutIndex: 0}] = UTXO{TxOutID: "src", TxOutIndex: 0, Address: addr, Amount: 100}

	tx := Transaction{
		TxIns:  []TxIn{{TxOutID: "src", TxOutIndex: 0}},
		TxOuts: []TxOut{{Address: addr, Amount: 40}},
	}
	id, err := ComputeTransactionID(tx)
	if err != nil {
		t.Fatalf("ComputeTransactionID: %v", err)
	}
	tx.ID = id
	if err := SignTxIn(&tx, 0, priv, utxos); err != nil {
		t.Fatalf("SignTxIn: %v", err)
	}
	if err := ValidateTransaction(tx, utxos); err == nil {
		t.Fatalf("expected unbalanced amounts to be rejected")
	}
}

func TestValidateCoinbaseTransaction(t *testing.T) {
	g, err := NewGenesis()
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	if err := ValidateCoinbaseTransaction(g.Data[0], 0); err != nil {
		t.Fatalf("genesis coinbase should validate: %v", err)
	}

	bad := g.Data[0]
	bad.TxOuts[0].Amount = CoinbaseAmount + 1
	if err := ValidateCoinbaseTransaction(bad, 0); err == nil {
		t.Fatalf("expected wrong coinbase amount to be rejected")
	}
}

func TestValidateBlockTransactionsRejectsDuplicateInputs(t *testing.T) {
	priv, addr := mustKey(t)
	utxos := NewUTXOSet()
	utxos[UTXOKey{TxOutID: "src", TxOutIndex: 0}] = UTXO{TxOutID: "src", TxOutIndex: 0, Address: addr, Amount: 100}

	coinbase := Transaction{
		TxIns:  []TxIn{{TxOutID: "", TxOutIndex: 1, Signature: ""}},
		TxOuts: []TxOut{{Address: addr, Amount: CoinbaseAmount}},
	}
	id, _ := ComputeTransactionID(coinbase)
	coinbase.ID = id

	spend := func() Transaction {
		tx := Transaction{
			TxIns:  []TxIn{{TxOutID: "src", TxOutIndex: 0}},
			TxOuts: []TxOut{{Address: addr, Amount: 100}},
		}
		id, _ := ComputeTransactionID(tx)
		tx.ID = id
		_ = SignTxIn(&tx, 0, priv, utxos)
		return tx
	}
	tx1 := spend()
	tx2 := spend()

	err := ValidateBlockTransactions([]Transaction{coinbase, tx1, tx2}, utxos, 1)
	if err == nil {
		t.Fatalf("expected duplicate input across block transactions to be rejected")
	}
}

func TestProcessTransactionsFoldsUtxoSet(t *testing.T) {
	g, err := NewGenesis()
	if err != nil {
		t.Fatalf("NewGenesis: %v", err)
	}
	utxos, err := ProcessTransactions(g.Data, NewUTXOSet(), g.Index)
	if err != nil {
		t.Fatalf("ProcessTransactions: %v", err)
	}
	if len(utxos) != 1 {
		t.Fatalf("expected 1 utxo after genesis, got %d", len(utxos))
	}
}
