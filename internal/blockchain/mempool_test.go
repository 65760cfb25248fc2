package blockchain

import (
	"testing"

	"nanochain/internal/cryptoutil"
)

func fundedUTXO(addr string, amount uint64) (UTXOSet, UTXOKey) {
	key := UTXOKey{TxOutID: "seed", TxOutIndex: 0}
	utxos := NewUTXOSet()
	utxos[key] = UTXO{TxOutID: "seed", TxOutIndex: 0, Address: addr, Amount: amount}
	return utxos, key
}

func buildSpend(t *testing.T, addr string, key UTXOKey, amount uint64) Transaction {
	t.Helper()
	tx := Transaction{
		TxIns:  []TxIn{{TxOutID: key.TxOutID, TxOutIndex: key.TxOutIndex}},
		TxOuts: []TxOut{{Address: addr, Amount: amount}},
	}
	id, err := ComputeTransactionID(tx)
	if err != nil {
		t.Fatalf("ComputeTransactionID: %v", err)
	}
	tx.ID = id
	return tx
}

func TestMempoolRejectsConflictingInputs(t *testing.T) {
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := cryptoutil.PublicKeyHex(priv)
	utxos, key := fundedUTXO(addr, 100)

	tx1 := buildSpend(t, addr, key, 100)
	if err := SignTxIn(&tx1, 0, priv, utxos); err != nil {
		t.Fatalf("SignTxIn: %v", err)
	}
	tx2 := buildSpend(t, addr, key, 100)
	if err := SignTxIn(&tx2, 0, priv, utxos); err != nil {
		t.Fatalf("SignTxIn: %v", err)
	}

	mp := NewMempool()
	if err := mp.Add(tx1, utxos); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := mp.Add(tx2, utxos); err == nil {
		t.Fatalf("expected second transaction spending the same utxo to be rejected")
	}
	if mp.Len() != 1 {
		t.Errorf("mempool len = %d, want 1", mp.Len())
	}
}

func TestMempoolReconcileDropsSpentInputs(t *testing.T) {
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := cryptoutil.PublicKeyHex(priv)
	utxos, key := fundedUTXO(addr, 100)

	tx := buildSpend(t, addr, key, 100)
	if err := SignTxIn(&tx, 0, priv, utxos); err != nil {
		t.Fatalf("SignTxIn: %v", err)
	}

	mp := NewMempool()
	if err := mp.Add(tx, utxos); err != nil {
		t.Fatalf("Add: %v", err)
	}

	mp.Reconcile(NewUTXOSet()) // utxo no longer exists
	if mp.Len() != 0 {
		t.Errorf("expected mempool to drop tx referencing a spent utxo, len = %d", mp.Len())
	}
}

func TestMempoolRemoveIncluded(t *testing.T) {
	priv, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	addr := cryptoutil.PublicKeyHex(priv)
	utxos, key := fundedUTXO(addr, 100)

	tx := buildSpend(t, addr, key, 100)
	if err := SignTxIn(&tx, 0, priv, utxos); err != nil {
		t.Fatalf("SignTxIn: %v", err)
	}

	mp := NewMempool()
	if err := mp.Add(tx, utxos); err != nil {
		t.Fatalf("Add: %v", err)
	}
	mp.RemoveIncluded([]Transaction{tx})
	if mp.Len() != 0 {
		t.Errorf("expected included transaction to be removed, len = %d", mp.Len())
	}
}
