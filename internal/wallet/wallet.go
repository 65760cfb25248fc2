// Package wallet owns a single private key and builds signed
// transactions against a UTXO snapshot and mempool view (spec.md §4.4).
// Wallet itself performs no I/O; loading the key from disk is the job
// of the separate Keystore key provider in keystore.go.
package wallet

import (
	"fmt"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"nanochain/internal/blockchain"
	"nanochain/internal/chainerr"
	"nanochain/internal/cryptoutil"
)

// Wallet signs on behalf of a single keypair.
type Wallet struct {
	priv *secp256k1.PrivateKey
}

// New wraps an existing private key.
func New(priv *secp256k1.PrivateKey) *Wallet {
	return &Wallet{priv: priv}
}

// Address returns the wallet's 130-char "04"-prefixed public address.
func (w *Wallet) Address() string {
	return cryptoutil.PublicKeyHex(w.priv)
}

// Balance sums the amounts of UTXOs in utxos owned by this wallet.
func (w *Wallet) Balance(utxos blockchain.UTXOSet) uint64 {
	return utxos.BalanceOf(w.Address())
}

// ListUnspent returns every UTXO owned by this wallet in utxos.
func (w *Wallet) ListUnspent(utxos blockchain.UTXOSet) []blockchain.UTXO {
	return utxos.ForAddress(w.Address())
}

// mempoolSpent returns the (txOutId, txOutIndex) keys any pooled
// transaction's inputs already reference, so coin selection skips them.
func mempoolSpent(pending []blockchain.Transaction) map[blockchain.UTXOKey]struct{} {
	spent := make(map[blockchain.UTXOKey]struct{})
	for _, tx := range pending {
		for _, in := range tx.TxIns {
			spent[blockchain.UTXOKey{TxOutID: in.TxOutID, TxOutIndex: in.TxOutIndex}] = struct{}{}
		}
	}
	return spent
}

// Build constructs, signs and returns a transaction paying amount to
// receiver, spending this wallet's own UTXOs from utxos that are not
// already referenced by a transaction in pending. If the available
// total exceeds amount, a second output returns the change to this
// wallet's own address.
func (w *Wallet) Build(receiver string, amount uint64, utxos blockchain.UTXOSet, pending []blockchain.Transaction) (blockchain.Transaction, error) {
	if !cryptoutil.IsValidAddress(receiver) {
		return blockchain.Transaction{}, fmt.Errorf("%w: %s", chainerr.ErrAddressInvalid, receiver)
	}
	if amount == 0 {
		return blockchain.Transaction{}, fmt.Errorf("%w: amount must be positive", chainerr.ErrStructureInvalid)
	}

	mine := w.ListUnspent(utxos)
	// Deterministic ordering keeps coin selection reproducible across
	// calls over the same snapshot, which matters for tests.
	sort.Slice(mine, func(i, j int) bool {
		if mine[i].TxOutID != mine[j].TxOutID {
			return mine[i].TxOutID < mine[j].TxOutID
		}
		return mine[i].TxOutIndex < mine[j].TxOutIndex
	})
	spent := mempoolSpent(pending)

	var selected []blockchain.UTXO
	var total uint64
	for _, u := range mine {
		key := blockchain.UTXOKey{TxOutID: u.TxOutID, TxOutIndex: u.TxOutIndex}
		if _, skip := spent[key]; skip {
			continue
		}
		selected = append(selected, u)
		total += u.Amount
		if total >= amount {
			break
		}
	}
	if total < amount {
		return blockchain.Transaction{}, fmt.Errorf("%w: have %d want %d", chainerr.ErrInsufficientFunds, total, amount)
	}

	tx := blockchain.Transaction{}
	for _, u := range selected {
		tx.TxIns = append(tx.TxIns, blockchain.TxIn{TxOutID: u.TxOutID, TxOutIndex: u.TxOutIndex})
	}
	tx.TxOuts = append(tx.TxOuts, blockchain.TxOut{Address: receiver, Amount: amount})
	if change := total - amount; change > 0 {
		tx.TxOuts = append(tx.TxOuts, blockchain.TxOut{Address: w.Address(), Amount: change})
	}

	id, err := blockchain.ComputeTransactionID(tx)
	if err != nil {
		return blockchain.Transaction{}, err
	}
	tx.ID = id

	for i := range tx.TxIns {
		if err := blockchain.SignTxIn(&tx, i, w.priv, utxos); err != nil {
			return blockchain.Transaction{}, err
		}
	}
	return tx, nil
}
