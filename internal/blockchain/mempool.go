package blockchain

// Mempool holds unconfirmed transactions, insertion-ordered, rejecting
// anything that conflicts with an already-pooled transaction or with
// the UTXO set it is validated against (spec.md §4.3).

import (
	"fmt"
	"sync"

	"nanochain/internal/chainerr"
)

// Mempool is safe for concurrent use.
type Mempool struct {
	mu  sync.Mutex
	txs []Transaction
}

// NewMempool returns an empty mempool.
func NewMempool() *Mempool {
	return &Mempool{}
}

// spentKeys returns every (txOutId, txOutIndex) referenced by tx's inputs.
func spentKeys(tx Transaction) []UTXOKey {
	keys := make([]UTXOKey, 0, len(tx.TxIns))
	for _, in := range tx.TxIns {
		keys = append(keys, UTXOKey{TxOutID: in.TxOutID, TxOutIndex: in.TxOutIndex})
	}
	return keys
}

// Add validates tx against utxos and appends it unless it conflicts with
// an existing mempool transaction over a shared input.
func (m *Mempool) Add(tx Transaction, utxos UTXOSet) error {
	if err := ValidateTransaction(tx, utxos); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	spent := make(map[UTXOKey]struct{})
	for _, existing := range m.txs {
		for _, k := range spentKeys(existing) {
			spent[k] = struct{}{}
		}
	}
	for _, k := range spentKeys(tx) {
		if _, conflict := spent[k]; conflict {
			return fmt.Errorf("%w: %s:%d already referenced in mempool", chainerr.ErrConflictInMempool, k.TxOutID, k.TxOutIndex)
		}
	}

	m.txs = append(m.txs, tx)
	return nil
}

// Snapshot returns a defensive copy of the pool in insertion order.
func (m *Mempool) Snapshot() []Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transaction, len(m.txs))
	copy(out, m.txs)
	return out
}

// Len reports the current pool size.
func (m *Mempool) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// Reconcile drops every pooled transaction that references a UTXO no
// longer present in utxos, preserving order among survivors.
func (m *Mempool) Reconcile(utxos UTXOSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	survivors := m.txs[:0:0]
	for _, tx := range m.txs {
		stillValid := true
		for _, in := range tx.TxIns {
			if _, ok := utxos.Find(in.TxOutID, in.TxOutIndex); !ok {
				stillValid = false
				break
			}
		}
		if stillValid {
			survivors = append(survivors, tx)
		}
	}
	m.txs = survivors
}

// RemoveIncluded drops transactions that were just mined into a block,
// matched by id.
func (m *Mempool) RemoveIncluded(included []Transaction) {
	if len(included) == 0 {
		return
	}
	ids := make(map[string]struct{}, len(included))
	for _, tx := range included {
		ids[tx.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	survivors := m.txs[:0:0]
	for _, tx := range m.txs {
		if _, gone := ids[tx.ID]; !gone {
			survivors = append(survivors, tx)
		}
	}
	m.txs = survivors
}
