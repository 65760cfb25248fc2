package blockchain

// UTXOSet is the authoritative ledger: the set of transaction outputs
// not yet spent, folded from the chain by ProcessTransactions.

// UTXOKey identifies a UTXO by the transaction and output index that
// produced it.
type UTXOKey struct {
	TxOutID    string
	TxOutIndex uint32
}

// UTXO is a TxOut addressable by the (txOutId, txOutIndex) that produced it.
type UTXO struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint32 `json:"txOutIndex"`
	Address    string `json:"address"`
	Amount     uint64 `json:"amount"`
}

// UTXOSet is unique by (TxOutID, TxOutIndex).
type UTXOSet map[UTXOKey]UTXO

// NewUTXOSet returns an empty set.
func NewUTXOSet() UTXOSet {
	return make(UTXOSet)
}

// Clone returns a defensive deep copy.
func (u UTXOSet) Clone() UTXOSet {
	next := make(UTXOSet, len(u))
	for k, v := range u {
		next[k] = v
	}
	return next
}

// Find looks up a UTXO by the reference a TxIn carries.
func (u UTXOSet) Find(txOutID string, txOutIndex uint32) (UTXO, bool) {
	v, ok := u[UTXOKey{TxOutID: txOutID, TxOutIndex: txOutIndex}]
	return v, ok
}

// ForAddress returns every UTXO owned by address, in no particular order.
func (u UTXOSet) ForAddress(address string) []UTXO {
	out := make([]UTXO, 0)
	for _, v := range u {
		if v.Address == address {
			out = append(out, v)
		}
	}
	return out
}

// BalanceOf sums the amounts of every UTXO owned by address.
func (u UTXOSet) BalanceOf(address string) uint64 {
	var total uint64
	for _, v := range u {
		if v.Address == address {
			total += v.Amount
		}
	}
	return total
}
