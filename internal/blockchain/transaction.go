package blockchain

// Transaction / TxIn / TxOut types and the UTXO-model validation rules
// of spec.md §4.2.

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"nanochain/internal/chainerr"
	"nanochain/internal/cryptoutil"
)

// CoinbaseAmount is the fixed block reward (spec.md §4.1).
const CoinbaseAmount = 50

// TxIn references the UTXO it spends and carries the spending signature.
// Signature is empty for a coinbase input.
type TxIn struct {
	TxOutID    string `json:"txOutId"`
	TxOutIndex uint32 `json:"txOutIndex"`
	Signature  string `json:"signature"`
}

// TxOut locks Amount coins to Address.
type TxOut struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// Transaction is a UTXO-model transaction: a set of inputs spending
// prior outputs and a set of new outputs.
type Transaction struct {
	ID     string  `json:"id"`
	TxIns  []TxIn  `json:"txIns"`
	TxOuts []TxOut `json:"txOuts"`
}

// computeTransactionID hashes the input references and outputs — never
// the signatures — so signing can bind to the resulting id.
func computeTransactionID(tx Transaction) (string, error) {
	var buf []byte
	for _, in := range tx.TxIns {
		buf = append(buf, in.TxOutID...)
		buf = append(buf, strconv.FormatUint(uint64(in.TxOutIndex), 10)...)
	}
	for _, out := range tx.TxOuts {
		buf = append(buf, out.Address...)
		buf = append(buf, strconv.FormatUint(out.Amount, 10)...)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// ComputeTransactionID is the exported form used by the wallet and gossip
// packages to derive and re-verify transaction ids.
func ComputeTransactionID(tx Transaction) (string, error) {
	return computeTransactionID(tx)
}

// idHashBytes returns the raw bytes a TxIn's signature is made over: the
// transaction id interpreted as hex, as a 32-byte digest.
func idHashBytes(id string) ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(id)
	if err != nil {
		return out, fmt.Errorf("%w: transaction id not hex", chainerr.ErrParseError)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("%w: transaction id wrong length", chainerr.ErrParseError)
	}
	copy(out[:], b)
	return out, nil
}

// SignTxIn signs tx.TxIns[index] in place. The UTXO referenced by the
// input must exist in utxos and must be owned by priv's public key.
func SignTxIn(tx *Transaction, index int, priv *secp256k1.PrivateKey, utxos UTXOSet) error {
	if index < 0 || index >= len(tx.TxIns) {
		return fmt.Errorf("%w: tx input index out of range", chainerr.ErrStructureInvalid)
	}
	in := tx.TxIns[index]
	utxo, ok := utxos.Find(in.TxOutID, in.TxOutIndex)
	if !ok {
		return fmt.Errorf("%w: %s:%d", chainerr.ErrUtxoMissing, in.TxOutID, in.TxOutIndex)
	}
	address := cryptoutil.PublicKeyHex(priv)
	if address != utxo.Address {
		return fmt.Errorf("%w: signing key does not own referenced utxo", chainerr.ErrSignatureInvalid)
	}
	hash, err := idHashBytes(tx.ID)
	if err != nil {
		return err
	}
	tx.TxIns[index].Signature = cryptoutil.Sign(priv, hash)
	return nil
}

// validateStructure performs the cheap shape checks every transaction
// (coinbase or not) must satisfy before semantic validation runs.
func validateStructure(tx Transaction) error {
	if len(tx.TxIns) == 0 {
		return fmt.Errorf("%w: transaction has no inputs", chainerr.ErrStructureInvalid)
	}
	if len(tx.TxOuts) == 0 {
		return fmt.Errorf("%w: transaction has no outputs", chainerr.ErrStructureInvalid)
	}
	for _, out := range tx.TxOuts {
		if out.Amount == 0 {
			return fmt.Errorf("%w: zero amount output", chainerr.ErrStructureInvalid)
		}
		if !cryptoutil.IsValidAddress(out.Address) {
			return fmt.Errorf("%w: %s", chainerr.ErrAddressInvalid, out.Address)
		}
	}
	return nil
}

// ValidateTransaction validates a single non-coinbase transaction
// against a UTXO snapshot U, per spec.md §4.2:
//  1. recomputed id must equal tx.id
//  2. every input must reference a UTXO in U with a verifying signature
//  3. input amounts must equal output amounts
func ValidateTransaction(tx Transaction, utxos UTXOSet) error {
	if err := validateStructure(tx); err != nil {
		return err
	}
	id, err := computeTransactionID(tx)
	if err != nil {
		return err
	}
	if id != tx.ID {
		return fmt.Errorf("%w: got %s want %s", chainerr.ErrTransactionIDMismatch, tx.ID, id)
	}

	hash, err := idHashBytes(tx.ID)
	if err != nil {
		return err
	}

	var inputTotal uint64
	for _, in := range tx.TxIns {
		utxo, ok := utxos.Find(in.TxOutID, in.TxOutIndex)
		if !ok {
			return fmt.Errorf("%w: %s:%d", chainerr.ErrUtxoMissing, in.TxOutID, in.TxOutIndex)
		}
		valid, err := cryptoutil.Verify(utxo.Address, in.Signature, hash)
		if err != nil || !valid {
			return fmt.Errorf("%w: input %s:%d", chainerr.ErrSignatureInvalid, in.TxOutID, in.TxOutIndex)
		}
		inputTotal += utxo.Amount
	}
	var outputTotal uint64
	for _, out := range tx.TxOuts {
		outputTotal += out.Amount
	}
	if inputTotal != outputTotal {
		return fmt.Errorf("%w: inputs %d outputs %d", chainerr.ErrAmountsUnbalanced, inputTotal, outputTotal)
	}
	return nil
}

// NewCoinbase builds the block-reward transaction a miner prepends to
// every block it produces: a single empty TxIn carrying the block
// index, and a single TxOut of CoinbaseAmount to address.
func NewCoinbase(blockIndex uint64, address string) (Transaction, error) {
	tx := Transaction{
		TxIns:  []TxIn{{TxOutID: "", TxOutIndex: uint32(blockIndex), Signature: ""}},
		TxOuts: []TxOut{{Address: address, Amount: CoinbaseAmount}},
	}
	id, err := computeTransactionID(tx)
	if err != nil {
		return Transaction{}, err
	}
	tx.ID = id
	return tx, nil
}

// ValidateCoinbaseTransaction validates the first transaction of a
// block at blockIndex.
func ValidateCoinbaseTransaction(tx Transaction, blockIndex uint64) error {
	if len(tx.TxIns) != 1 {
		return fmt.Errorf("%w: coinbase must have exactly one input", chainerr.ErrCoinbaseInvalid)
	}
	in := tx.TxIns[0]
	if in.Signature != "" || in.TxOutID != "" {
		return fmt.Errorf("%w: coinbase input must be empty", chainerr.ErrCoinbaseInvalid)
	}
	if uint64(in.TxOutIndex) != blockIndex {
		return fmt.Errorf("%w: coinbase txOutIndex must equal block index", chainerr.ErrCoinbaseInvalid)
	}
	if len(tx.TxOuts) != 1 {
		return fmt.Errorf("%w: coinbase must have exactly one output", chainerr.ErrCoinbaseInvalid)
	}
	if tx.TxOuts[0].Amount != CoinbaseAmount {
		return fmt.Errorf("%w: coinbase amount must be %d", chainerr.ErrCoinbaseInvalid, CoinbaseAmount)
	}
	if !cryptoutil.IsValidAddress(tx.TxOuts[0].Address) {
		return fmt.Errorf("%w: %s", chainerr.ErrAddressInvalid, tx.TxOuts[0].Address)
	}
	id, err := computeTransactionID(tx)
	if err != nil {
		return err
	}
	if id != tx.ID {
		return fmt.Errorf("%w: got %s want %s", chainerr.ErrTransactionIDMismatch, tx.ID, id)
	}
	return nil
}

// ValidateBlockTransactions validates transactions[0] as the coinbase,
// rejects duplicate inputs across the block, and validates every other
// transaction against utxos.
func ValidateBlockTransactions(transactions []Transaction, utxos UTXOSet, blockIndex uint64) error {
	if len(transactions) == 0 {
		return fmt.Errorf("%w: block has no transactions", chainerr.ErrStructureInvalid)
	}
	if err := ValidateCoinbaseTransaction(transactions[0], blockIndex); err != nil {
		return err
	}

	seen := make(map[UTXOKey]struct{})
	for _, tx := range transactions {
		for _, in := range tx.TxIns {
			if in.TxOutID == "" && in.Signature == "" {
				// coinbase input: not a UTXO reference, no collision check.
				continue
			}
			key := UTXOKey{TxOutID: in.TxOutID, TxOutIndex: in.TxOutIndex}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%w: %s:%d", chainerr.ErrDuplicateInputs, in.TxOutID, in.TxOutIndex)
			}
			seen[key] = struct{}{}
		}
	}

	for _, tx := range transactions[1:] {
		if err := ValidateTransaction(tx, utxos); err != nil {
			return err
		}
	}
	return nil
}

// ProcessTransactions folds a block's transactions over utxos, producing
// the post-block UTXO set: consumed inputs removed, new outputs added.
func ProcessTransactions(transactions []Transaction, utxos UTXOSet, blockIndex uint64) (UTXOSet, error) {
	if err := ValidateBlockTransactions(transactions, utxos, blockIndex); err != nil {
		return nil, err
	}
	next := utxos.Clone()
	for _, tx := range transactions {
		for _, in := range tx.TxIns {
			if in.TxOutID == "" {
				continue // coinbase: nothing consumed
			}
			delete(next, UTXOKey{TxOutID: in.TxOutID, TxOutIndex: in.TxOutIndex})
		}
		for idx, out := range tx.TxOuts {
			key := UTXOKey{TxOutID: tx.ID, TxOutIndex: uint32(idx)}
			next[key] = UTXO{TxOutID: tx.ID, TxOutIndex: uint32(idx), Address: out.Address, Amount: out.Amount}
		}
	}
	return next, nil
}
