// Package chainerr defines the sentinel error kinds shared by the chain,
// transaction, mempool and gossip packages. Peer-sourced failures are
// always one of these; callers distinguish them with errors.Is.
package chainerr

import "errors"

var (
	ErrStructureInvalid    = errors.New("structure invalid")
	ErrIndexMismatch       = errors.New("index mismatch")
	ErrPrevHashMismatch    = errors.New("previous hash mismatch")
	ErrTimestampOutOfRange = errors.New("timestamp out of range")
	ErrHashMismatch        = errors.New("hash mismatch")
	ErrDifficultyNotMet    = errors.New("difficulty not met")
	ErrTransactionIDMismatch = errors.New("transaction id mismatch")
	ErrSignatureInvalid    = errors.New("signature invalid")
	ErrUtxoMissing         = errors.New("utxo missing")
	ErrAmountsUnbalanced   = errors.New("amounts unbalanced")
	ErrCoinbaseInvalid     = errors.New("coinbase invalid")
	ErrDuplicateInputs     = errors.New("duplicate inputs in block")
	ErrConflictInMempool   = errors.New("conflict in mempool")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAddressInvalid      = errors.New("address invalid")
	ErrTransportError      = errors.New("transport error")
	ErrParseError          = errors.New("parse error")
	ErrNoBlock             = errors.New("no block produced")
	ErrChainKept           = errors.New("candidate chain kept current")
	ErrNotFound            = errors.New("not found")
)
