package blockchain

// Proof-of-work mining: search nonce space for a hash with enough
// leading zero bits. Interruptible via context so a stale attempt can
// be abandoned the instant a better head is adopted (spec.md §4.1, §5).

import (
	"context"
)

// cancelCheckInterval bounds how many nonces we try between context
// checks, so cancellation latency stays low without paying a context
// check on every single hash attempt.
const cancelCheckInterval = 2048

// findBlock searches nonce = 0, 1, … for the first hash meeting
// difficulty, returning the completed block. It returns ctx.Err() if
// cancelled before a match is found.
func findBlock(ctx context.Context, index uint64, previousHash string, timestamp int64, data []Transaction, difficulty uint32) (Block, error) {
	for nonce := uint64(0); ; nonce++ {
		if nonce%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return Block{}, ctx.Err()
			default:
			}
		}
		hash, err := calcHash(index, previousHash, timestamp, data, difficulty, nonce)
		if err != nil {
			return Block{}, err
		}
		if hashMeetsDifficulty(hash, difficulty) {
			return Block{
				Index:        index,
				PreviousHash: previousHash,
				Timestamp:    timestamp,
				Data:         data,
				Hash:         hash,
				Difficulty:   difficulty,
				Nonce:        nonce,
			}, nil
		}
	}
}
