package blockchain

// Blockchain is the chain engine: it owns the authoritative chain
// sequence and UTXO set, validates and appends blocks, retargets
// difficulty, and resolves forks by cumulative work (spec.md §4.1).

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"nanochain/internal/chainerr"
)

const (
	// BlockGenerationInterval is the target seconds between blocks.
	BlockGenerationInterval = 10
	// DifficultyAdjustmentInterval is how many blocks between retargets.
	DifficultyAdjustmentInterval = 10
	// timestampToleranceSeconds bounds how far a block's timestamp may
	// drift from its predecessor and from wall-clock "now".
	timestampToleranceSeconds = 60
)

// Broadcaster lets the chain engine announce a new head without
// depending on the gossip package directly — spec.md §9 resolves the
// chain↔gossip cycle by injecting this capability at construction.
type Broadcaster interface {
	BroadcastLatest(Block)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastLatest(Block) {}

// Blockchain serializes every mutation of chain/UTXO state behind mu —
// the single mutation lane spec.md §5 requires.
type Blockchain struct {
	mu          sync.RWMutex
	chain       []Block
	utxos       UTXOSet
	mempool     *Mempool
	broadcaster Broadcaster
	logger      *zap.Logger

	miningMu     sync.Mutex
	miningCancel context.CancelFunc
}

// NewBlockchain builds a chain seeded with the fixed genesis block.
func NewBlockchain(mempool *Mempool, broadcaster Broadcaster, logger *zap.Logger) (*Blockchain, error) {
	genesis, err := NewGenesis()
	if err != nil {
		return nil, err
	}
	utxos, err := ProcessTransactions(genesis.Data, NewUTXOSet(), genesis.Index)
	if err != nil {
		return nil, fmt.Errorf("processing genesis: %w", err)
	}
	if broadcaster == nil {
		broadcaster = noopBroadcaster{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if mempool == nil {
		mempool = NewMempool()
	}
	return &Blockchain{
		chain:       []Block{genesis},
		utxos:       utxos,
		mempool:     mempool,
		broadcaster: broadcaster,
		logger:      logger,
	}, nil
}

// Latest returns the head block.
func (bc *Blockchain) Latest() Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.chain[len(bc.chain)-1]
}

// Chain returns a defensive copy of the full chain.
func (bc *Blockchain) Chain() []Block {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	out := make([]Block, len(bc.chain))
	copy(out, bc.chain)
	return out
}

// UTXOs returns a defensive copy of the authoritative UTXO set.
func (bc *Blockchain) UTXOs() UTXOSet {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.utxos.Clone()
}

// Mempool exposes the chain's mempool so the node facade and gossip
// handlers can validate/admit transactions against a consistent view.
func (bc *Blockchain) Mempool() *Mempool {
	return bc.mempool
}

// nextDifficulty returns the difficulty the block that would follow
// examined (examined[len-1] is treated as "latest") must satisfy,
// retargeting every DifficultyAdjustmentInterval blocks. It always
// indexes into examined itself, never any other chain (spec.md §9,
// open question 4).
func nextDifficulty(examined []Block) uint32 {
	latest := examined[len(examined)-1]
	if latest.Index == 0 || latest.Index%DifficultyAdjustmentInterval != 0 {
		return latest.Difficulty
	}
	prevAdjustment := examined[latest.Index-DifficultyAdjustmentInterval]
	expected := int64(BlockGenerationInterval * DifficultyAdjustmentInterval)
	taken := latest.Timestamp - prevAdjustment.Timestamp
	switch {
	case taken < expected/2:
		return prevAdjustment.Difficulty + 1
	case taken > expected*2:
		if prevAdjustment.Difficulty == 0 {
			return 0
		}
		return prevAdjustment.Difficulty - 1
	default:
		return prevAdjustment.Difficulty
	}
}

// isValidTimestamp guards against trivially forged future or reordered
// blocks: predecessor.Timestamp - 60 < n.Timestamp < now + 60.
func isValidTimestamp(n, predecessor Block, now int64) bool {
	return predecessor.Timestamp-timestampToleranceSeconds < n.Timestamp &&
		n.Timestamp-timestampToleranceSeconds < now
}

// isValidNewBlock checks n against its claimed predecessor p, per
// spec.md §4.1: index/prevHash linkage, timestamp tolerance, recomputed
// hash, and proof of work.
func isValidNewBlock(n, p Block) error {
	if n.Index != p.Index+1 {
		return fmt.Errorf("%w: want index %d got %d", chainerr.ErrIndexMismatch, p.Index+1, n.Index)
	}
	if n.PreviousHash != p.Hash {
		return fmt.Errorf("%w: want %s got %s", chainerr.ErrPrevHashMismatch, p.Hash, n.PreviousHash)
	}
	if !isValidTimestamp(n, p, time.Now().Unix()) {
		return fmt.Errorf("%w: timestamp %d", chainerr.ErrTimestampOutOfRange, n.Timestamp)
	}
	if !n.hashMatchesContent() {
		return fmt.Errorf("%w: block %d", chainerr.ErrHashMismatch, n.Index)
	}
	if !n.hasRequiredWork() {
		return fmt.Errorf("%w: block %d needs %d leading zero bits", chainerr.ErrDifficultyNotMet, n.Index, n.Difficulty)
	}
	return nil
}

// isValidChain folds ProcessTransactions over cs from an empty UTXO set,
// enforcing isValidNewBlock and the retargeted difficulty at every step.
// cs[0] must equal the fixed genesis block exactly.
func isValidChain(cs []Block) (UTXOSet, error) {
	if len(cs) == 0 {
		return nil, fmt.Errorf("%w: empty candidate chain", chainerr.ErrStructureInvalid)
	}
	genesis, err := NewGenesis()
	if err != nil {
		return nil, err
	}
	if cs[0].Hash != genesis.Hash || !cs[0].hashMatchesContent() {
		return nil, fmt.Errorf("%w: genesis mismatch", chainerr.ErrStructureInvalid)
	}

	utxos, err := ProcessTransactions(cs[0].Data, NewUTXOSet(), cs[0].Index)
	if err != nil {
		return nil, err
	}

	for i := 1; i < len(cs); i++ {
		if err := isValidNewBlock(cs[i], cs[i-1]); err != nil {
			return nil, err
		}
		wantDifficulty := nextDifficulty(cs[:i])
		if cs[i].Difficulty != wantDifficulty {
			return nil, fmt.Errorf("%w: block %d wants difficulty %d got %d", chainerr.ErrDifficultyNotMet, cs[i].Index, wantDifficulty, cs[i].Difficulty)
		}
		utxos, err = ProcessTransactions(cs[i].Data, utxos, cs[i].Index)
		if err != nil {
			return nil, err
		}
	}
	return utxos, nil
}

// cumulativeWork returns Σ 2^difficulty over cs, the fork-choice metric.
func cumulativeWork(cs []Block) *big.Int {
	total := new(big.Int)
	pow := new(big.Int)
	for _, b := range cs {
		pow.Lsh(big.NewInt(1), uint(b.Difficulty))
		total.Add(total, pow)
	}
	return total
}

// cancelInFlightMining aborts any mining attempt currently in progress
// so at most one accepted block per head is ever produced.
func (bc *Blockchain) cancelInFlightMining() {
	bc.miningMu.Lock()
	defer bc.miningMu.Unlock()
	if bc.miningCancel != nil {
		bc.miningCancel()
		bc.miningCancel = nil
	}
}

// AcceptBlock validates b against the current head and, if valid,
// appends it, commits the new UTXO set, reconciles the mempool and
// broadcasts the new latest.
func (bc *Blockchain) AcceptBlock(b Block) error {
	bc.mu.Lock()
	latest := bc.chain[len(bc.chain)-1]
	if err := isValidNewBlock(b, latest); err != nil {
		bc.mu.Unlock()
		return err
	}
	wantDifficulty := nextDifficulty(bc.chain)
	if b.Difficulty != wantDifficulty {
		bc.mu.Unlock()
		return fmt.Errorf("%w: block %d wants difficulty %d got %d", chainerr.ErrDifficultyNotMet, b.Index, wantDifficulty, b.Difficulty)
	}
	nextUtxos, err := ProcessTransactions(b.Data, bc.utxos, b.Index)
	if err != nil {
		bc.mu.Unlock()
		return err
	}
	bc.chain = append(bc.chain, b)
	bc.utxos = nextUtxos
	bc.mu.Unlock()

	bc.cancelInFlightMining()
	bc.mempool.Reconcile(nextUtxos)
	bc.mempool.RemoveIncluded(b.Data)
	bc.logger.Info("block accepted", zap.Uint64("index", b.Index), zap.String("hash", b.Hash))
	bc.broadcaster.BroadcastLatest(b)
	return nil
}

// ReplaceChain is the fork-choice entry point. It replaces the local
// chain with candidate iff candidate is valid and its cumulative work
// strictly exceeds the current chain's.
func (bc *Blockchain) ReplaceChain(candidate []Block) (bool, error) {
	utxos, err := isValidChain(candidate)
	if err != nil {
		return false, err
	}

	bc.mu.Lock()
	currentWork := cumulativeWork(bc.chain)
	candidateWork := cumulativeWork(candidate)
	if candidateWork.Cmp(currentWork) <= 0 {
		bc.mu.Unlock()
		return false, chainerr.ErrChainKept
	}
	bc.chain = append([]Block(nil), candidate...)
	bc.utxos = utxos
	newHead := bc.chain[len(bc.chain)-1]
	bc.mu.Unlock()

	bc.cancelInFlightMining()
	bc.mempool.Reconcile(utxos)
	bc.logger.Info("chain replaced", zap.Uint64("newHeight", newHead.Index), zap.String("hash", newHead.Hash))
	bc.broadcaster.BroadcastLatest(newHead)
	return true, nil
}

// MineWith attempts to mine and append a block carrying data. Mining
// runs off any mutation lock and is cancelable: if a better head is
// adopted mid-search, ctx is cancelled and the attempt abandoned.
func (bc *Blockchain) MineWith(ctx context.Context, data []Transaction) (Block, error) {
	bc.mu.RLock()
	latest := bc.chain[len(bc.chain)-1]
	difficulty := nextDifficulty(bc.chain)
	bc.mu.RUnlock()

	miningCtx, cancel := context.WithCancel(ctx)
	bc.miningMu.Lock()
	if bc.miningCancel != nil {
		bc.miningCancel()
	}
	bc.miningCancel = cancel
	bc.miningMu.Unlock()
	defer cancel()

	index := latest.Index + 1
	timestamp := time.Now().Unix()
	block, err := findBlock(miningCtx, index, latest.Hash, timestamp, data, difficulty)
	if err != nil {
		return Block{}, fmt.Errorf("%w: %v", chainerr.ErrNoBlock, err)
	}

	if err := bc.AcceptBlock(block); err != nil {
		return Block{}, fmt.Errorf("%w: %v", chainerr.ErrNoBlock, err)
	}
	return block, nil
}
