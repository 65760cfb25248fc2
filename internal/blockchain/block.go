package blockchain

// Block and its canonical hash pre-image.

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
)

// GenesisPrevHash is the fixed zero previous-hash genesis blocks declare.
const GenesisPrevHash = "0000000000000000000000000000000000000000000000000000000000000000"

// genesisTimestamp and genesisAddress are fixed constants so every node
// boots from byte-identical genesis state. The canonical hash pre-image
// used here (spec.md §6) is pinned to "JSON array of transactions in
// declared field order" rather than the ambiguous default-string-
// conversion the original implementation used (spec.md §9, open
// question 1) — so this genesis block's hash is a self-consistent
// constant for this implementation, not a byte-for-byte match of any
// other implementation's genesis hash.
const (
	genesisTimestamp = 1465154705
	genesisAddress   = "04bfcab8722991ae774db48f934ca79cfb7dd991229153b9f732ba5334aafcd8e7266e47076996b55a14bf9913ee3145ce0cfc1372ada8ada74bd287450313534a"
)

// Block is a single entry in the chain.
type Block struct {
	Index        uint64        `json:"index"`
	PreviousHash string        `json:"previousHash"`
	Timestamp    int64         `json:"timestamp"`
	Data         []Transaction `json:"data"`
	Hash         string        `json:"hash"`
	Difficulty   uint32        `json:"difficulty"`
	Nonce        uint64        `json:"nonce"`
}

// calcHash computes the SHA-256 hex digest of the block's canonical
// pre-image: decimal index, previousHash, decimal timestamp, the JSON
// array of transactions in declared field order, decimal difficulty,
// decimal nonce, all concatenated.
func calcHash(index uint64, previousHash string, timestamp int64, data []Transaction, difficulty uint32, nonce uint64) (string, error) {
	if data == nil {
		data = []Transaction{}
	}
	encodedData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	var buf []byte
	buf = append(buf, strconv.FormatUint(index, 10)...)
	buf = append(buf, previousHash...)
	buf = append(buf, strconv.FormatInt(timestamp, 10)...)
	buf = append(buf, encodedData...)
	buf = append(buf, strconv.FormatUint(uint64(difficulty), 10)...)
	buf = append(buf, strconv.FormatUint(nonce, 10)...)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}

// calcOwnHash recomputes this block's hash from its own header/data fields.
func (b Block) calcOwnHash() (string, error) {
	return calcHash(b.Index, b.PreviousHash, b.Timestamp, b.Data, b.Difficulty, b.Nonce)
}

// hashMatchesContent reports whether b.Hash equals the recomputed hash.
func (b Block) hashMatchesContent() bool {
	h, err := b.calcOwnHash()
	return err == nil && h == b.Hash
}

// hasRequiredWork reports whether b.Hash has at least b.Difficulty
// leading zero bits.
func (b Block) hasRequiredWork() bool {
	return hashMeetsDifficulty(b.Hash, b.Difficulty)
}

// IsHashValid reports whether b.Hash is consistent with b's own header
// and data fields, independent of any chain linkage or proof-of-work
// check. Gossip handlers use this as a cheap first filter on inbound
// blocks before attempting to place them on the chain.
func (b Block) IsHashValid() bool {
	return b.hashMatchesContent()
}

// hashMeetsDifficulty checks that hexHash's binary expansion begins with
// at least difficulty zero bits.
func hashMeetsDifficulty(hexHash string, difficulty uint32) bool {
	need := int(difficulty)
	for _, c := range hexHash {
		var nibble byte
		switch {
		case c >= '0' && c <= '9':
			nibble = byte(c - '0')
		case c >= 'a' && c <= 'f':
			nibble = byte(c-'a') + 10
		case c >= 'A' && c <= 'F':
			nibble = byte(c-'A') + 10
		default:
			return false
		}
		for bit := 3; bit >= 0; bit-- {
			if need <= 0 {
				return true
			}
			if nibble&(1<<uint(bit)) != 0 {
				return false
			}
			need--
		}
	}
	return need <= 0
}

// NewGenesis returns the fixed genesis block: a single coinbase output
// of CoinbaseAmount to a fixed well-known address, at difficulty 0.
func NewGenesis() (Block, error) {
	coinbase, err := NewCoinbase(0, genesisAddress)
	if err != nil {
		return Block{}, err
	}

	b := Block{
		Index:        0,
		PreviousHash: GenesisPrevHash,
		Timestamp:    genesisTimestamp,
		Data:         []Transaction{coinbase},
		Difficulty:   0,
		Nonce:        0,
	}
	hash, err := b.calcOwnHash()
	if err != nil {
		return Block{}, err
	}
	b.Hash = hash
	return b, nil
}
