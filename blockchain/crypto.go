package blockchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// HashAlgorithm names the digest function used for block links and proofs.
// Every node of a network must use the same one.
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
	BLAKE3 HashAlgorithm = "blake3"
)

// Hasher computes hex digests. The zero value uses SHA-256.
type Hasher struct {
	algo HashAlgorithm
}

func NewHasher(algo HashAlgorithm) (Hasher, error) {
	switch HashAlgorithm(strings.ToLower(string(algo))) {
	case "", SHA256:
		return Hasher{algo: SHA256}, nil
	case BLAKE3:
		return Hasher{algo: BLAKE3}, nil
	default:
		return Hasher{}, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

func (h Hasher) Algorithm() HashAlgorithm {
	if h.algo == "" {
		return SHA256
	}
	return h.algo
}

// Sum returns the lowercase hex digest of data
func (h Hasher) Sum(data []byte) string {
	var sum [32]byte
	switch h.algo {
	case BLAKE3:
		sum = blake3.Sum256(data)
	default:
		sum = sha256.Sum256(data)
	}
	return hex.EncodeToString(sum[:])
}

// HashBlock digests the canonical encoding of a block
func (h Hasher) HashBlock(block *Block) string {
	return h.Sum(EncodeBlock(block))
}

// HashBlock digests a block with the default SHA-256 hasher
func HashBlock(block *Block) string {
	return Hasher{}.HashBlock(block)
}

// EncodeBlock returns the canonical byte form of a block: JSON with keys in
// sorted order (fixed by the struct declarations) and an empty transaction
// list encoded as [] rather than null. Stores persist exactly these bytes.
func EncodeBlock(block *Block) []byte {
	if block == nil {
		return []byte("null")
	}
	c := *block
	if c.Transactions == nil {
		c.Transactions = []Transaction{}
	}
	// cannot fail: the schema holds only strings and integers
	data, _ := json.Marshal(&c)
	return data
}

func DecodeBlock(data []byte) (*Block, error) {
	var block Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	if block.Transactions == nil {
		block.Transactions = []Transaction{}
	}
	return &block, nil
}

// EncodeChain encodes blocks in append order
func EncodeChain(chain []*Block) []byte {
	parts := make([]json.RawMessage, len(chain))
	for i, b := range chain {
		parts[i] = EncodeBlock(b)
	}
	data, _ := json.Marshal(parts)
	return data
}

func DecodeChain(data []byte) ([]*Block, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	chain := make([]*Block, 0, len(raw))
	for i, r := range raw {
		b, err := DecodeBlock(r)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		chain = append(chain, b)
	}
	return chain, nil
}
