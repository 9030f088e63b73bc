package blockchain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyChain is returned when a ledger has no genesis block yet
	ErrEmptyChain = errors.New("chain is empty")

	// ErrMalformedTransaction is returned for transactions missing required fields
	ErrMalformedTransaction = errors.New("malformed transaction")

	// ErrStaleProof is returned when a proof was mined against a block that is no
	// longer the tip of the chain
	ErrStaleProof = errors.New("proof is stale")
)

// ErrInvalidChain is returned when a chain fails linkage or proof validation
type ErrInvalidChain struct {
	Index  uint64
	Reason string
}

func (e ErrInvalidChain) Error() string {
	return fmt.Sprintf("invalid chain at block %d: %s", e.Index, e.Reason)
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedTransaction, reason)
}

func invalidAt(index uint64, format string, args ...any) error {
	return ErrInvalidChain{Index: index, Reason: fmt.Sprintf(format, args...)}
}

// validateChain walks the chain pairwise. An empty chain is trivially valid.
func validateChain(chain []*Block, pow *ProofOfWork, hasher Hasher) error {
	if len(chain) == 0 {
		return nil
	}
	if chain[0] == nil {
		return invalidAt(1, "nil block")
	}
	if !isGenesis(chain[0], hasher) {
		return invalidAt(chain[0].Index, "first block is not genesis")
	}

	for i := 1; i < len(chain); i++ {
		prev, block := chain[i-1], chain[i]
		if block == nil {
			return invalidAt(prev.Index+1, "nil block")
		}
		if err := validateLink(prev, block, pow, hasher); err != nil {
			return err
		}
	}
	return nil
}

func validateLink(prev, block *Block, pow *ProofOfWork, hasher Hasher) error {
	// 1. Index continuity
	if block.Index != prev.Index+1 {
		return invalidAt(block.Index, "index does not follow %d", prev.Index)
	}

	// 2. Previous hash linking
	if want := hasher.HashBlock(prev); block.PreviousHash != want {
		return invalidAt(block.Index, "previous hash %.16s does not match %.16s", block.PreviousHash, want)
	}

	// 3. Proof of work
	if !pow.ValidProof(prev.Proof, block.Proof) {
		return invalidAt(block.Index, "proof %d does not satisfy difficulty %d", block.Proof, pow.Difficulty())
	}

	// 4. Timestamp sanity
	if block.Timestamp < prev.Timestamp {
		return invalidAt(block.Index, "timestamp is not in order")
	}

	// 5. Transaction shape
	for i, tx := range block.Transactions {
		if err := tx.Validate(); err != nil {
			return invalidAt(block.Index, "transaction %d: %v", i, err)
		}
	}
	return nil
}
