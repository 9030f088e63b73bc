package blockchain

import (
	"time"
)

type BlockCreationParams struct {
	Previous     *Block
	PreviousHash string // digest of Previous; computed when empty
	Proof        uint64
	Transactions []Transaction
	Timestamp    time.Time
}

// ForgeBlock builds the successor of params.Previous. The block's timestamp
// never goes backwards relative to its parent.
func ForgeBlock(params BlockCreationParams, hasher Hasher) *Block {
	prev := params.Previous

	ts := params.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	millis := ts.UnixMilli()
	if millis < prev.Timestamp {
		millis = prev.Timestamp
	}

	prevHash := params.PreviousHash
	if prevHash == "" {
		prevHash = hasher.HashBlock(prev)
	}

	tsxs := params.Transactions
	if tsxs == nil {
		tsxs = []Transaction{}
	}

	return &Block{
		Index:        prev.Index + 1,
		PreviousHash: prevHash,
		Proof:        params.Proof,
		Timestamp:    millis,
		Transactions: tsxs,
	}
}
