package blockchain

const (
	// GenesisPreviousHash is the sentinel link of the first block
	GenesisPreviousHash = "1"

	// GenesisProof is the well-known proof the first mined block builds on
	GenesisProof = 100
)

// NewGenesisBlock returns the first block of every chain. All of its fields are
// fixed so that independently started nodes agree on its digest.
func NewGenesisBlock() *Block {
	return &Block{
		Index:        1,
		PreviousHash: GenesisPreviousHash,
		Proof:        GenesisProof,
		Timestamp:    0,
		Transactions: []Transaction{},
	}
}

func isGenesis(block *Block, hasher Hasher) bool {
	return hasher.HashBlock(block) == hasher.HashBlock(NewGenesisBlock())
}
