package blockchain

import "strings"

const (
	// DefaultDifficulty is the number of leading zero hex characters a proof digest needs
	DefaultDifficulty = 4

	// RewardSender marks the mining reward transaction in a block
	RewardSender = "0"

	// DefaultReward is the amount credited to the miner of each block
	DefaultReward = 1
)

// Fields are declared in sorted order so that the JSON encoding of a
// Transaction is canonical without a runtime sort.
type Transaction struct {
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
}

// Validate rejects transactions missing a sender or a recipient.
// Authorization is not checked here.
func (tx Transaction) Validate() error {
	if strings.TrimSpace(tx.Sender) == "" {
		return malformed("missing sender")
	}
	if strings.TrimSpace(tx.Recipient) == "" {
		return malformed("missing recipient")
	}
	return nil
}

// IsReward reports whether tx is a mining reward
func (tx Transaction) IsReward() bool {
	return tx.Sender == RewardSender
}

// NewRewardTransaction credits the miner of a block
func NewRewardTransaction(recipient string, amount uint64) Transaction {
	return Transaction{
		Amount:    amount,
		Recipient: recipient,
		Sender:    RewardSender,
	}
}

// Block fields are declared in sorted order, same as Transaction.
// Timestamp is in unix milliseconds.
type Block struct {
	Index        uint64        `json:"index"`
	PreviousHash string        `json:"previous_hash"`
	Proof        uint64        `json:"proof"`
	Timestamp    int64         `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
}

// Clone returns a deep copy of the block
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	c := *b
	c.Transactions = make([]Transaction, len(b.Transactions))
	copy(c.Transactions, b.Transactions)
	return &c
}

// CloneChain deep copies every block of chain
func CloneChain(chain []*Block) []*Block {
	out := make([]*Block, len(chain))
	for i, b := range chain {
		out[i] = b.Clone()
	}
	return out
}
