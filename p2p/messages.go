package p2p

import (
	"encoding/json"
	"fmt"
	"strings"

	"powchain/blockchain"
)

// ChainResponse is served at GET /chain and fetched from peers
type ChainResponse struct {
	Chain  []*blockchain.Block `json:"chain"`
	Length int                 `json:"length"`
}

// TransactionRequest is the body of POST /transactions/new. Fields are
// pointers so that a missing field can be told apart from a zero value.
type TransactionRequest struct {
	Amount    *uint64 `json:"amount"`
	Recipient *string `json:"recipient"`
	Sender    *string `json:"sender"`
}

// Transaction converts the request, naming every missing field
func (r TransactionRequest) Transaction() (blockchain.Transaction, error) {
	var missing []string
	if r.Sender == nil {
		missing = append(missing, "sender")
	}
	if r.Recipient == nil {
		missing = append(missing, "recipient")
	}
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if len(missing) > 0 {
		return blockchain.Transaction{}, fmt.Errorf("%w: missing values: %s",
			blockchain.ErrMalformedTransaction, strings.Join(missing, ", "))
	}

	tx := blockchain.Transaction{Amount: *r.Amount, Recipient: *r.Recipient, Sender: *r.Sender}
	return tx, tx.Validate()
}

type TransactionResponse struct {
	Message string `json:"message"`
	Index   uint64 `json:"index"`
}

type PendingResponse struct {
	Transactions []blockchain.Transaction `json:"transactions"`
	Count        int                      `json:"count"`
}

type MineResponse struct {
	Message      string                   `json:"message"`
	Index        uint64                   `json:"index"`
	Transactions []blockchain.Transaction `json:"transactions"`
	Proof        uint64                   `json:"proof"`
	PreviousHash string                   `json:"previous_hash"`
	Timestamp    int64                    `json:"timestamp"`
}

// NewMineResponse describes a freshly sealed block
func NewMineResponse(block *blockchain.Block) MineResponse {
	return MineResponse{
		Message:      "New Block Forged",
		Index:        block.Index,
		Transactions: block.Transactions,
		Proof:        block.Proof,
		PreviousHash: block.PreviousHash,
		Timestamp:    block.Timestamp,
	}
}

type HeightResponse struct {
	Height int `json:"height"`
}

type RegisterNodesRequest struct {
	Nodes []string `json:"nodes"`
}

type RegisterNodesResponse struct {
	Message    string   `json:"message"`
	TotalNodes []string `json:"total_nodes"`
	Added      int      `json:"added"`
}

type NodesResponse struct {
	Nodes []Peer `json:"nodes"`
}

// ResolveRequest carries explicit candidate chains for POST /nodes/resolve
type ResolveRequest struct {
	Chains []json.RawMessage `json:"chains"`
}

// Candidates decodes every chain of the request. A chain that does not decode
// is reported by position.
func (r ResolveRequest) Candidates() ([][]*blockchain.Block, error) {
	out := make([][]*blockchain.Block, 0, len(r.Chains))
	for i, raw := range r.Chains {
		chain, err := blockchain.DecodeChain(raw)
		if err != nil {
			return nil, fmt.Errorf("chain %d: %w", i, err)
		}
		out = append(out, chain)
	}
	return out, nil
}

type ResolveResponse struct {
	Message  string              `json:"message"`
	Replaced bool                `json:"replaced"`
	State    string              `json:"state"`
	Chain    []*blockchain.Block `json:"chain"`
	Length   int                 `json:"length"`
	Rejected int                 `json:"rejected"`
}

type HealthResponse struct {
	Status string `json:"status"`
	NodeID string `json:"node_id"`
	Height int    `json:"height"`
	Peers  int    `json:"peers"`
}
