package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"powchain/blockchain"
	"powchain/consensus"
	"powchain/p2p"
)

// Service is what the HTTP handlers need from a node
type Service interface {
	NodeID() string
	SubmitTransaction(sender, recipient string, amount uint64) (uint64, error)
	MineNextBlock(ctx context.Context) (*blockchain.Block, error)
	Chain() []*blockchain.Block
	LastBlock() (*blockchain.Block, error)
	BlockByHash(digest string) (*blockchain.Block, bool)
	Pending() []blockchain.Transaction
	RegisterPeer(address string) (bool, error)
	Peers() []p2p.Peer
	ResolveConsensus(ctx context.Context) (consensus.Result, error)
	ResolveCandidates(chains [][]*blockchain.Block) (consensus.Result, error)
}

// maxBodyBytes bounds request bodies; explicit candidate chains can be large
const maxBodyBytes = 64 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		http.Error(w, "Invalid JSON format", http.StatusBadRequest)
		return false
	}
	return true
}
