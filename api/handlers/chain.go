package handlers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"powchain/p2p"
)

func HandleChain(w http.ResponseWriter, r *http.Request, svc Service) {
	chain := svc.Chain()
	writeJSON(w, http.StatusOK, p2p.ChainResponse{Chain: chain, Length: len(chain)})
}

func HandleChainHeight(w http.ResponseWriter, r *http.Request, svc Service) {
	writeJSON(w, http.StatusOK, p2p.HeightResponse{Height: len(svc.Chain())})
}

func HandleChainHead(w http.ResponseWriter, r *http.Request, svc Service) {
	block, err := svc.LastBlock()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get head block: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

// HandleBlockByHash serves /blocks/{hash}
func HandleBlockByHash(w http.ResponseWriter, r *http.Request, svc Service) {
	hash := mux.Vars(r)["hash"]
	if len(hash) != 64 {
		http.Error(w, "Invalid block hash format (must be 64 hex characters)", http.StatusBadRequest)
		return
	}

	block, ok := svc.BlockByHash(hash)
	if !ok {
		http.Error(w, "Block not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, block)
}

func HandleHealth(w http.ResponseWriter, r *http.Request, svc Service) {
	writeJSON(w, http.StatusOK, p2p.HealthResponse{
		Status: "ok",
		NodeID: svc.NodeID(),
		Height: len(svc.Chain()),
		Peers:  len(svc.Peers()),
	})
}
