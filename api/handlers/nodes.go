package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"powchain/consensus"
	"powchain/p2p"
)

// HandleRegisterNodes adds peers. Every address is checked before any is
// registered so a bad entry leaves the registry unchanged.
func HandleRegisterNodes(w http.ResponseWriter, r *http.Request, svc Service) {
	var req p2p.RegisterNodesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Nodes) == 0 {
		http.Error(w, "Error: Please supply a valid list of nodes", http.StatusBadRequest)
		return
	}
	for _, node := range req.Nodes {
		if _, _, err := p2p.NormalizeAddress(node); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	added := 0
	for _, node := range req.Nodes {
		ok, err := svc.RegisterPeer(node)
		if errors.Is(err, p2p.ErrRegistryFull) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to register %s: %v", node, err), http.StatusBadRequest)
			return
		}
		if ok {
			added++
		}
	}

	peers := svc.Peers()
	total := make([]string, len(peers))
	for i, p := range peers {
		total[i] = p.Address
	}
	writeJSON(w, http.StatusCreated, p2p.RegisterNodesResponse{
		Message:    "New nodes have been added",
		TotalNodes: total,
		Added:      added,
	})
}

func HandleListNodes(w http.ResponseWriter, r *http.Request, svc Service) {
	writeJSON(w, http.StatusOK, p2p.NodesResponse{Nodes: svc.Peers()})
}

// HandleResolve runs a consensus round against the registered peers
func HandleResolve(w http.ResponseWriter, r *http.Request, svc Service) {
	result, err := svc.ResolveConsensus(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Consensus failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse(result, svc))
}

// HandleResolveCandidates runs a consensus round over chains given in the body
func HandleResolveCandidates(w http.ResponseWriter, r *http.Request, svc Service) {
	var req p2p.ResolveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	chains, err := req.Candidates()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := svc.ResolveCandidates(chains)
	if err != nil {
		http.Error(w, fmt.Sprintf("Consensus failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse(result, svc))
}

func resolveResponse(result consensus.Result, svc Service) p2p.ResolveResponse {
	message := "Our chain is authoritative"
	if result.Replaced {
		message = "Our chain was replaced"
	}
	chain := svc.Chain()
	return p2p.ResolveResponse{
		Message:  message,
		Replaced: result.Replaced,
		State:    result.State.String(),
		Chain:    chain,
		Length:   len(chain),
		Rejected: result.Rejected,
	}
}
