package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"powchain/blockchain"
	"powchain/p2p"
)

// HandleNewTransaction queues a transaction for the next block
func HandleNewTransaction(w http.ResponseWriter, r *http.Request, svc Service) {
	var req p2p.TransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := req.Transaction()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	index, err := svc.SubmitTransaction(tx.Sender, tx.Recipient, tx.Amount)
	if errors.Is(err, blockchain.ErrMalformedTransaction) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to submit transaction: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, p2p.TransactionResponse{
		Message: fmt.Sprintf("Transaction will be added to Block %d", index),
		Index:   index,
	})
}

func HandlePendingTransactions(w http.ResponseWriter, r *http.Request, svc Service) {
	pending := svc.Pending()
	writeJSON(w, http.StatusOK, p2p.PendingResponse{Transactions: pending, Count: len(pending)})
}
