package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"powchain/p2p"
)

// HandleMine mines one block holding every pending transaction plus the
// reward. The search stops if the client goes away.
func HandleMine(w http.ResponseWriter, r *http.Request, svc Service) {
	block, err := svc.MineNextBlock(r.Context())
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		http.Error(w, "Mining cancelled", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Mining failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p2p.NewMineResponse(block))
}
