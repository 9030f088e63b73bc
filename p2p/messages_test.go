package p2p

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"powchain/blockchain"
	"powchain/mocks"
)

func TestTransactionRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    blockchain.Transaction
		wantErr string
	}{
		{
			name: "complete",
			body: `{"sender": "A", "recipient": "B", "amount": 5}`,
			want: blockchain.Transaction{Sender: "A", Recipient: "B", Amount: 5},
		},
		{
			name: "zero amount is present",
			body: `{"sender": "A", "recipient": "B", "amount": 0}`,
			want: blockchain.Transaction{Sender: "A", Recipient: "B"},
		},
		{
			name:    "missing amount",
			body:    `{"sender": "A", "recipient": "B"}`,
			wantErr: "missing values: amount",
		},
		{
			name:    "missing everything",
			body:    `{}`,
			wantErr: "missing values: sender, recipient, amount",
		},
		{
			name:    "blank sender",
			body:    `{"sender": "", "recipient": "B", "amount": 1}`,
			wantErr: "missing sender",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req TransactionRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			tx, err := req.Transaction()
			if tt.wantErr != "" {
				require.ErrorIs(t, err, blockchain.ErrMalformedTransaction)
				require.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, tx)
		})
	}
}

func TestResolveRequestCandidates(t *testing.T) {
	chain := mocks.BuildChain(t, 3)
	body, err := json.Marshal(map[string]any{"chains": []any{chain, []any{}}})
	require.NoError(t, err)

	var req ResolveRequest
	require.NoError(t, json.Unmarshal(body, &req))
	candidates, err := req.Candidates()
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Len(t, candidates[0], 3)
	require.Empty(t, candidates[1])
	require.Equal(t, blockchain.HashBlock(chain[2]), blockchain.HashBlock(candidates[0][2]))

	req = ResolveRequest{Chains: []json.RawMessage{json.RawMessage(`"nope"`)}}
	_, err = req.Candidates()
	require.ErrorContains(t, err, "chain 0")
}

func TestNewMineResponse(t *testing.T) {
	chain := mocks.BuildChain(t, 2)
	resp := NewMineResponse(chain[1])
	require.Equal(t, "New Block Forged", resp.Message)
	require.Equal(t, uint64(2), resp.Index)
	require.Equal(t, chain[1].PreviousHash, resp.PreviousHash)
	require.Len(t, resp.Transactions, 1)
}
