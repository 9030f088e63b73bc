package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"powchain/blockchain"
	"powchain/mocks"
)

func chainServer(t *testing.T, chain []*blockchain.Block) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ChainResponse{Chain: chain, Length: len(chain)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func peerFor(t *testing.T, rawURL string) Peer {
	t.Helper()
	r := NewRegistry(0)
	_, err := r.Register(rawURL)
	require.NoError(t, err)
	return r.List()[0]
}

func TestFetchChain(t *testing.T) {
	chain := mocks.BuildChain(t, 3)
	srv := chainServer(t, chain)

	c := NewClient(time.Second, nil)
	defer c.Close()

	resp, err := c.FetchChain(context.Background(), peerFor(t, srv.URL))
	require.NoError(t, err)
	require.Equal(t, 3, resp.Length)
	require.Len(t, resp.Chain, 3)
	require.Equal(t, blockchain.HashBlock(chain[2]), blockchain.HashBlock(resp.Chain[2]))
}

func TestFetchChainsAbsorbsFailures(t *testing.T) {
	short := chainServer(t, mocks.BuildChain(t, 2))
	long := chainServer(t, mocks.BuildChain(t, 4))

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer garbage.Close()

	gone := httptest.NewServer(http.NotFoundHandler())
	goneURL := gone.URL
	gone.Close()

	c := NewClient(time.Second, nil)
	defer c.Close()

	peers := []Peer{
		peerFor(t, long.URL),
		peerFor(t, broken.URL),
		peerFor(t, goneURL),
		peerFor(t, short.URL),
		peerFor(t, garbage.URL),
	}
	candidates, failures := c.FetchChains(context.Background(), peers)

	require.Len(t, candidates, 2)
	require.Equal(t, peers[0].Address, candidates[0].Peer)
	require.Len(t, candidates[0].Chain, 4)
	require.Equal(t, peers[3].Address, candidates[1].Peer)
	require.Len(t, candidates[1].Chain, 2)

	require.Len(t, failures, 3)
	for _, err := range failures {
		var unreachable *UnreachablePeerError
		require.True(t, errors.As(err, &unreachable))
		require.NotEmpty(t, unreachable.Address)
	}
}

func TestFetchChainTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	c := NewClient(50*time.Millisecond, nil)
	defer c.Close()

	_, err := c.FetchChain(context.Background(), peerFor(t, slow.URL))
	var unreachable *UnreachablePeerError
	require.ErrorAs(t, err, &unreachable)
}
