package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"powchain/api"
	"powchain/blockchain"
	"powchain/mocks"
	"powchain/node"
	"powchain/p2p"
)

func newTestServer(t *testing.T) (*httptest.Server, *node.FullNode) {
	t.Helper()
	cfg := node.Default()
	cfg.NodeID = "api-test"
	cfg.Mining.Difficulty = mocks.Difficulty
	cfg.Consensus.SyncInterval = 0

	n, err := node.NewFullNode(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { n.Stop(context.Background()) })

	apiCfg := api.DefaultConfig()
	apiCfg.CORSOrigins = []string{"http://explorer.local"}
	server := httptest.NewServer(api.NewServer(apiCfg, n, prometheus.NewRegistry(), nil).Handler())
	t.Cleanup(server.Close)
	return server, n
}

func TestAPIIntegration(t *testing.T) {
	server, n := newTestServer(t)

	getJSON := func(t *testing.T, path string, out any) {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	postJSON := func(t *testing.T, path string, in any) *http.Response {
		t.Helper()
		body, err := json.Marshal(in)
		require.NoError(t, err)
		resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		return resp
	}

	t.Run("GET /chain/height", func(t *testing.T) {
		var resp p2p.HeightResponse
		getJSON(t, "/chain/height", &resp)
		require.Equal(t, 1, resp.Height)
	})

	t.Run("GET /chain/head", func(t *testing.T) {
		var block blockchain.Block
		getJSON(t, "/chain/head", &block)
		require.Equal(t, blockchain.HashBlock(blockchain.NewGenesisBlock()), blockchain.HashBlock(&block))
	})

	t.Run("POST /transactions/new then GET /mine", func(t *testing.T) {
		resp := postJSON(t, "/transactions/new", map[string]any{"sender": "A", "recipient": "B", "amount": 5})
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var pending p2p.PendingResponse
		getJSON(t, "/transactions/pending", &pending)
		require.Equal(t, 1, pending.Count)

		var mined p2p.MineResponse
		getJSON(t, "/mine", &mined)
		require.Equal(t, uint64(2), mined.Index)
		require.Equal(t, []blockchain.Transaction{
			{Sender: "A", Recipient: "B", Amount: 5},
			blockchain.NewRewardTransaction("api-test", 1),
		}, mined.Transactions)
	})

	t.Run("GET /blocks/{hash}", func(t *testing.T) {
		chain := n.Chain()
		var block blockchain.Block
		getJSON(t, "/blocks/"+blockchain.HashBlock(chain[1]), &block)
		require.Equal(t, uint64(2), block.Index)

		resp, err := http.Get(server.URL + "/blocks/" + strings.Repeat("ab", 32))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("POST /nodes/register and GET /nodes", func(t *testing.T) {
		resp := postJSON(t, "/nodes/register", map[string]any{"nodes": []string{"http://127.0.0.1:5001", "127.0.0.1:5001"}})
		var registered p2p.RegisterNodesResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&registered))
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.Equal(t, []string{"127.0.0.1:5001"}, registered.TotalNodes)

		var nodes p2p.NodesResponse
		getJSON(t, "/nodes", &nodes)
		require.Len(t, nodes.Nodes, 1)
	})

	t.Run("POST /nodes/resolve", func(t *testing.T) {
		longer := mocks.BuildChain(t, 5)
		resp := postJSON(t, "/nodes/resolve", map[string]any{"chains": [][]*blockchain.Block{longer}})
		var resolved p2p.ResolveResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&resolved))
		resp.Body.Close()
		require.True(t, resolved.Replaced)
		require.Equal(t, 5, resolved.Length)
		require.Len(t, n.Chain(), 5)
	})

	t.Run("GET /health", func(t *testing.T) {
		var health p2p.HealthResponse
		getJSON(t, "/health", &health)
		require.Equal(t, "ok", health.Status)
		require.Equal(t, "api-test", health.NodeID)
	})

	t.Run("method not allowed", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/transactions/new")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/blocks")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCORS(t *testing.T) {
	server, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/chain", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://explorer.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "http://explorer.local", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://elsewhere.local")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServerStartShutdown(t *testing.T) {
	cfg := api.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"

	n, err := node.NewFullNode(func() node.Config {
		c := node.Default()
		c.Mining.Difficulty = mocks.Difficulty
		return c
	}(), nil)
	require.NoError(t, err)
	defer n.Stop(context.Background())

	s := api.NewServer(cfg, n, nil, nil)
	require.NoError(t, s.Start())

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode, "no gatherer, no metrics route")

	require.NoError(t, s.Shutdown(context.Background()))
}
