package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"powchain/blockchain"
)

func TestWriteCurlScripts(t *testing.T) {
	chain, err := prebuiltChain(context.Background(), 2, 2)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	dir := filepath.Join(t.TempDir(), "curl")
	require.NoError(t, writeCurlScripts(dir, "http://localhost:5000", chain))

	for _, name := range []string{"post_transaction_1.sh", "post_transaction_2.sh", "resolve_candidate.sh", "post_all.sh"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.NotZero(t, info.Mode()&0o100, "%s is executable", name)
	}

	resolve, err := os.ReadFile(filepath.Join(dir, "resolve_candidate.sh"))
	require.NoError(t, err)
	require.Contains(t, string(resolve), blockchain.HashBlock(chain[2]))
	require.Contains(t, string(resolve), "http://localhost:5000/nodes/resolve")
}

func TestNodeClientBase(t *testing.T) {
	require.Equal(t, "http://localhost:5000", newNodeClient("localhost:5000/", 0).base)
	require.Equal(t, "https://node:443", newNodeClient("https://node:443", 0).base)
}
