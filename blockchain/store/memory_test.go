package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"powchain/blockchain"
)

func testChain(t *testing.T) []*blockchain.Block {
	t.Helper()
	genesis := blockchain.NewGenesisBlock()
	second := &blockchain.Block{
		Index:        2,
		PreviousHash: blockchain.HashBlock(genesis),
		Proof:        35293,
		Timestamp:    1000,
		Transactions: []blockchain.Transaction{
			{Sender: "A", Recipient: "B", Amount: 5},
			blockchain.NewRewardTransaction("miner", 1),
		},
	}
	third := &blockchain.Block{
		Index:        3,
		PreviousHash: blockchain.HashBlock(second),
		Proof:        35089,
		Timestamp:    2000,
		Transactions: []blockchain.Transaction{},
	}
	return []*blockchain.Block{genesis, second, third}
}

func openers(t *testing.T) map[string]func() ChainStore {
	dir := t.TempDir()
	return map[string]func() ChainStore{
		"memory": func() ChainStore { return NewMemoryChainStore() },
		"file": func() ChainStore {
			s, err := OpenFileStore(filepath.Join(dir, "file", "chain.json"))
			require.NoError(t, err)
			return s
		},
		"leveldb": func() ChainStore {
			s, err := OpenLevelDBStore(filepath.Join(dir, "leveldb"))
			require.NoError(t, err)
			return s
		},
		"pebble": func() ChainStore {
			s, err := OpenPebbleStore(filepath.Join(dir, "pebble"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestChainStores(t *testing.T) {
	for name, open := range openers(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			// initial state
			height, err := s.Height()
			require.NoError(t, err)
			require.Zero(t, height)
			_, err = s.LoadChain()
			require.ErrorIs(t, err, ErrNotFound)

			chain := testChain(t)

			// seed genesis then append
			require.NoError(t, s.ReplaceChain(chain[:1]))
			require.NoError(t, s.AppendBlock(chain[1]))
			require.NoError(t, s.AppendBlock(chain[2]))

			height, err = s.Height()
			require.NoError(t, err)
			require.Equal(t, uint64(3), height)

			loaded, err := s.LoadChain()
			require.NoError(t, err)
			require.Len(t, loaded, 3)
			for i := range chain {
				require.Equal(t, blockchain.HashBlock(chain[i]), blockchain.HashBlock(loaded[i]))
			}

			// appending out of order is refused
			require.Error(t, s.AppendBlock(chain[1]))

			// replacing with a shorter chain drops the tail
			require.NoError(t, s.ReplaceChain(chain[:2]))
			loaded, err = s.LoadChain()
			require.NoError(t, err)
			require.Len(t, loaded, 2)
		})
	}
}

func TestStoresSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	chain := testChain(t)

	cases := map[string]func() (ChainStore, error){
		"file":    func() (ChainStore, error) { return OpenFileStore(filepath.Join(dir, "chain.json")) },
		"leveldb": func() (ChainStore, error) { return OpenLevelDBStore(filepath.Join(dir, "leveldb")) },
		"pebble":  func() (ChainStore, error) { return OpenPebbleStore(filepath.Join(dir, "pebble")) },
	}
	for name, open := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := open()
			require.NoError(t, err)
			require.NoError(t, s.ReplaceChain(chain))
			require.NoError(t, s.Close())

			s, err = open()
			require.NoError(t, err)
			defer s.Close()

			loaded, err := s.LoadChain()
			require.NoError(t, err)
			require.Len(t, loaded, len(chain))
			require.Equal(t, blockchain.HashBlock(chain[2]), blockchain.HashBlock(loaded[2]))
		})
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(Memory, "")
	require.NoError(t, err)
	require.IsType(t, &MemoryChainStore{}, s)

	_, err = Open("redis", "")
	require.Error(t, err)
}
