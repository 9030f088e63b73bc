package store

import (
	"errors"
	"fmt"
	"strings"

	"powchain/blockchain"
)

// ErrNotFound is returned when a store holds no chain yet
var ErrNotFound = errors.New("chain not found")

// ChainStore persists the block sequence in append order, each block in the
// canonical encoding used for hashing. It satisfies blockchain.Persister.
type ChainStore interface {
	// Update/Add/Put
	AppendBlock(block *blockchain.Block) error
	ReplaceChain(chain []*blockchain.Block) error

	// Getters
	LoadChain() ([]*blockchain.Block, error)
	Height() (uint64, error)

	Close() error
}

type Backend string

const (
	Memory  Backend = "memory"
	File    Backend = "file"
	LevelDB Backend = "leveldb"
	Pebble  Backend = "pebble"
)

// Open creates a store of the given backend rooted at path. Path is ignored
// for the memory backend.
func Open(backend Backend, path string) (ChainStore, error) {
	switch Backend(strings.ToLower(string(backend))) {
	case Memory, "":
		return NewMemoryChainStore(), nil
	case File:
		return OpenFileStore(path)
	case LevelDB:
		return OpenLevelDBStore(path)
	case Pebble:
		return OpenPebbleStore(path)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", backend)
	}
}

// checkAppend verifies that block extends a chain of the given height
func checkAppend(height uint64, block *blockchain.Block) error {
	if height == 0 && block.Index != 1 {
		return fmt.Errorf("first stored block must have index 1, got %d", block.Index)
	}
	if height > 0 && block.Index != height+1 {
		return fmt.Errorf("block index %d does not extend stored height %d", block.Index, height)
	}
	return nil
}
