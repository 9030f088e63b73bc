package store

import (
	"sync"

	"powchain/blockchain"
)

type MemoryChainStore struct {
	blocks [][]byte
	mu     sync.RWMutex
}

func NewMemoryChainStore() *MemoryChainStore {
	return &MemoryChainStore{
		blocks: make([][]byte, 0),
	}
}

func (m *MemoryChainStore) AppendBlock(block *blockchain.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkAppend(uint64(len(m.blocks)), block); err != nil {
		return err
	}
	m.blocks = append(m.blocks, blockchain.EncodeBlock(block))
	return nil
}

// ReplaceChain atomically replaces the entire chain
func (m *MemoryChainStore) ReplaceChain(chain []*blockchain.Block) error {
	encoded := make([][]byte, len(chain))
	for i, b := range chain {
		encoded[i] = blockchain.EncodeBlock(b)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = encoded
	return nil
}

func (m *MemoryChainStore) LoadChain() ([]*blockchain.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return nil, ErrNotFound
	}
	chain := make([]*blockchain.Block, 0, len(m.blocks))
	for _, data := range m.blocks {
		b, err := blockchain.DecodeBlock(data)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b)
	}
	return chain, nil
}

func (m *MemoryChainStore) Height() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.blocks)), nil
}

func (m *MemoryChainStore) Close() error { return nil }
