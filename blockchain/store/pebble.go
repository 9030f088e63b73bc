package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"powchain/blockchain"
)

// PebbleStore uses the same key layout as LevelDBStore
type PebbleStore struct {
	db *pebble.DB
	mu sync.Mutex
}

func OpenPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// the value is only valid until closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *PebbleStore) heightLocked() (uint64, error) {
	b, err := s.get(heightKey)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeHeight(b)
}

func (s *PebbleStore) AppendBlock(block *blockchain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.heightLocked()
	if err != nil {
		return err
	}
	if err := checkAppend(height, block); err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(blockKey(block.Index), blockchain.EncodeBlock(block), nil); err != nil {
		return err
	}
	if err := batch.Set(heightKey, encodeHeight(block.Index), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (s *PebbleStore) ReplaceChain(chain []*blockchain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.heightLocked()
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()
	for i := uint64(len(chain)) + 1; i <= height; i++ {
		if err := batch.Delete(blockKey(i), nil); err != nil {
			return err
		}
	}
	for i, b := range chain {
		if err := batch.Set(blockKey(uint64(i)+1), blockchain.EncodeBlock(b), nil); err != nil {
			return err
		}
	}
	if err := batch.Set(heightKey, encodeHeight(uint64(len(chain))), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (s *PebbleStore) LoadChain() ([]*blockchain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.heightLocked()
	if err != nil {
		return nil, err
	}
	if height == 0 {
		return nil, ErrNotFound
	}

	chain := make([]*blockchain.Block, 0, height)
	for i := uint64(1); i <= height; i++ {
		data, err := s.get(blockKey(i))
		if err != nil {
			return nil, fmt.Errorf("read block %d: %w", i, err)
		}
		b, err := blockchain.DecodeBlock(data)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b)
	}
	return chain, nil
}

func (s *PebbleStore) Height() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heightLocked()
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
