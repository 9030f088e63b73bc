package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"powchain/blockchain"
)

// LevelDBStore keeps one key per block, see keys.go for the layout
type LevelDBStore struct {
	db *leveldb.DB
	mu sync.Mutex
}

func OpenLevelDBStore(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

func (s *LevelDBStore) heightLocked() (uint64, error) {
	b, err := s.db.Get(heightKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeHeight(b)
}

func (s *LevelDBStore) AppendBlock(block *blockchain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.heightLocked()
	if err != nil {
		return err
	}
	if err := checkAppend(height, block); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.Index), blockchain.EncodeBlock(block))
	batch.Put(heightKey, encodeHeight(block.Index))
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (s *LevelDBStore) ReplaceChain(chain []*blockchain.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := s.heightLocked()
	if err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	for i := uint64(len(chain)) + 1; i <= height; i++ {
		batch.Delete(blockKey(i))
	}
	for i, b := range chain {
		batch.Put(blockKey(uint64(i)+1), blockchain.EncodeBlock(b))
	}
	batch.Put(heightKey, encodeHeight(uint64(len(chain))))
	return s.db.Write(batch, &opt.WriteOptions{Sync: true})
}

func (s *LevelDBStore) LoadChain() ([]*blockchain.Block, error) {
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
		data, err := s.db.Get(blockKey(i), nil)
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

func (s *LevelDBStore) Height() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heightLocked()
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
