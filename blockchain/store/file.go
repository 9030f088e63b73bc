package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"

	"powchain/blockchain"
)

// FileStore keeps the whole chain as one JSON array file, rewritten
// atomically on every change.
type FileStore struct {
	path  string
	mu    sync.Mutex
	chain []*blockchain.Block
}

func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	fs := &FileStore{path: path}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fs, nil
	case err != nil:
		return nil, fmt.Errorf("read chain file: %w", err)
	}

	chain, err := blockchain.DecodeChain(data)
	if err != nil {
		return nil, err
	}
	fs.chain = chain
	return fs, nil
}

func (f *FileStore) AppendBlock(block *blockchain.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := checkAppend(uint64(len(f.chain)), block); err != nil {
		return err
	}
	next := append(blockchain.CloneChain(f.chain), block.Clone())
	if err := f.writeLocked(next); err != nil {
		return err
	}
	f.chain = next
	return nil
}

func (f *FileStore) ReplaceChain(chain []*blockchain.Block) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := blockchain.CloneChain(chain)
	if err := f.writeLocked(next); err != nil {
		return err
	}
	f.chain = next
	return nil
}

func (f *FileStore) writeLocked(chain []*blockchain.Block) error {
	if err := renameio.WriteFile(f.path, blockchain.EncodeChain(chain), 0o600); err != nil {
		return fmt.Errorf("write chain file: %w", err)
	}
	return nil
}

func (f *FileStore) LoadChain() ([]*blockchain.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.chain) == 0 {
		return nil, ErrNotFound
	}
	return blockchain.CloneChain(f.chain), nil
}

func (f *FileStore) Height() (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.chain)), nil
}

func (f *FileStore) Close() error { return nil }
