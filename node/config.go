package node

import (
	"errors"
	"fmt"
	"time"

	"powchain/api"
	"powchain/blockchain"
	"powchain/blockchain/store"
	"powchain/consensus"
	"powchain/logging"
	"powchain/p2p"
)

// Config holds all configuration for a full node
type Config struct {
	NodeID    string          `mapstructure:"node_id"` // generated when empty
	API       api.Config      `mapstructure:"api"`
	Mining    MiningConfig    `mapstructure:"mining"`
	Consensus ConsensusConfig `mapstructure:"consensus"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       logging.Config  `mapstructure:"log"`
	Peers     PeersConfig     `mapstructure:"peers"`
}

type MiningConfig struct {
	Difficulty int    `mapstructure:"difficulty"`
	Workers    int    `mapstructure:"workers"` // 0 means one per CPU
	ChunkSize  uint64 `mapstructure:"chunk_size"`
	Reward     uint64 `mapstructure:"reward"`
	Hash       string `mapstructure:"hash"`
}

type ConsensusConfig struct {
	SyncInterval      time.Duration `mapstructure:"sync_interval"` // 0 disables periodic rounds
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	RejectedCacheSize int           `mapstructure:"rejected_cache_size"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

type PeersConfig struct {
	Seeds    []string `mapstructure:"seeds"`
	MaxPeers int      `mapstructure:"max_peers"` // 0 means unbounded
}

func Default() Config {
	return Config{
		API: api.DefaultConfig(),
		Mining: MiningConfig{
			Difficulty: blockchain.DefaultDifficulty,
			ChunkSize:  blockchain.DefaultChunkSize,
			Reward:     blockchain.DefaultReward,
			Hash:       string(blockchain.SHA256),
		},
		Consensus: ConsensusConfig{
			SyncInterval:      p2p.DefaultSyncInterval,
			FetchTimeout:      p2p.DefaultFetchTimeout,
			RejectedCacheSize: consensus.DefaultRejectedCacheSize,
		},
		Storage: StorageConfig{Backend: string(store.Memory)},
		Log:     logging.DefaultConfig(),
		Peers:   PeersConfig{MaxPeers: 64},
	}
}

// Validate reports every problem with the configuration at once
func (c Config) Validate() error {
	var errs []error

	if c.Mining.Difficulty < 1 || c.Mining.Difficulty > blockchain.MaxDifficulty {
		errs = append(errs, fmt.Errorf("mining.difficulty must be between 1 and %d", blockchain.MaxDifficulty))
	}
	if c.Mining.Workers < 0 {
		errs = append(errs, errors.New("mining.workers must not be negative"))
	}
	if _, err := blockchain.NewHasher(blockchain.HashAlgorithm(c.Mining.Hash)); err != nil {
		errs = append(errs, fmt.Errorf("mining.hash: %w", err))
	}

	switch store.Backend(c.Storage.Backend) {
	case store.Memory, "":
	case store.File, store.LevelDB, store.Pebble:
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for the %s backend", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of memory, file, leveldb, pebble", c.Storage.Backend))
	}

	if c.API.ListenAddr == "" {
		errs = append(errs, errors.New("api.listen is required"))
	}
	if c.Consensus.SyncInterval < 0 || c.Consensus.FetchTimeout < 0 {
		errs = append(errs, errors.New("consensus durations must not be negative"))
	}
	if c.Peers.MaxPeers < 0 {
		errs = append(errs, errors.New("peers.max_peers must not be negative"))
	}
	for _, seed := range c.Peers.Seeds {
		if _, _, err := p2p.NormalizeAddress(seed); err != nil {
			errs = append(errs, fmt.Errorf("peers.seeds: %w", err))
		}
	}

	return errors.Join(errs...)
}
