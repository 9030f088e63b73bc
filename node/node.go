package node

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"powchain/api"
	"powchain/blockchain"
	"powchain/blockchain/processing"
	"powchain/blockchain/store"
	"powchain/consensus"
	"powchain/metrics"
	"powchain/p2p"
)

// FullNode wires the ledger, the miner, consensus, the peer registry and the
// HTTP API together. It is the Service behind every API handler.
type FullNode struct {
	config Config
	log    *zap.Logger

	// Core blockchain state and its persistence
	store  store.ChainStore
	ledger *blockchain.Ledger
	miner  *processing.Miner

	// Peers and consensus
	registry  *p2p.Registry
	client    *p2p.Client
	resolver  *consensus.Resolver
	discovery *p2p.Discovery

	metrics  *metrics.Metrics
	gatherer *prometheus.Registry
	server   *api.Server
}

// NewFullNode builds a node from config. A stored chain is restored and
// validated; an empty store is seeded with the genesis block.
func NewFullNode(config Config, log *zap.Logger) (*FullNode, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if config.NodeID == "" {
		config.NodeID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	log = log.With(zap.String("node", config.NodeID))

	hasher, err := blockchain.NewHasher(blockchain.HashAlgorithm(config.Mining.Hash))
	if err != nil {
		return nil, err
	}
	pow, err := blockchain.NewProofOfWork(config.Mining.Difficulty,
		blockchain.WithWorkers(config.Mining.Workers),
		blockchain.WithChunkSize(config.Mining.ChunkSize),
		blockchain.WithPowHasher(hasher),
	)
	if err != nil {
		return nil, err
	}

	chainStore, err := store.Open(store.Backend(config.Storage.Backend), config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", config.Storage.Backend, err)
	}

	n := &FullNode{
		config:   config,
		log:      log,
		store:    chainStore,
		registry: p2p.NewRegistry(config.Peers.MaxPeers),
		client:   p2p.NewClient(config.Consensus.FetchTimeout, log),
		gatherer: prometheus.NewRegistry(),
	}
	if err := n.init(pow, hasher); err != nil {
		chainStore.Close()
		return nil, err
	}
	return n, nil
}

func (n *FullNode) init(pow *blockchain.ProofOfWork, hasher blockchain.Hasher) error {
	ledger, err := blockchain.NewLedger(
		blockchain.WithProofOfWork(pow),
		blockchain.WithHasher(hasher),
		blockchain.WithPersister(n.store),
		blockchain.WithLogger(n.log),
	)
	if err != nil {
		return err
	}
	n.ledger = ledger

	// 1. Restore or seed the chain
	stored, err := n.store.LoadChain()
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := n.store.ReplaceChain(ledger.Chain()); err != nil {
			return fmt.Errorf("seed genesis block: %w", err)
		}
		n.log.Info("blockchain initialized with genesis block")
	case err != nil:
		return fmt.Errorf("load chain: %w", err)
	default:
		if err := ledger.Restore(stored); err != nil {
			return fmt.Errorf("restore stored chain: %w", err)
		}
	}

	// 2. Mining and consensus
	n.miner = processing.NewMiner(ledger, n.config.NodeID, n.config.Mining.Reward, n.log)
	n.resolver, err = consensus.NewResolver(ledger, n.config.Consensus.RejectedCacheSize, n.log)
	if err != nil {
		return err
	}
	n.discovery = p2p.NewDiscovery(p2p.DiscoveryConfig{
		SeedPeers: n.config.Peers.Seeds,
		Registry:  n.registry,
		Runner:    n,
		Interval:  n.config.Consensus.SyncInterval,
	}, n.log)

	// 3. Metrics and API
	n.gatherer.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	n.metrics, err = metrics.New(n.gatherer)
	if err != nil {
		return err
	}
	n.server = api.NewServer(n.config.API, n, n.gatherer, n.log)
	n.refreshGauges()
	return nil
}

// Start serves the API and begins peer discovery. It returns once the API is
// listening.
func (n *FullNode) Start(ctx context.Context) error {
	if err := n.server.Start(); err != nil {
		return fmt.Errorf("start API: %w", err)
	}
	n.discovery.Start(ctx)
	n.refreshGauges()
	n.log.Info("full node started",
		zap.String("api", n.server.Addr()),
		zap.Int("height", n.ledger.Length()),
		zap.Int("peers", n.registry.Len()),
	)
	return nil
}

// Stop gracefully shuts down the FullNode
func (n *FullNode) Stop(ctx context.Context) error {
	n.log.Info("stopping full node")
	n.discovery.Stop()
	err := n.server.Shutdown(ctx)
	n.client.Close()
	return errors.Join(err, n.store.Close())
}

// Addr is the address the API listens on
func (n *FullNode) Addr() string { return n.server.Addr() }

func (n *FullNode) NodeID() string { return n.config.NodeID }

func (n *FullNode) Ledger() *blockchain.Ledger { return n.ledger }

// SubmitTransaction queues a transfer and returns the index of the block
// expected to hold it
func (n *FullNode) SubmitTransaction(sender, recipient string, amount uint64) (uint64, error) {
	index, err := n.ledger.SubmitTransaction(blockchain.Transaction{
		Amount:    amount,
		Recipient: recipient,
		Sender:    sender,
	})
	if err != nil {
		return 0, err
	}
	n.refreshGauges()
	return index, nil
}

// MineNextBlock mines one block holding all pending transactions and the
// node's reward
func (n *FullNode) MineNextBlock(ctx context.Context) (*blockchain.Block, error) {
	block, stats, err := n.miner.MineNextBlock(ctx)
	if stats.Stale > 0 {
		n.metrics.StaleProofs.Add(float64(stats.Stale))
	}
	if err != nil {
		return nil, err
	}
	n.metrics.ObserveMined(stats.Duration, 0)
	n.refreshGauges()
	return block, nil
}

func (n *FullNode) Chain() []*blockchain.Block { return n.ledger.Chain() }

func (n *FullNode) LastBlock() (*blockchain.Block, error) { return n.ledger.LastBlock() }

func (n *FullNode) BlockByHash(digest string) (*blockchain.Block, bool) {
	return n.ledger.BlockByHash(digest)
}

func (n *FullNode) Pending() []blockchain.Transaction { return n.ledger.Pending() }

func (n *FullNode) RegisterPeer(address string) (bool, error) {
	added, err := n.registry.Register(address)
	if err != nil {
		return false, err
	}
	if added {
		n.log.Info("registered peer", zap.String("peer", address))
		n.refreshGauges()
	}
	return added, nil
}

func (n *FullNode) Peers() []p2p.Peer { return n.registry.List() }

// ResolveCandidates runs one consensus round over explicitly supplied chains
func (n *FullNode) ResolveCandidates(chains [][]*blockchain.Block) (consensus.Result, error) {
	candidates := make([]consensus.Candidate, len(chains))
	for i, chain := range chains {
		candidates[i] = consensus.Candidate{Peer: fmt.Sprintf("candidate-%d", i), Chain: chain}
	}
	return n.resolve(candidates, 0)
}

// ResolveConsensus fetches the chain of every registered peer and runs one
// consensus round. Unreachable peers contribute no candidate.
func (n *FullNode) ResolveConsensus(ctx context.Context) (consensus.Result, error) {
	candidates, failures := n.client.FetchChains(ctx, n.registry.List())
	for _, c := range candidates {
		n.registry.Observe(c.Peer, nil)
	}
	for _, err := range failures {
		var unreachable *p2p.UnreachablePeerError
		if errors.As(err, &unreachable) {
			n.registry.Observe(unreachable.Address, err)
		}
	}
	return n.resolve(candidates, len(failures))
}

func (n *FullNode) resolve(candidates []consensus.Candidate, failedPeers int) (consensus.Result, error) {
	result, err := n.resolver.Resolve(candidates)
	outcome := result.State.String()
	if err != nil {
		outcome = "error"
	}
	n.metrics.ObserveRound(outcome, failedPeers)
	n.refreshGauges()
	return result, err
}

func (n *FullNode) refreshGauges() {
	n.metrics.SetState(n.ledger.Length(), len(n.ledger.Pending()), n.registry.Len())
}
