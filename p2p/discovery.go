package p2p

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"powchain/consensus"
)

const DefaultSyncInterval = 30 * time.Second

// ConsensusRunner runs one resolution round against the registered peers
type ConsensusRunner interface {
	ResolveConsensus(ctx context.Context) (consensus.Result, error)
}

// DiscoveryConfig holds configuration for peer discovery
type DiscoveryConfig struct {
	SeedPeers []string
	Registry  *Registry
	Runner    ConsensusRunner
	Interval  time.Duration // zero disables the periodic round
}

// Discovery registers the seed peers and periodically reconciles with every
// known peer
type Discovery struct {
	config DiscoveryConfig
	log    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDiscovery(config DiscoveryConfig, log *zap.Logger) *Discovery {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discovery{
		config: config,
		log:    log.With(zap.String("component", "discovery")),
	}
}

// Start registers the seeds and begins the sync loop
func (d *Discovery) Start(ctx context.Context) {
	d.log.Info("starting peer discovery", zap.Int("seeds", len(d.config.SeedPeers)))
	d.registerSeeds()

	if d.config.Interval <= 0 {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.periodicSync(ctx)
	}()
}

// Stop ends the sync loop and waits for an in-flight round
func (d *Discovery) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

func (d *Discovery) registerSeeds() {
	for _, seed := range d.config.SeedPeers {
		if _, err := d.config.Registry.Register(seed); err != nil {
			d.log.Warn("ignoring seed peer", zap.String("seed", seed), zap.Error(err))
		}
	}
}

func (d *Discovery) periodicSync(ctx context.Context) {
	ticker := time.NewTicker(d.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if d.config.Registry.Len() == 0 {
			continue
		}
		result, err := d.config.Runner.ResolveConsensus(ctx)
		if err != nil {
			if ctx.Err() == nil {
				d.log.Warn("periodic consensus round failed", zap.Error(err))
			}
			continue
		}
		d.log.Debug("periodic consensus round",
			zap.Stringer("state", result.State),
			zap.Int("length", result.ChainLength),
			zap.Int("rejected", result.Rejected),
		)
	}
}
