// Package consensus decides which chain a node treats as authoritative.
// A node adopts the longest valid chain it hears about, as long as that chain
// is strictly longer than its own.
package consensus

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"powchain/blockchain"
)

// DefaultRejectedCacheSize bounds the number of remembered invalid candidates
const DefaultRejectedCacheSize = 256

type State int32

const (
	// Stable means the local chain is authoritative
	Stable State = iota
	// Evaluating means a round is checking candidate chains
	Evaluating
	// Replaced means the last round adopted a candidate chain
	Replaced
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case Evaluating:
		return "evaluating"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Candidate is a chain offered by a peer. It is untrusted until validated.
type Candidate struct {
	Peer  string
	Chain []*blockchain.Block
}

// Result reports the outcome of one round
type Result struct {
	Replaced    bool
	ChainLength int
	State       State
	Peer        string // peer whose chain was adopted
	Rejected    int    // candidates that failed validation, including cached ones
}

// ChainAuthority is the part of the ledger the resolver works against
type ChainAuthority interface {
	Length() int
	Hasher() blockchain.Hasher
	ValidateChain(chain []*blockchain.Block) error
	AdoptChain(chain []*blockchain.Block) (bool, error)
}

type Resolver struct {
	mu       sync.Mutex // serializes rounds
	ledger   ChainAuthority
	rejected *lru.Cache
	state    atomic.Int32
	log      *zap.Logger
}

func NewResolver(ledger ChainAuthority, cacheSize int, log *zap.Logger) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultRejectedCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("rejected candidate cache: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		ledger:   ledger,
		rejected: cache,
		log:      log.With(zap.String("component", "consensus")),
	}, nil
}

// State returns the state of the resolver. It is Evaluating while a round runs
// and otherwise reflects the outcome of the last round.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Resolve runs one round over candidates. The longest valid candidate that is
// strictly longer than the local chain is adopted; among equally long ones the
// first in candidates wins. Invalid candidates are rejected, never fatal.
func (r *Resolver) Resolve(candidates []Candidate) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Store(int32(Evaluating))
	result, err := r.resolve(candidates)
	r.state.Store(int32(result.State))
	result.ChainLength = r.ledger.Length()
	return result, err
}

func (r *Resolver) resolve(candidates []Candidate) (Result, error) {
	result := Result{State: Stable}
	local := r.ledger.Length()

	// longest first; the stable sort keeps observation order among ties so the
	// first valid candidate found is the winner
	order := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if len(c.Chain) > local {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(candidates[order[a]].Chain) > len(candidates[order[b]].Chain)
	})

	hasher := r.ledger.Hasher()
	for _, i := range order {
		c := candidates[i]
		key := candidateKey(hasher, c.Chain)
		if r.rejected.Contains(key) {
			result.Rejected++
			continue
		}

		if err := r.ledger.ValidateChain(c.Chain); err != nil {
			r.rejected.Add(key, struct{}{})
			result.Rejected++

			var invalid blockchain.ErrInvalidChain
			if errors.As(err, &invalid) {
				r.log.Warn("rejected candidate chain",
					zap.String("peer", c.Peer),
					zap.Int("length", len(c.Chain)),
					zap.Uint64("block", invalid.Index),
					zap.String("reason", invalid.Reason),
				)
			} else {
				r.log.Warn("rejected candidate chain", zap.String("peer", c.Peer), zap.Error(err))
			}
			continue
		}

		adopted, err := r.ledger.AdoptChain(c.Chain)
		if err != nil {
			return result, err
		}
		if !adopted {
			// the local chain grew past every remaining candidate meanwhile
			r.log.Debug("candidate outgrown by local chain", zap.String("peer", c.Peer))
			return result, nil
		}

		result.Replaced = true
		result.State = Replaced
		result.Peer = c.Peer
		r.log.Info("replaced local chain",
			zap.String("peer", c.Peer),
			zap.Int("previous_length", local),
			zap.Int("length", len(c.Chain)),
		)
		return result, nil
	}
	return result, nil
}

// candidateKey commits to every block of chain, so an honest chain is never
// shadowed by a tampered copy sharing its tip
func candidateKey(hasher blockchain.Hasher, chain []*blockchain.Block) string {
	return fmt.Sprintf("%d:%s", len(chain), hasher.Sum(blockchain.EncodeChain(chain)))
}
