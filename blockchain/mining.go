package blockchain

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

const (
	MaxDifficulty = 16

	// DefaultChunkSize is the number of proofs one worker scans per round
	DefaultChunkSize = 1 << 14

	// how often a scan checks for cancellation
	cancelCheckInterval = 1024
)

// ProofOfWork is the difficulty predicate and the proof search.
// It has no mutable state and is safe for concurrent use.
type ProofOfWork struct {
	difficulty int
	workers    int
	chunkSize  uint64
	hasher     Hasher
	prefix     string
}

type PowOption func(*ProofOfWork)

// WithWorkers sets how many contiguous ranges are searched in parallel
func WithWorkers(n int) PowOption {
	return func(p *ProofOfWork) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithChunkSize(n uint64) PowOption {
	return func(p *ProofOfWork) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

func WithPowHasher(h Hasher) PowOption {
	return func(p *ProofOfWork) {
		p.hasher = h
	}
}

func NewProofOfWork(difficulty int, opts ...PowOption) (*ProofOfWork, error) {
	if difficulty < 1 || difficulty > MaxDifficulty {
		return nil, fmt.Errorf("difficulty %d out of range [1, %d]", difficulty, MaxDifficulty)
	}
	p := &ProofOfWork{
		difficulty: difficulty,
		workers:    runtime.NumCPU(),
		chunkSize:  DefaultChunkSize,
		prefix:     strings.Repeat("0", difficulty),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *ProofOfWork) Difficulty() int { return p.difficulty }

// ValidProof reports whether the digest of the decimal concatenation of
// lastProof and proof starts with difficulty zero characters.
func (p *ProofOfWork) ValidProof(lastProof, proof uint64) bool {
	var buf [40]byte
	guess := strconv.AppendUint(buf[:0], lastProof, 10)
	guess = strconv.AppendUint(guess, proof, 10)
	return strings.HasPrefix(p.hasher.Sum(guess), p.prefix)
}

// Search scans [from, to) in increasing order and returns the first valid proof.
func (p *ProofOfWork) Search(ctx context.Context, lastProof, from, to uint64) (uint64, bool, error) {
	for proof := from; proof < to; proof++ {
		if (proof-from)%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
		}
		if p.ValidProof(lastProof, proof) {
			return proof, true, nil
		}
	}
	return 0, false, nil
}

// Mine searches upward from zero until a valid proof is found or ctx is done.
func (p *ProofOfWork) Mine(ctx context.Context, lastProof uint64) (uint64, error) {
	return p.MineFrom(ctx, lastProof, 0)
}

// MineFrom resumes the search at start. Each round splits the next
// workers*chunkSize values into contiguous chunks searched in parallel; the
// smallest hit of the round wins, so the answer matches a sequential scan.
func (p *ProofOfWork) MineFrom(ctx context.Context, lastProof, start uint64) (uint64, error) {
	base := start
	for {
		hits := make([]*uint64, p.workers)
		g, gctx := errgroup.WithContext(ctx)
		for w := 0; w < p.workers; w++ {
			lo := base + uint64(w)*p.chunkSize
			hi := lo + p.chunkSize
			g.Go(func() error {
				proof, found, err := p.Search(gctx, lastProof, lo, hi)
				if err != nil {
					return err
				}
				if found {
					hits[w] = &proof
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
		for _, hit := range hits {
			if hit != nil {
				return *hit, nil
			}
		}
		base += uint64(p.workers) * p.chunkSize
	}
}
