package p2p

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"powchain/consensus"
)

const (
	DefaultFetchTimeout = 5 * time.Second

	// DefaultMaxChainBytes caps the body read from one peer
	DefaultMaxChainBytes = 64 << 20

	maxConcurrentFetches = 16
)

// UnreachablePeerError wraps any failure to obtain a chain from a peer. The
// peer then contributes no candidate to the round.
type UnreachablePeerError struct {
	Address string
	Err     error
}

func (e *UnreachablePeerError) Error() string {
	return fmt.Sprintf("peer %s unreachable: %v", e.Address, e.Err)
}

func (e *UnreachablePeerError) Unwrap() error { return e.Err }

// Client fetches chains from peers over their HTTP API
type Client struct {
	http     *http.Client
	maxBytes int64
	log      *zap.Logger
}

func NewClient(timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxChainBytes,
		log:      log.With(zap.String("component", "p2p")),
	}
}

// FetchChain requests GET /chain from peer
func (c *Client) FetchChain(ctx context.Context, peer Peer) (ChainResponse, error) {
	unreachable := func(err error) (ChainResponse, error) {
		return ChainResponse{}, &UnreachablePeerError{Address: peer.Address, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, peer.URL()+"/chain", nil)
	if err != nil {
		return unreachable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unreachable(fmt.Errorf("unexpected status %s", resp.Status))
	}

	var body ChainResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBytes)).Decode(&body); err != nil {
		return unreachable(fmt.Errorf("decode chain: %w", err))
	}
	return body, nil
}

// FetchChains fetches every peer concurrently. Candidates keep the order of
// peers; a peer that fails yields no candidate and one entry in failures.
func (c *Client) FetchChains(ctx context.Context, peers []Peer) (candidates []consensus.Candidate, failures []error) {
	responses := make([]*ChainResponse, len(peers))
	errs := make([]error, len(peers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, peer := range peers {
		g.Go(func() error {
			resp, err := c.FetchChain(gctx, peer)
			if err != nil {
				errs[i] = err
				return nil
			}
			responses[i] = &resp
			return nil
		})
	}
	_ = g.Wait()

	for i, peer := range peers {
		if errs[i] != nil {
			c.log.Warn("failed to fetch chain", zap.String("peer", peer.Address), zap.Error(errs[i]))
			failures = append(failures, errs[i])
			continue
		}
		if responses[i].Length != len(responses[i].Chain) {
			c.log.Debug("peer reported a length that differs from its chain",
				zap.String("peer", peer.Address),
				zap.Int("reported", responses[i].Length),
				zap.Int("actual", len(responses[i].Chain)),
			)
		}
		candidates = append(candidates, consensus.Candidate{Peer: peer.Address, Chain: responses[i].Chain})
	}
	return candidates, failures
}

// Close releases idle connections
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
