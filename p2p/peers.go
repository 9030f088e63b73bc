package p2p

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidAddress = errors.New("invalid peer address")
	ErrRegistryFull   = errors.New("peer registry is full")
)

type PeerStatus int

const (
	PeerUnknown PeerStatus = iota
	PeerReachable
	PeerUnreachable
)

func (s PeerStatus) String() string {
	switch s {
	case PeerReachable:
		return "reachable"
	case PeerUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

func (s PeerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Peer struct {
	Address  string     `json:"address"` // normalized host:port
	Scheme   string     `json:"scheme"`
	AddedAt  time.Time  `json:"added_at"`
	LastSeen time.Time  `json:"last_seen,omitempty"`
	Status   PeerStatus `json:"status"`
}

// URL is the base URL the peer's API is reached at
func (p Peer) URL() string {
	return p.Scheme + "://" + p.Address
}

// Registry is the set of peers a node reconciles with, keyed by normalized
// address. A maxPeers of zero means no bound.
type Registry struct {
	mu       sync.RWMutex
	peers    map[string]*Peer
	maxPeers int
	now      func() time.Time
}

func NewRegistry(maxPeers int) *Registry {
	return &Registry{
		peers:    make(map[string]*Peer),
		maxPeers: maxPeers,
		now:      time.Now,
	}
}

// NormalizeAddress reduces equivalent spellings of a peer address to one
// host:port form. "http://127.0.0.1:5000/", "127.0.0.1:5000" and
// "HTTP://127.0.0.1:5000" all normalize to "127.0.0.1:5000".
func NormalizeAddress(address string) (hostport, scheme string, err error) {
	raw := strings.TrimSpace(address)
	if raw == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, address, err)
	}

	scheme = strings.ToLower(u.Scheme)
	port := u.Port()
	switch scheme {
	case "http":
		if port == "" {
			port = "80"
		}
	case "https":
		if port == "" {
			port = "443"
		}
	default:
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidAddress, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", "", fmt.Errorf("%w: %q has no host", ErrInvalidAddress, address)
	}
	return net.JoinHostPort(host, port), scheme, nil
}

// Register adds address to the registry. It reports false without error when
// an equivalent address is already known.
func (r *Registry) Register(address string) (bool, error) {
	hostport, scheme, err := NormalizeAddress(address)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[hostport]; ok {
		return false, nil
	}
	if r.maxPeers > 0 && len(r.peers) >= r.maxPeers {
		return false, ErrRegistryFull
	}

	r.peers[hostport] = &Peer{
		Address: hostport,
		Scheme:  scheme,
		AddedAt: r.now(),
		Status:  PeerUnknown,
	}
	return true, nil
}

// Observe records the outcome of the last fetch from a peer
func (r *Registry) Observe(address string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[address]
	if !ok {
		return
	}
	if err != nil {
		p.Status = PeerUnreachable
		return
	}
	p.Status = PeerReachable
	p.LastSeen = r.now()
}

// List returns a snapshot of the known peers sorted by address
func (r *Registry) List() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (r *Registry) Addresses() []string {
	peers := r.List()
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = p.Address
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
