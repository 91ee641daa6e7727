// Package peers keeps the table of hosts currently announcing themselves on the LAN.
package peers

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Identity is the pair a peer is known by. Addr is the address the
// announcement was observed from, never a value carried in the payload.
type Identity struct {
	Name string
	Addr string
}

// String returns the "{name} ({addr})" descriptor shown to users.
func (id Identity) String() string {
	return fmt.Sprintf("%s (%s)", id.Name, id.Addr)
}

type Peer struct {
	Identity
	FirstSeen time.Time
	LastSeen  time.Time
}

type Registry struct {
	mu    sync.Mutex
	peers map[Identity]*Peer
	now   func() time.Time
}

func New() *Registry {
	return &Registry{
		peers: make(map[Identity]*Peer),
		now:   time.Now,
	}
}

// Touch inserts id or refreshes its LastSeen, reporting whether it was new.
func (r *Registry) Touch(id Identity) bool {
	return r.TouchAt(id, r.now())
}

func (r *Registry) TouchAt(id Identity, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.peers[id]; ok {
		if at.After(p.LastSeen) {
			p.LastSeen = at
		}
		return false
	}

	r.peers[id] = &Peer{
		Identity:  id,
		FirstSeen: at,
		LastSeen:  at,
	}
	return true
}

// Sweep removes and returns every peer whose LastSeen is more than timeout before now.
func (r *Registry) Sweep(now time.Time, timeout time.Duration) []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Identity
	for id, p := range r.peers {
		if now.Sub(p.LastSeen) > timeout {
			evicted = append(evicted, id)
			delete(r.peers, id)
		}
	}

	sortIdentities(evicted)
	return evicted
}

func (r *Registry) Remove(id Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[id]; !ok {
		return false
	}
	delete(r.peers, id)
	return true
}

func (r *Registry) Get(id Identity) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.peers[id]
	if !ok {
		return Peer{}, false
	}
	return *p, true
}

// Peers returns a copy of the table ordered by name, then address.
func (r *Registry) Peers() []Peer {
	r.mu.Lock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, *p)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return less(out[i].Identity, out[j].Identity)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

func sortIdentities(ids []Identity) {
	sort.Slice(ids, func(i, j int) bool {
		return less(ids[i], ids[j])
	})
}

func less(a, b Identity) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.Addr < b.Addr
}
