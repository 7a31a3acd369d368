// Package registry tracks which usernames are online and on which
// connection. It is the only shared mutable structure in the chat core;
// every read and write goes through one RWMutex so no caller can observe
// a half-mutated state.
package registry

import (
	"sort"
	"sync"

	"github.com/dmitrijs2005/fastchat/internal/common"
)

// Peer is the delivery endpoint of one live, authenticated connection.
// Implementations must tolerate Deliver being called concurrently.
type Peer interface {
	// Deliver enqueues one protocol line for the connection. It returns
	// an error once the connection is closed.
	Deliver(line string) error
}

// Registry is a concurrency-safe bidirectional map between usernames and
// live peers. A username maps to at most one peer and vice versa.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Peer
	byPeer map[Peer]string
}

func New() *Registry {
	return &Registry{
		byName: make(map[string]Peer),
		byPeer: make(map[Peer]string),
	}
}

// Register binds peer to username. It fails with common.ErrDuplicateSession
// if the peer is already registered and common.ErrUsernameOnline if the
// username is held by another live connection. Both maps are updated under
// one lock, so concurrent logins for the same username leave exactly one
// winner.
func (r *Registry) Register(p Peer, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byPeer[p]; ok {
		return common.ErrDuplicateSession
	}
	if _, ok := r.byName[username]; ok {
		return common.ErrUsernameOnline
	}

	r.byName[username] = p
	r.byPeer[p] = username
	return nil
}

// Unregister removes the peer's binding. Idempotent: unknown peers are a
// no-op. Returns the username that was bound, if any.
func (r *Registry) Unregister(p Peer) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.byPeer[p]
	if !ok {
		return "", false
	}

	delete(r.byPeer, p)
	delete(r.byName, username)
	return username, true
}

// Lookup resolves a username to its live peer.
func (r *Registry) Lookup(username string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[username]
	return p, ok
}

// Username returns the name bound to the peer, if registered.
func (r *Registry) Username(p Peer) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byPeer[p]
	return name, ok
}

// Usernames returns a sorted snapshot of everyone online. The slice is a
// copy; callers may keep it without holding up the registry.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Others returns a snapshot of all peers except the given one, for
// broadcast fan-out. Delivery happens outside the lock.
func (r *Registry) Others(except Peer) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]Peer, 0, len(r.byPeer))
	for p := range r.byPeer {
		if p != except {
			peers = append(peers, p)
		}
	}
	return peers
}
