package broker

import "sync"

// registry tracks the local subscribers of each group.
type registry struct {
	mu     sync.RWMutex
	groups map[string]map[string]Subscriber
}

func newRegistry() *registry {
	return &registry{groups: make(map[string]map[string]Subscriber)}
}

// add reports whether sub is the first local subscriber of group.
func (r *registry) add(group string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.groups[group]
	if !ok {
		subs = make(map[string]Subscriber)
		r.groups[group] = subs
	}
	subs[sub.ID()] = sub
	return !ok
}

// remove reports whether group has no local subscribers left.
func (r *registry) remove(group string, sub Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.groups[group]
	if !ok {
		return false
	}
	delete(subs, sub.ID())
	if len(subs) == 0 {
		delete(r.groups, group)
		return true
	}
	return false
}

func (r *registry) snapshot(group string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := r.groups[group]
	out := make([]Subscriber, 0, len(subs))
	for _, s := range subs {
		out = append(out, s)
	}
	return out
}

func (r *registry) groupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups)
}
