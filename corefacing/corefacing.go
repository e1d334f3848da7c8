// Package corefacing defines the minimal surface of the server's
// "core" collaborators a sink calls into — name registry, hook bus,
// subscription publisher — plus an in-memory implementation for tests
// and standalone use. Only the interfaces matter to a sink; a real
// server is free to back them with its own registry and event
// plumbing.
package corefacing

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	errNameEmpty = errors.New("corefacing: name must not be empty")
	errNameTaken = errors.New("corefacing: name already registered")
)

// HookName identifies one of the lifecycle hooks a sink fires.
type HookName int

// Hook names a sink fires over its lifetime.
const (
	HookSinkNew HookName = iota
	HookSinkFixate
	HookSinkPut
	HookSinkUnlink
	HookSinkUnlinkPost
	HookSinkStateChanged
	HookSinkProplistChanged
)

// HookFunc is a hook subscriber. Returning an error from a
// HookSinkNew or HookSinkFixate subscriber vetoes the operation in
// progress.
type HookFunc func(ctx context.Context, payload interface{}) error

// HookBus fans hook firings out to subscribers and, for vetoable
// hooks, collects the first error.
type HookBus struct {
	mu   sync.Mutex
	subs map[HookName][]HookFunc
}

// NewHookBus returns an empty hook bus.
func NewHookBus() *HookBus {
	return &HookBus{subs: make(map[HookName][]HookFunc)}
}

// Subscribe registers fn to be called whenever name fires.
func (b *HookBus) Subscribe(name HookName, fn HookFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], fn)
}

// Fire calls every subscriber of name concurrently and returns the
// first error, if any (a veto for HookSinkNew/HookSinkFixate).
// Subscribers are expected to be independent of one another, the same
// assumption any concurrent fan-in over independent pipeline stages
// makes.
func (b *HookBus) Fire(ctx context.Context, name HookName, payload interface{}) error {
	b.mu.Lock()
	subs := append([]HookFunc(nil), b.subs[name]...)
	b.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, fn := range subs {
		fn := fn
		g.Go(func() error {
			return fn(gctx, payload)
		})
	}
	return g.Wait()
}

// SubscriptionEvent identifies the kind of change being published.
type SubscriptionEvent int

// Subscription event kinds.
const (
	EventNew SubscriptionEvent = iota
	EventChange
	EventRemove
)

// Subscriber receives subscription events for the "sink" category.
type Subscriber interface {
	Notify(event SubscriptionEvent, sinkIndex uint32)
}

// SubscriptionBus fans subscription events out to registered
// subscribers. Unlike HookBus it never blocks the caller on an error:
// subscribers cannot veto.
type SubscriptionBus struct {
	mu   sync.Mutex
	subs []Subscriber
}

// NewSubscriptionBus returns an empty subscription bus.
func NewSubscriptionBus() *SubscriptionBus {
	return &SubscriptionBus{}
}

// Subscribe registers s to receive future events.
func (b *SubscriptionBus) Subscribe(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Publish notifies every subscriber of event for sinkIndex.
func (b *SubscriptionBus) Publish(event SubscriptionEvent, sinkIndex uint32) {
	b.mu.Lock()
	subs := append([]Subscriber(nil), b.subs...)
	b.mu.Unlock()
	for _, s := range subs {
		s.Notify(event, sinkIndex)
	}
}

// NameRegistryFailMode controls what happens when a requested name is
// already taken.
type NameRegistryFailMode int

const (
	// FailIfExists rejects registration outright on collision.
	FailIfExists NameRegistryFailMode = iota
	// RenameIfExists appends a numeric suffix until the name is free.
	RenameIfExists
)

// NameRegistry reserves unique, non-empty names for sinks.
type NameRegistry struct {
	mu   sync.Mutex
	used map[string]struct{}
}

// NewNameRegistry returns an empty registry.
func NewNameRegistry() *NameRegistry {
	return &NameRegistry{used: make(map[string]struct{})}
}

// Register reserves name, applying mode on collision. It returns the
// name actually reserved (it may differ from the request under
// RenameIfExists) or an error under FailIfExists.
func (r *NameRegistry) Register(name string, mode NameRegistryFailMode) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" {
		return "", errNameEmpty
	}
	if _, taken := r.used[name]; !taken {
		r.used[name] = struct{}{}
		return name, nil
	}
	if mode == FailIfExists {
		return "", errNameTaken
	}
	for i := 2; ; i++ {
		candidate := name + "." + strconv.Itoa(i)
		if _, taken := r.used[candidate]; !taken {
			r.used[candidate] = struct{}{}
			return candidate, nil
		}
	}
}

// Unregister releases name, tolerating a name that is not registered —
// a sink's Unlink is idempotent and may call this more than once.
func (r *NameRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.used, name)
}
