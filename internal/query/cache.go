// Package query caches the results of keyed asynchronous reads.
//
// Concurrent fetches of the same key share one call to the underlying
// function. A successful result is served from memory until it is older than
// the query's StaleTime or until a matching Invalidate. Every state change is
// published to subscribers as an Event; the users service mirrors those
// events into the global store.
package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/five82/roster/internal/logging"
)

// EventKind classifies a cache Event.
type EventKind int

const (
	// EventStarted fires when a call begins for a key.
	EventStarted EventKind = iota
	// EventSucceeded fires when a call settles with data.
	EventSucceeded
	// EventFailed fires when a call settles with an error.
	EventFailed
	// EventHit fires when a fresh cached result is served without a call.
	EventHit
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventHit:
		return "hit"
	default:
		return "unknown"
	}
}

// Event describes a change to one cache entry.
type Event struct {
	Kind     EventKind
	Key      Key
	Data     any
	HasData  bool
	Err      error
	Loading  bool // a call is in flight and the entry has never held data
	Fetching bool // a call is in flight
	Invalid  bool // Data was invalidated and must not be shown as current
}

// Options tune a single query.
type Options struct {
	// StaleTime is how long a successful result is served without
	// refetching. Zero means always refetch.
	StaleTime time.Duration
	// Enabled gates execution. A nil func means enabled.
	Enabled func() bool
}

func (o Options) enabled() bool {
	return o.Enabled == nil || o.Enabled()
}

// Result is the observable state of one query.
type Result[T any] struct {
	Key       Key
	Data      T
	HasData   bool
	Err       error
	Loading   bool
	Fetching  bool
	Idle      bool // the query is disabled and was not executed
	Stale     bool
	UpdatedAt time.Time // when Data last changed
}

// Query binds a key to the function that loads it.
type Query[T any] struct {
	Key     Key
	Fn      func(ctx context.Context) (T, error)
	Options Options
}

type entry struct {
	key       Key
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	invalid   bool
	// gen counts calls started for this entry; invalidGen is gen at the
	// last Invalidate. A call started at or before invalidGen settles
	// already invalid.
	gen        uint64
	invalidGen uint64
	fetching   bool
}

// Cache stores query results keyed by Key.String().
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	subs    map[int]func(Event)
	nextSub int
	now     func() time.Time
	log     *slog.Logger
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.log = logging.OrNop(l) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache returns an empty cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		subs:    make(map[int]func(Event)),
		now:     time.Now,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers fn for every Event. Callbacks run on the goroutine that
// caused the change, outside the cache lock. The returned func unsubscribes.
func (c *Cache) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Invalidate marks every entry whose key starts with prefix as stale and
// returns how many matched. The next Fetch of such a key calls through even
// within StaleTime, and a call already in flight no longer absorbs new
// fetches.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.invalid = true
		e.invalidGen = e.gen
		if e.fetching {
			c.group.Forget(id)
		}
		n++
	}
	c.log.Debug("cache invalidated", "prefix", prefix.String(), "entries", n)
	return n
}

// Remove drops every entry whose key starts with prefix.
func (c *Cache) Remove(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, id)
			c.group.Forget(id)
		}
	}
}

// Fetch returns q's result, calling q.Fn when the cached value is missing,
// stale, failed or invalidated. Concurrent callers for the same key share one
// call. The call is detached from ctx cancellation so one caller giving up
// does not fail the others; ctx still bounds how long this caller waits.
//
// A disabled query never calls q.Fn and reports Idle.
func Fetch[T any](ctx context.Context, c *Cache, q Query[T]) Result[T] {
	if !q.Options.enabled() {
		return Peek[T](c, q.Key, q.Options)
	}
	id := q.Key.String()

	if snap, ok := c.fresh(id, q.Key, q.Options.StaleTime); ok {
		return toResult[T](snap, q.Options.StaleTime, c.now())
	}

	ch := c.group.DoChan(id, func() (any, error) {
		gen := c.begin(id, q.Key)
		data, err := q.Fn(context.WithoutCancel(ctx))
		c.settle(id, gen, data, err)
		return data, err
	})

	select {
	case <-ch:
	case <-ctx.Done():
		out := toResult[T](c.snapshot(id, q.Key), q.Options.StaleTime, c.now())
		if out.Err == nil && !out.HasData {
			out.Err = ctx.Err()
		}
		return out
	}
	return toResult[T](c.snapshot(id, q.Key), q.Options.StaleTime, c.now())
}

// Peek returns the cached state of key without starting a call.
func Peek[T any](c *Cache, key Key, opts Options) Result[T] {
	out := toResult[T](c.snapshot(key.String(), key), opts.StaleTime, c.now())
	out.Idle = !opts.enabled()
	return out
}

// Refetch invalidates q.Key and fetches it again.
func Refetch[T any](ctx context.Context, c *Cache, q Query[T]) Result[T] {
	c.Invalidate(q.Key)
	return Fetch(ctx, c, q)
}

func (c *Cache) fresh(id string, key Key, staleTime time.Duration) (entry, bool) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || e.fetching || e.invalid || !e.hasData || e.err != nil ||
		staleTime <= 0 || c.now().Sub(e.updatedAt) >= staleTime {
		c.mu.Unlock()
		return entry{}, false
	}
	snap := *e
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.publish(subs, Event{
		Kind:    EventHit,
		Key:     key,
		Data:    snap.data,
		HasData: true,
	})
	return snap, true
}

func (c *Cache) begin(id string, key Key) uint64 {
	c.mu.Lock()
	e := c.entryLocked(id, key)
	e.gen++
	e.fetching = true
	gen := e.gen
	ev := Event{
		Kind:     EventStarted,
		Key:      key,
		Data:     e.data,
		HasData:  e.hasData,
		Err:      e.err,
		Loading:  !e.hasData,
		Fetching: true,
		Invalid:  e.invalid,
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.log.Debug("query started", "key", id, "gen", gen)
	c.publish(subs, ev)
	return gen
}

func (c *Cache) settle(id string, gen uint64, data any, err error) {
	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok || gen != e.gen {
		// superseded by a newer call, or removed
		c.mu.Unlock()
		c.log.Debug("query result discarded", "key", id, "gen", gen)
		return
	}
	e.fetching = false
	ev := Event{Key: e.key}
	if err != nil {
		// Previous data is kept, and so is its invalidation.
		e.err = err
		e.invalid = e.invalid || gen <= e.invalidGen
		ev.Kind = EventFailed
	} else {
		e.data = data
		e.hasData = true
		e.err = nil
		e.updatedAt = c.now()
		e.invalid = gen <= e.invalidGen
		ev.Kind = EventSucceeded
	}
	ev.Data, ev.HasData, ev.Err, ev.Invalid = e.data, e.hasData, e.err, e.invalid
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("query failed", "key", id, "error", err)
	} else {
		c.log.Debug("query succeeded", "key", id)
	}
	c.publish(subs, ev)
}

func (c *Cache) snapshot(id string, key Key) entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return *e
	}
	return entry{key: key}
}

func (c *Cache) entryLocked(id string, key Key) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key}
		c.entries[id] = e
	}
	return e
}

func (c *Cache) subscribersLocked() []func(Event) {
	out := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func (c *Cache) publish(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

func toResult[T any](e entry, staleTime time.Duration, now time.Time) Result[T] {
	out := Result[T]{
		Key:       e.key,
		HasData:   e.hasData,
		Err:       e.err,
		Fetching:  e.fetching,
		Loading:   e.fetching && !e.hasData,
		UpdatedAt: e.updatedAt,
	}
	if e.hasData {
		if v, ok := e.data.(T); ok {
			out.Data = v
		}
	}
	out.Stale = e.invalid || !e.hasData || staleTime <= 0 || now.Sub(e.updatedAt) >= staleTime
	return out
}
