// Package cache memoizes expensive pipeline calls. A producer runs at most
// once per key until the key is invalidated; concurrent callers for the
// same key share one in-flight call. Errors are returned to every waiter
// and never stored.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"rcnpulse/internal/infrastructure"
)

// Namespaces used by the pipeline
const (
	NamespaceLedger   = "ledger"
	NamespaceComtrade = "comtrade"
	NamespaceVessels  = "vessels"
	NamespaceForecast = "forecast"
)

// Key identifies one memoized call: the namespace plus a hash of the full
// argument tuple
type Key struct {
	Namespace string
	Hash      string
}

// NewKey derives a deterministic key from namespace and args. Each argument
// is encoded with its dynamic type and JSON form, so 1 and "1" differ and
// slices keep their boundaries.
func NewKey(namespace string, args ...any) Key {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, arg := range args {
		h.Write([]byte{0x1f})
		fmt.Fprintf(h, "%T=", arg)
		if b, err := json.Marshal(arg); err == nil {
			h.Write(b)
		} else {
			fmt.Fprintf(h, "%#v", arg)
		}
	}
	return Key{Namespace: namespace, Hash: hex.EncodeToString(h.Sum(nil))}
}

func (k Key) String() string {
	return k.Namespace + ":" + k.Hash
}

// Producer computes the value for a key
type Producer func(ctx context.Context) (any, error)

type entry struct {
	key   Key
	value any
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Hits       int64          `json:"hits"`
	Misses     int64          `json:"misses"`
	Entries    int            `json:"entries"`
	MaxEntries int            `json:"max_entries"`
	HitRatio   float64        `json:"hit_ratio"`
	Namespaces map[string]int `json:"namespaces"`
}

// Cache is an in-memory memo table bounded by entry count. When full, the
// oldest stored entry is evicted.
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]*list.Element
	order      *list.List
	maxEntries int

	// epoch moves on Clear and gens[ns] on any invalidation in ns. A
	// flight stores its value only if neither moved while it ran.
	epoch    uint64
	gens     map[string]uint64
	inflight map[Key]int

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64

	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// Option configures a Cache
type Option func(*Cache)

// WithMaxEntries bounds the number of stored values; n <= 0 is unbounded
func WithMaxEntries(n int) Option {
	return func(c *Cache) { c.maxEntries = n }
}

// WithMetrics records hits and misses on m
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates an empty cache
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[Key]*list.Element),
		order:    list.New(),
		gens:     make(map[string]uint64),
		inflight: make(map[Key]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = infrastructure.WithComponent(c.logger, "cache")
	return c
}

// GetOrCompute returns the stored value for key, or runs producer once and
// stores its result. The producer keeps running when the caller's context
// is cancelled so other waiters still receive the value; the caller itself
// returns ctx.Err(). A value whose namespace is invalidated while its
// producer runs goes to that flight's waiters but is not stored. A nil
// Cache always runs producer.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, producer Producer) (any, error) {
	if c == nil {
		return producer(ctx)
	}

	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		c.metrics.RecordCache(ctx, key.Namespace, true)
		return v, nil
	}
	c.misses.Add(1)
	c.metrics.RecordCache(ctx, key.Namespace, false)

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		// A flight that finished between lookup and DoChan already stored
		// the value
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		gen := c.begin(key)
		defer c.finish(key)

		v, err := producer(flightCtx)
		if err != nil {
			c.logger.DebugContext(flightCtx, "producer failed",
				slog.String("namespace", key.Namespace),
				slog.String("error", err.Error()))
			return nil, err
		}
		if !c.storeIfCurrent(key, v, gen) {
			c.logger.DebugContext(flightCtx, "discarded value invalidated in flight",
				slog.String("namespace", key.Namespace))
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Compute is the typed form of GetOrCompute
func Compute[T any](ctx context.Context, c *Cache, key Key, producer func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return producer(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache: value for %s is %T, want %T", key.Namespace, v, zero)
	}
	return typed, nil
}

// Peek returns the stored value without computing or counting
func (c *Cache) Peek(key Key) (any, bool) {
	if c == nil {
		return nil, false
	}
	return c.lookup(key)
}

func (c *Cache) lookup(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry).value, true
}

type generation struct {
	epoch uint64
	ns    uint64
}

// begin marks key in flight and returns the generation it started under
func (c *Cache) begin(key Key) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight[key]++
	return generation{epoch: c.epoch, ns: c.gens[key.Namespace]}
}

func (c *Cache) finish(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[key]--; c.inflight[key] <= 0 {
		delete(c.inflight, key)
	}
}

// storeIfCurrent stores v unless key's namespace was invalidated after gen
// was taken
func (c *Cache) storeIfCurrent(key Key, v any, gen generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen.epoch != c.epoch || gen.ns != c.gens[key.Namespace] {
		return false
	}
	c.storeLocked(key, v)
	return true
}

func (c *Cache) storeLocked(key Key, v any) {

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = v
		return
	}
	c.entries[key] = c.order.PushBack(&entry{key: key, value: v})

	for c.maxEntries > 0 && c.order.Len() > c.maxEntries {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		evicted := oldest.Value.(*entry).key
		delete(c.entries, evicted)
		c.logger.Debug("evicted entry", slog.String("namespace", evicted.Namespace))
	}
}

// Invalidate drops key and reports whether it was stored
func (c *Cache) Invalidate(key Key) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.group.Forget(key.String())
	c.gens[key.Namespace]++

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.entries, key)
	return true
}

// InvalidateNamespace drops every key in namespace and returns the count
func (c *Cache) InvalidateNamespace(namespace string) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[namespace]++
	for key := range c.inflight {
		if key.Namespace == namespace {
			c.group.Forget(key.String())
		}
	}

	removed := 0
	for key, el := range c.entries {
		if key.Namespace != namespace {
			continue
		}
		c.group.Forget(key.String())
		c.order.Remove(el)
		delete(c.entries, key)
		removed++
	}
	return removed
}

// Clear drops every entry. Hit and miss counters are kept.
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	for key := range c.inflight {
		c.group.Forget(key.String())
	}
	for key := range c.entries {
		c.group.Forget(key.String())
	}
	c.entries = make(map[Key]*list.Element)
	c.order.Init()
}

// Len returns the number of stored entries
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns usage counters and per-namespace entry counts
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{Namespaces: map[string]int{}}
	}
	c.mu.Lock()
	namespaces := make(map[string]int)
	for key := range c.entries {
		namespaces[key.Namespace]++
	}
	entries := c.order.Len()
	c.mu.Unlock()

	s := Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Entries:    entries,
		MaxEntries: c.maxEntries,
		Namespaces: namespaces,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}
