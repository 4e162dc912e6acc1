// Package cache is a keyed read-through store with stale-while-revalidate fetching,
// prefix invalidation and subscriptions. Values are treated as immutable: writers
// replace them, they never mutate a stored value in place.
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/constants"
)

// Key addresses an entry, e.g. Key{"clients", "list", "ACTIVE"}.
// A key matches a prefix when it starts with all of the prefix's segments.
type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether k starts with prefix
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (k Key) id() string {
	return strings.Join(k, "\x1f")
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Status is the tri-state of an entry as seen by a view
type Status int

const (
	StatusLoading Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "loading"
	}
}

// State is a snapshot of one entry.
// Err holds the last fetch failure even when an older Value is still served.
type State struct {
	Status      Status
	Value       interface{}
	Err         error
	UpdatedAt   time.Time
	Fetching    bool
	Invalidated bool
}

// Entry is a key and value pair returned by Scan.
// Stale reports that the entry is invalidated or older than StaleTime.
type Entry struct {
	Key   Key
	Value interface{}
	Stale bool
}

// FetchFunc loads the authoritative value for a key
type FetchFunc func(ctx context.Context) (interface{}, error)

// Options configures a Cache. Zero durations fall back to the defaults.
type Options struct {
	// StaleTime is how long a value is served without revalidation
	StaleTime time.Duration
	// GCTime is how long an unused, unobserved entry survives
	GCTime time.Duration
	Clock  Clock
}

type entry struct {
	key         Key
	value       interface{}
	hasValue    bool
	err         error
	updatedAt   time.Time
	invalidated bool
	inFlight    int
	lastUsed    time.Time
	// gen changes on every write that is not a fetch result
	gen         uint64
	subscribers map[int]func(State)
}

func (e *entry) state() State {
	s := State{
		Value:       e.value,
		Err:         e.err,
		UpdatedAt:   e.updatedAt,
		Fetching:    e.inFlight > 0,
		Invalidated: e.invalidated,
	}
	switch {
	case e.hasValue:
		s.Status = StatusSuccess
	case e.err != nil:
		s.Status = StatusError
	default:
		s.Status = StatusLoading
	}
	return s
}

// Cache is safe for concurrent use. Subscriber callbacks run outside the lock.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	staleTime time.Duration
	gcTime    time.Duration
	clock     Clock
	nextSubID int
	wg        sync.WaitGroup
}

// New creates an empty cache
func New(opts Options) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		staleTime: opts.StaleTime,
		gcTime:    opts.GCTime,
		clock:     opts.Clock,
	}
	if c.staleTime <= 0 {
		c.staleTime = constants.DefaultStaleTime
	}
	if c.gcTime <= 0 {
		c.gcTime = constants.DefaultGCTime
	}
	if c.clock == nil {
		c.clock = systemClock{}
	}
	return c
}

type notification struct {
	callbacks []func(State)
	state     State
}

func (n notification) send() {
	for _, fn := range n.callbacks {
		fn(n.state)
	}
}

func sendAll(ns []notification) {
	for _, n := range ns {
		n.send()
	}
}

// pending collects the callbacks to run for e; call with the lock held
func (e *entry) pending() notification {
	n := notification{state: e.state()}
	if len(e.subscribers) == 0 {
		return n
	}
	ids := make([]int, 0, len(e.subscribers))
	for id := range e.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		n.callbacks = append(n.callbacks, e.subscribers[id])
	}
	return n
}

func (c *Cache) lookup(key Key, create bool) *entry {
	e, ok := c.entries[key.id()]
	if !ok && create {
		e = &entry{key: append(Key(nil), key...), lastUsed: c.clock.Now()}
		c.entries[key.id()] = e
	}
	return e
}

func (c *Cache) isStale(e *entry, now time.Time) bool {
	return e.invalidated || now.Sub(e.updatedAt) >= c.staleTime
}

// Fetch returns the value for key, loading it with fn when needed.
// A fresh value is returned without calling fn. A stale value is returned at once
// while fn runs in the background. A missing value is fetched synchronously.
// Results that arrive after ctx is done are discarded, as are results of fetches
// that started before a later Set, Update, Invalidate or Remove of the entry.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (interface{}, error) {
	c.mu.Lock()
	now := c.clock.Now()
	e := c.lookup(key, true)
	e.lastUsed = now
	gen := e.gen

	if e.hasValue {
		value := e.value
		if c.isStale(e, now) && e.inFlight == 0 {
			e.inFlight++
			n := e.pending()
			c.wg.Add(1)
			c.mu.Unlock()
			n.send()

			go func() {
				defer c.wg.Done()
				result, err := fn(ctx)
				c.complete(ctx, e, gen, result, err)
			}()
			return value, nil
		}
		c.mu.Unlock()
		return value, nil
	}

	e.inFlight++
	n := e.pending()
	c.mu.Unlock()
	n.send()

	result, err := fn(ctx)
	if c.complete(ctx, e, gen, result, err) == outcomeCanceled {
		return nil, ctx.Err()
	}
	return result, err
}

type outcome int

const (
	outcomeStored outcome = iota
	outcomeCanceled
	outcomeSuperseded
)

// complete stores the result of a fetch started on e at generation gen.
// A result for a dropped entry or an older generation is not stored.
func (c *Cache) complete(ctx context.Context, e *entry, gen uint64, value interface{}, err error) outcome {
	c.mu.Lock()
	if c.entries[e.key.id()] != e {
		c.mu.Unlock()
		return outcomeSuperseded
	}
	if e.inFlight > 0 {
		e.inFlight--
	}

	result := outcomeStored
	switch {
	case ctx.Err() != nil:
		result = outcomeCanceled
	case e.gen != gen:
		result = outcomeSuperseded
	case err != nil:
		// keep the last good value
		e.err = err
	default:
		e.value = value
		e.hasValue = true
		e.err = nil
		e.invalidated = false
		e.updatedAt = c.clock.Now()
	}

	n := e.pending()
	c.mu.Unlock()
	n.send()
	return result
}

// Get returns the cached value for key without fetching
func (c *Cache) Get(key Key) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(key, false)
	if e == nil || !e.hasValue {
		return nil, false
	}
	e.lastUsed = c.clock.Now()
	return e.value, true
}

// Set stores value under key as freshly fetched
func (c *Cache) Set(key Key, value interface{}) {
	c.mu.Lock()
	now := c.clock.Now()
	e := c.lookup(key, true)
	e.gen++
	e.value = value
	e.hasValue = true
	e.err = nil
	e.invalidated = false
	e.updatedAt = now
	e.lastUsed = now
	n := e.pending()
	c.mu.Unlock()

	n.send()
}

// Update replaces the value under key with fn(old). Missing entries are left alone.
// It reports whether an entry was updated.
func (c *Cache) Update(key Key, fn func(old interface{}) interface{}) bool {
	c.mu.Lock()
	e := c.lookup(key, false)
	if e == nil || !e.hasValue {
		c.mu.Unlock()
		return false
	}
	e.gen++
	e.value = fn(e.value)
	e.updatedAt = c.clock.Now()
	n := e.pending()
	c.mu.Unlock()

	n.send()
	return true
}

// UpdateAll applies fn to every cached value under prefix. fn reports whether it changed
// the value; unchanged entries keep their age. It returns how many entries changed.
func (c *Cache) UpdateAll(prefix Key, fn func(key Key, old interface{}) (interface{}, bool)) int {
	c.mu.Lock()
	now := c.clock.Now()
	var ns []notification
	for _, e := range c.matching(prefix) {
		if !e.hasValue {
			continue
		}
		value, changed := fn(e.key, e.value)
		if !changed {
			continue
		}
		e.gen++
		e.value = value
		e.updatedAt = now
		ns = append(ns, e.pending())
	}
	c.mu.Unlock()

	sendAll(ns)
	return len(ns)
}

// Scan returns every cached value under prefix, ordered by key
func (c *Cache) Scan(prefix Key) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	var out []Entry
	for _, e := range c.matching(prefix) {
		if e.hasValue {
			out = append(out, Entry{Key: e.key, Value: e.value, Stale: c.isStale(e, now)})
		}
	}
	return out
}

// Invalidate marks every entry under prefix stale so the next Fetch revalidates it
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	var ns []notification
	for _, e := range c.matching(prefix) {
		e.gen++
		e.invalidated = true
		ns = append(ns, e.pending())
	}
	c.mu.Unlock()

	sendAll(ns)
	return len(ns)
}

// Remove drops the data of every entry under prefix. The next Fetch loads synchronously.
// Entries with subscribers are kept, empty, so subscribers see the reload.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	var ns []notification
	removed := 0
	for _, e := range c.matching(prefix) {
		removed++
		if len(e.subscribers) == 0 {
			delete(c.entries, e.key.id())
			continue
		}
		e.gen++
		e.value = nil
		e.hasValue = false
		e.err = nil
		e.invalidated = false
		e.updatedAt = time.Time{}
		ns = append(ns, e.pending())
	}
	c.mu.Unlock()

	sendAll(ns)
	return removed
}

// Subscribe registers fn to receive the entry's state after every change.
// Observed entries are never garbage collected. Call the returned func to unsubscribe.
func (c *Cache) Subscribe(key Key, fn func(State)) func() {
	c.mu.Lock()
	e := c.lookup(key, true)
	if e.subscribers == nil {
		e.subscribers = make(map[int]func(State))
	}
	c.nextSubID++
	id := c.nextSubID
	e.subscribers[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[key.id()]; ok {
				delete(e.subscribers, id)
				e.lastUsed = c.clock.Now()
			}
		})
	}
}

// State returns a snapshot of the entry under key
func (c *Cache) State(key Key) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.lookup(key, false)
	if e == nil {
		return State{Status: StatusLoading}
	}
	return e.state()
}

// GC drops entries that have no subscribers, no fetch in flight and were not used within GCTime
func (c *Cache) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	dropped := 0
	for id, e := range c.entries {
		if len(e.subscribers) > 0 || e.inFlight > 0 {
			continue
		}
		if now.Sub(e.lastUsed) >= c.gcTime {
			delete(c.entries, id)
			dropped++
		}
	}
	return dropped
}

// RunGC calls GC every interval until ctx is done
func (c *Cache) RunGC(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.GC()
		}
	}
}

// Wait blocks until every background revalidation has finished
func (c *Cache) Wait() {
	c.wg.Wait()
}

// Len returns the number of entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// matching returns the entries under prefix ordered by key; call with the lock held
func (c *Cache) matching(prefix Key) []*entry {
	var out []*entry
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].key.id() < out[j].key.id()
	})
	return out
}

// FetchAs is Fetch for a typed value
func FetchAs[T any](ctx context.Context, c *Cache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	value, err := c.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, _ := value.(T)
	return typed, nil
}

// GetAs is Get for a typed value. A value of another type reports false.
func GetAs[T any](c *Cache, key Key) (T, bool) {
	value, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}
