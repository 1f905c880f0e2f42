// Package query keeps a remote resource fresh for as long as a consumer is
// mounted. Every attempt ends with renderable data: the fetched payload on
// success, the configured fallback on failure. Failures are logged, never
// returned.
package query

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

type Source int

const (
	// SourceNone means no attempt has completed yet.
	SourceNone Source = iota
	SourceFresh
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceFresh:
		return "fresh"
	case SourceFallback:
		return "fallback"
	default:
		return "none"
	}
}

func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// State is the renderable snapshot of a query.
type State[T any] struct {
	Data        T         `json:"data"`
	Source      Source    `json:"source"`
	Loading     bool      `json:"loading"`
	LastUpdated time.Time `json:"lastUpdated"`
	Attempts    int       `json:"attempts"`
}

// Fresh reports whether Data came from the last successful fetch.
func (s State[T]) Fresh() bool { return s.Source == SourceFresh }

type Fetcher[T any] func(ctx context.Context) (T, error)

type Options[T any] struct {
	// Interval between polls. Zero disables polling; the query then fetches
	// once on mount and on Refresh.
	Interval time.Duration
	Fallback T
	OnChange func(State[T])
	Logger   *slog.Logger
	Now      func() time.Time
}

type Query[T any] struct {
	name  string
	fetch Fetcher[T]
	opts  Options[T]
	group singleflight.Group

	mu       sync.Mutex
	state    State[T]
	mounted  bool
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	// inflight is closed when the running fetch returns, whatever its
	// generation. A remount waits on it so fetches never overlap.
	inflight chan struct{}

	waiters atomic.Int32
}

func New[T any](name string, fetch Fetcher[T], opts Options[T]) *Query[T] {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Query[T]{
		name:  name,
		fetch: fetch,
		opts:  opts,
		state: State[T]{Data: opts.Fallback},
	}
}

func (q *Query[T]) Name() string { return q.name }

// Mount starts one immediate attempt and, when Interval is positive, one per
// interval until Unmount. Mounting twice is a no-op.
func (q *Query[T]) Mount() {
	q.mu.Lock()
	if q.mounted {
		q.mu.Unlock()
		return
	}
	q.mounted = true
	q.gen++
	gen := q.gen
	ctx, cancel := context.WithCancel(context.Background())
	q.ctx, q.cancel = ctx, cancel
	q.mu.Unlock()

	go q.poll(ctx, gen)
}

// Unmount stops polling, cancels the in-flight attempt and makes sure any
// result that still arrives is dropped.
func (q *Query[T]) Unmount() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.mounted {
		return
	}
	q.mounted = false
	q.gen++
	q.cancel()
	q.state.Loading = false
}

func (q *Query[T]) Mounted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.mounted
}

func (q *Query[T]) Snapshot() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Refresh forces an attempt outside the polling schedule and returns the
// resulting state. If an attempt is already in flight the caller joins it.
// The ticker phase is untouched. On an unmounted query Refresh returns the
// current snapshot without fetching.
func (q *Query[T]) Refresh(ctx context.Context) State[T] {
	q.mu.Lock()
	if !q.mounted {
		state := q.state
		q.mu.Unlock()
		return state
	}
	gen, attemptCtx := q.gen, q.ctx
	q.mu.Unlock()

	ch := q.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		return q.run(attemptCtx, gen), nil
	})
	q.waiters.Add(1)
	defer q.waiters.Add(-1)

	select {
	case res := <-ch:
		return res.Val.(State[T])
	case <-ctx.Done():
		return q.Snapshot()
	}
}

func (q *Query[T]) poll(ctx context.Context, gen uint64) {
	q.attempt(ctx, gen)

	if q.opts.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(q.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.attempt(ctx, gen)
		}
	}
}

func (q *Query[T]) attempt(ctx context.Context, gen uint64) {
	_, _, _ = q.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		return q.run(ctx, gen), nil
	})
}

func (q *Query[T]) run(ctx context.Context, gen uint64) State[T] {
	q.mu.Lock()
	for q.inflight != nil {
		previous := q.inflight
		q.mu.Unlock()
		select {
		case <-previous:
		case <-ctx.Done():
			return q.Snapshot()
		}
		q.mu.Lock()
	}
	if gen != q.gen {
		state := q.state
		q.mu.Unlock()
		return state
	}
	finished := make(chan struct{})
	q.inflight = finished
	q.state.Loading = true
	loading := q.state
	q.mu.Unlock()
	q.notify(loading)

	data, err := q.fetch(ctx)

	q.mu.Lock()
	q.inflight = nil
	close(finished)
	if gen != q.gen {
		state := q.state
		q.mu.Unlock()
		q.opts.Logger.Debug("query result discarded after unmount", "query", q.name)
		return state
	}

	q.state.Attempts++
	q.state.Loading = false
	if err != nil {
		q.state.Data = q.opts.Fallback
		q.state.Source = SourceFallback
	} else {
		q.state.Data = data
		q.state.Source = SourceFresh
		q.state.LastUpdated = q.opts.Now()
	}
	done := q.state
	q.mu.Unlock()

	if err != nil {
		q.opts.Logger.Warn("query fetch failed, serving fallback",
			"query", q.name,
			"attempt", done.Attempts,
			"error", err,
		)
	}
	q.notify(done)
	return done
}

func (q *Query[T]) notify(state State[T]) {
	if q.opts.OnChange != nil {
		q.opts.OnChange(state)
	}
}
