package lazy

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jmherbst/verifeed/internal/debuglog"
)

// LoadState is the lifecycle of one deferred resource.
type LoadState int

const (
	StatePending LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resource is a loadable asset bound to a rendered node.
type Resource struct {
	URL          string
	Kind         Kind
	HighPriority bool
}

// Fetcher performs the actual load for a resource kind.
type Fetcher interface {
	Load(ctx context.Context, res Resource) error
}

// Update notifies observers of a state transition for a node.
type Update struct {
	ID      string
	State   LoadState
	Attempt int
	Err     error
}

// Options tune a Loader.
type Options struct {
	// MaxRetries bounds automatic attempts before a resource is marked
	// permanently failed.
	MaxRetries int
	// RetryDelay is the base delay; attempt n waits RetryDelay * n.
	RetryDelay time.Duration
	// Eager loads on Observe, the fallback when the host environment
	// cannot report viewport intersection.
	Eager bool
	// Constrained defers non-high-priority resources to a manual load
	// action (slow or metered connection).
	Constrained bool
}

type node struct {
	res       Resource
	state     LoadState
	retries   int
	inView    bool
	awaitUser bool
	timer     *time.Timer
}

// Loader defers resource fetching until the owning node nears the
// viewport, with bounded retries and graceful degradation. Loads run on
// their own goroutines; all bookkeeping is guarded by one mutex and the
// notify callback is always invoked outside it.
type Loader struct {
	fetcher    Fetcher
	maxRetries int
	retryDelay time.Duration
	eager      bool
	notify     func(Update)

	mu          sync.Mutex
	nodes       map[string]*node
	paused      bool
	constrained bool
}

func NewLoader(fetcher Fetcher, opts Options, notify func(Update)) *Loader {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}

	return &Loader{
		fetcher:     fetcher,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
		eager:       opts.Eager,
		notify:      notify,
		nodes:       make(map[string]*node),
		constrained: opts.Constrained,
	}
}

// Observe registers a node for viewport tracking. Already loaded or
// permanently failed nodes are left alone. In eager mode the load starts
// immediately.
func (l *Loader) Observe(id string, res Resource) {
	if id == "" || res.URL == "" {
		return
	}

	l.mu.Lock()
	if existing, ok := l.nodes[id]; ok {
		if existing.state == StateLoaded || existing.state == StateFailed {
			l.mu.Unlock()
			return
		}
	} else {
		l.nodes[id] = &node{res: res, state: StatePending}
	}

	if l.eager {
		l.nodes[id].inView = true
		update, start := l.maybeStartLocked(id)
		l.mu.Unlock()
		l.emit(update)
		if start {
			l.load(id)
		}
		return
	}
	l.mu.Unlock()
}

// EnterViewport marks a node as near-visible and starts its load.
// Idempotent: re-entry while a load is in flight never duplicates it.
func (l *Loader) EnterViewport(id string) {
	l.mu.Lock()
	n, ok := l.nodes[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	n.inView = true
	update, start := l.maybeStartLocked(id)
	l.mu.Unlock()

	l.emit(update)
	if start {
		l.load(id)
	}
}

// LeaveViewport marks a node as out of view. An in-flight load is not
// cancelled; it simply settles.
func (l *Loader) LeaveViewport(id string) {
	l.mu.Lock()
	if n, ok := l.nodes[id]; ok {
		n.inView = false
	}
	l.mu.Unlock()
}

// Unobserve drops a node entirely; its rendered row went away.
func (l *Loader) Unobserve(id string) {
	l.mu.Lock()
	if n, ok := l.nodes[id]; ok {
		if n.timer != nil {
			n.timer.Stop()
		}
		delete(l.nodes, id)
	}
	l.mu.Unlock()
}

// RetryManually restarts a failed or deferred node at the user's request.
// The manual action overrides the constrained-connection policy.
func (l *Loader) RetryManually(id string) {
	l.mu.Lock()
	n, ok := l.nodes[id]
	if !ok || n.state == StateLoading || n.state == StateLoaded {
		l.mu.Unlock()
		return
	}
	n.awaitUser = false
	n.inView = true
	if n.timer != nil {
		// A retry timer armed by an earlier failure must not fire on top
		// of the manual attempt.
		n.timer.Stop()
		n.timer = nil
	}
	n.state = StateLoading
	n.retries = 1
	update := Update{ID: id, State: StateLoading, Attempt: 1}
	l.mu.Unlock()

	l.emit(&update)
	l.load(id)
}

// SetDocumentVisible pauses automatic loading process-wide while the host
// document is hidden and resumes pending in-view nodes when it returns.
func (l *Loader) SetDocumentVisible(visible bool) {
	l.mu.Lock()
	l.paused = !visible
	if !visible {
		l.mu.Unlock()
		return
	}

	var updates []*Update
	var starts []string
	for id, n := range l.nodes {
		if n.state == StatePending && n.inView && !n.awaitUser {
			n.state = StateLoading
			n.retries++
			updates = append(updates, &Update{ID: id, State: StateLoading, Attempt: n.retries})
			starts = append(starts, id)
		}
	}
	l.mu.Unlock()

	for _, u := range updates {
		l.emit(u)
	}
	for _, id := range starts {
		l.load(id)
	}
}

// SetConstrained toggles the degraded-connection policy.
func (l *Loader) SetConstrained(constrained bool) {
	l.mu.Lock()
	l.constrained = constrained
	l.mu.Unlock()
}

// State reports a node's current load state.
func (l *Loader) State(id string) (LoadState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.nodes[id]
	if !ok {
		return StatePending, false
	}
	return n.state, true
}

// AwaitingManualLoad reports whether a node was deferred to an explicit
// user action by the constrained-connection policy.
func (l *Loader) AwaitingManualLoad(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.nodes[id]
	return ok && n.awaitUser
}

// maybeStartLocked decides whether a pending in-view node may start
// loading. Returns the transition to emit and whether to kick the load.
// Caller holds l.mu.
func (l *Loader) maybeStartLocked(id string) (*Update, bool) {
	n, ok := l.nodes[id]
	if !ok || n.state != StatePending || !n.inView {
		return nil, false
	}
	if l.paused {
		return nil, false
	}
	if l.constrained && !n.res.HighPriority {
		if !n.awaitUser {
			n.awaitUser = true
			return &Update{ID: id, State: StatePending}, false
		}
		return nil, false
	}
	if n.awaitUser {
		return nil, false
	}

	n.state = StateLoading
	n.retries++
	return &Update{ID: id, State: StateLoading, Attempt: n.retries}, true
}

func (l *Loader) load(id string) {
	l.mu.Lock()
	n, ok := l.nodes[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	res := n.res
	attempt := n.retries
	l.mu.Unlock()

	go func() {
		err := l.fetcher.Load(context.Background(), res)
		l.complete(id, attempt, err)
	}()
}

func (l *Loader) complete(id string, attempt int, err error) {
	l.mu.Lock()
	n, ok := l.nodes[id]
	if !ok || n.state != StateLoading {
		l.mu.Unlock()
		return
	}

	if err == nil {
		n.state = StateLoaded
		if n.timer != nil {
			n.timer.Stop()
			n.timer = nil
		}
		update := Update{ID: id, State: StateLoaded, Attempt: attempt}
		l.mu.Unlock()
		l.emit(&update)
		return
	}

	if n.retries >= l.maxRetries {
		n.state = StateFailed
		n.inView = false // stop observing; only a manual retry revives it
		update := Update{ID: id, State: StateFailed, Attempt: attempt, Err: err}
		l.mu.Unlock()
		debuglog.Warnf("lazy: %s permanently failed after %d attempts: %v", id, attempt, err)
		l.emit(&update)
		return
	}

	// Linearly increasing delay before the next attempt
	n.state = StatePending
	delay := l.retryDelay * time.Duration(n.retries)
	n.timer = time.AfterFunc(delay, func() { l.retry(id) })
	update := Update{ID: id, State: StatePending, Attempt: attempt, Err: err}
	l.mu.Unlock()
	debuglog.Debugf("lazy: %s attempt %d failed, retrying in %s: %v", id, attempt, delay, err)
	l.emit(&update)
}

func (l *Loader) retry(id string) {
	l.mu.Lock()
	n, ok := l.nodes[id]
	if !ok {
		l.mu.Unlock()
		return
	}
	n.timer = nil
	update, start := l.maybeStartLocked(id)
	l.mu.Unlock()

	l.emit(update)
	if start {
		l.load(id)
	}
}

func (l *Loader) emit(u *Update) {
	if u != nil && l.notify != nil {
		l.notify(*u)
	}
}

// HTTPFetcher loads resources over HTTP, dispatching on kind: videos are
// probed with HEAD, everything else is fetched with GET.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (f *HTTPFetcher) Load(ctx context.Context, res Resource) error {
	method := http.MethodGet
	if res.Kind == KindVideo {
		method = http.MethodHead
	}

	req, err := http.NewRequestWithContext(ctx, method, res.URL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("loading %s: %w", res.Kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("loading %s: HTTP %d", res.Kind, resp.StatusCode)
	}
	return nil
}
