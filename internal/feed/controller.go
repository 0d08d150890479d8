package feed

import (
	"fmt"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/debuglog"
)

// State is the fetch state of one feed view.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Query is the snapshot of view parameters a page request was issued under.
type Query struct {
	Sort   SortKey
	Filter card.Verdict
	Search string
}

// Request identifies one page fetch. Generation ties the response back to
// the view state that issued it: responses carrying an older generation
// are stale and get discarded.
type Request struct {
	Page       int
	Generation uint64
	Query      Query
}

// PageResult is a settled page fetch.
type PageResult struct {
	Cards   []*card.Card
	HasMore bool
}

// Outcome reports what Complete did with a settled fetch.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeStale
	OutcomeFailed
)

// Controller coordinates paginated fetching, the render diff and the
// infinite-scroll sentinel for one feed view. It never performs I/O
// itself: Begin* hands out a Request, the caller fetches, and Complete
// applies the settled result. All methods are meant to be called from a
// single event loop.
type Controller struct {
	store    *Store
	state    State
	lastErr  error
	page     int
	hasMore  bool
	gen      uint64
	inflight *Request
	rendered []string
}

func NewController(store *Store) *Controller {
	return &Controller{
		store:   store,
		state:   StateIdle,
		hasMore: true,
	}
}

func (c *Controller) Store() *Store { return c.store }
func (c *Controller) State() State  { return c.state }
func (c *Controller) Err() error    { return c.lastErr }
func (c *Controller) Page() int     { return c.page }
func (c *Controller) HasMore() bool { return c.hasMore }

func (c *Controller) query() Query {
	return Query{
		Sort:   c.store.Sort(),
		Filter: c.store.Filter(),
		Search: c.store.Search(),
	}
}

// BeginFirstPage resets the view and starts a fetch of page 1. Allowed
// from any state; an in-flight fetch is superseded by the generation bump.
func (c *Controller) BeginFirstPage() Request {
	c.store.Reset()
	c.page = 0
	c.hasMore = true
	c.lastErr = nil
	c.gen++
	c.state = StateFetching

	req := Request{Page: 1, Generation: c.gen, Query: c.query()}
	c.inflight = &req
	debuglog.Debugf("feed: begin first page gen=%d", c.gen)
	return req
}

// BeginNextPage starts a fetch of the next page. Refused while a fetch is
// outstanding or when the server said there is nothing more.
func (c *Controller) BeginNextPage() (Request, bool) {
	if c.state == StateFetching || !c.hasMore {
		return Request{}, false
	}

	c.state = StateFetching
	c.lastErr = nil
	req := Request{Page: c.page + 1, Generation: c.gen, Query: c.query()}
	c.inflight = &req
	debuglog.Debugf("feed: begin page %d gen=%d", req.Page, c.gen)
	return req, true
}

// Complete applies a settled fetch. Stale responses, identified by a
// generation older than the current one, are dropped without touching any
// state; the fetch that superseded them is already in flight.
func (c *Controller) Complete(req Request, res PageResult, err error) Outcome {
	if req.Generation != c.gen {
		debuglog.Debugf("feed: drop stale page %d gen=%d (current %d)", req.Page, req.Generation, c.gen)
		return OutcomeStale
	}
	if c.inflight == nil || c.inflight.Page != req.Page {
		return OutcomeStale
	}
	c.inflight = nil

	if err != nil {
		c.state = StateError
		c.lastErr = fmt.Errorf("fetching page %d: %w", req.Page, err)
		debuglog.Warnf("feed: page %d failed: %v", req.Page, err)
		return OutcomeFailed
	}

	added := c.store.MergePage(res.Cards)
	c.page = req.Page
	c.hasMore = res.HasMore
	c.state = StateIdle
	debuglog.Debugf("feed: page %d applied, %d new items, hasMore=%v", req.Page, added, res.HasMore)
	return OutcomeApplied
}

// ClearError acknowledges a surfaced error and returns the view to idle so
// the user can retry.
func (c *Controller) ClearError() {
	if c.state == StateError {
		c.state = StateIdle
		c.lastErr = nil
	}
}

// Invalidate bumps the generation after a filter, sort or search change so
// that any in-flight page settles as stale. The caller decides whether to
// re-fetch from the server or just re-derive locally.
func (c *Controller) Invalidate() {
	c.gen++
	c.inflight = nil
	if c.state == StateFetching {
		c.state = StateIdle
	}
}

// AddLocalItem front-inserts a locally produced card and reports whether
// it was new.
func (c *Controller) AddLocalItem(item *card.Card) bool {
	return c.store.AddLocalItem(item)
}

// NearEnd reports whether the given visible index is close enough to the
// end of the list that the sentinel should trigger the next page.
func (c *Controller) NearEnd(index, total, threshold int) bool {
	if total == 0 {
		return false
	}
	return index >= total-threshold
}

// RenderPlan is the diff between the materialized rows and the freshly
// derived visible set.
type RenderPlan struct {
	// Full means the whole view must be rebuilt in Visible order.
	Full bool
	// Appended holds the new tail items when the previous rows are a
	// prefix of the new order and can stay in place.
	Appended []*card.Card
	// Removed lists ids whose rows (and lazy resources) must go away.
	Removed []string
	// Visible is the complete derived set in display order.
	Visible []*card.Card
}

// Plan derives the visible set and diffs it against what was materialized
// by the previous plan. When the old rows form a prefix of the new order
// the plan is append-only; anything else falls back to a full rebuild.
func (c *Controller) Plan() RenderPlan {
	visible := c.store.Visible()

	ids := make([]string, len(visible))
	present := make(map[string]struct{}, len(visible))
	for i, item := range visible {
		ids[i] = item.ID
		present[item.ID] = struct{}{}
	}

	var removed []string
	for _, id := range c.rendered {
		if _, ok := present[id]; !ok {
			removed = append(removed, id)
		}
	}

	plan := RenderPlan{Visible: visible, Removed: removed}

	if len(removed) == 0 && isPrefix(c.rendered, ids) {
		plan.Appended = visible[len(c.rendered):]
	} else {
		plan.Full = true
	}

	c.rendered = ids
	return plan
}

func isPrefix(prefix, full []string) bool {
	if len(prefix) > len(full) {
		return false
	}
	for i, id := range prefix {
		if full[i] != id {
			return false
		}
	}
	return true
}
