package feed

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmherbst/verifeed/internal/card"
)

func makePage(prefix string, n int, start time.Time) []*card.Card {
	cards := make([]*card.Card, n)
	for i := 0; i < n; i++ {
		cards[i] = newCard(fmt.Sprintf("%s-%d", prefix, i), card.VerdictReal, 0.5, start.Add(time.Duration(i)*time.Minute))
	}
	return cards
}

func TestFirstPageLifecycle(t *testing.T) {
	c := NewController(NewStore())
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	req := c.BeginFirstPage()
	assert.Equal(t, 1, req.Page)
	assert.Equal(t, StateFetching, c.State())

	outcome := c.Complete(req, PageResult{Cards: makePage("p1", 10, base), HasMore: true}, nil)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, c.Page())
	assert.True(t, c.HasMore())
	assert.Equal(t, 10, c.Store().Len())
}

func TestNextPageRefusedWhileFetching(t *testing.T) {
	c := NewController(NewStore())
	base := time.Now()

	req := c.BeginFirstPage()
	c.Complete(req, PageResult{Cards: makePage("p1", 5, base), HasMore: true}, nil)

	req2, ok := c.BeginNextPage()
	require.True(t, ok)
	assert.Equal(t, 2, req2.Page)

	// A second call before the first settles must be a no-op
	_, ok = c.BeginNextPage()
	assert.False(t, ok)

	c.Complete(req2, PageResult{Cards: makePage("p2", 5, base.Add(time.Hour)), HasMore: false}, nil)
	assert.Equal(t, 10, c.Store().Len())
	assert.False(t, c.HasMore())

	// hasMore=false refuses further pages
	_, ok = c.BeginNextPage()
	assert.False(t, ok)
}

func TestFetchErrorSurfacesAndRecovers(t *testing.T) {
	c := NewController(NewStore())

	req := c.BeginFirstPage()
	outcome := c.Complete(req, PageResult{}, errors.New("connection refused"))
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, StateError, c.State())
	require.Error(t, c.Err())
	assert.Contains(t, c.Err().Error(), "connection refused")

	c.ClearError()
	assert.Equal(t, StateIdle, c.State())
	assert.NoError(t, c.Err())

	// Retry works after acknowledging the error
	req = c.BeginFirstPage()
	outcome = c.Complete(req, PageResult{Cards: makePage("p1", 3, time.Now()), HasMore: false}, nil)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, 3, c.Store().Len())
}

func TestStaleResponseDiscarded(t *testing.T) {
	c := NewController(NewStore())
	base := time.Now()

	stale := c.BeginFirstPage()

	// A search change supersedes the outstanding fetch
	c.Store().ApplySearch("new term")
	c.Invalidate()
	fresh := c.BeginFirstPage()

	// The superseded response arrives late and must be dropped silently
	outcome := c.Complete(stale, PageResult{Cards: makePage("stale", 10, base), HasMore: true}, nil)
	assert.Equal(t, OutcomeStale, outcome)
	assert.Zero(t, c.Store().Len())
	assert.Equal(t, StateFetching, c.State())

	outcome = c.Complete(fresh, PageResult{Cards: makePage("fresh", 4, base), HasMore: false}, nil)
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, 4, c.Store().Len())
}

func TestPlanAppendOnly(t *testing.T) {
	c := NewController(NewStore())
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Newest-first time sort with older pages arriving later keeps the
	// previously rendered rows as a prefix.
	req := c.BeginFirstPage()
	c.Complete(req, PageResult{Cards: []*card.Card{
		newCard("n1", card.VerdictReal, 0.5, base.Add(3*time.Hour)),
		newCard("n2", card.VerdictReal, 0.5, base.Add(2*time.Hour)),
	}, HasMore: true}, nil)

	plan := c.Plan()
	assert.False(t, plan.Full)
	assert.Len(t, plan.Appended, 2)
	assert.Empty(t, plan.Removed)

	req2, ok := c.BeginNextPage()
	require.True(t, ok)
	c.Complete(req2, PageResult{Cards: []*card.Card{
		newCard("n3", card.VerdictReal, 0.5, base.Add(time.Hour)),
	}, HasMore: false}, nil)

	plan = c.Plan()
	assert.False(t, plan.Full)
	require.Len(t, plan.Appended, 1)
	assert.Equal(t, "n3", plan.Appended[0].ID)
}

func TestPlanFullRebuildOnReorder(t *testing.T) {
	c := NewController(NewStore())
	base := time.Now()

	req := c.BeginFirstPage()
	c.Complete(req, PageResult{Cards: []*card.Card{
		newCard("a", card.VerdictReal, 0.3, base.Add(2*time.Hour)),
		newCard("b", card.VerdictFake, 0.9, base.Add(time.Hour)),
	}, HasMore: false}, nil)
	c.Plan()

	// Sort change reorders rows: the old prefix no longer holds
	c.Store().ApplySort(SortByConfidence)
	plan := c.Plan()
	assert.True(t, plan.Full)
	require.Len(t, plan.Visible, 2)
	assert.Equal(t, "b", plan.Visible[0].ID)
}

func TestPlanReportsRemovals(t *testing.T) {
	c := NewController(NewStore())
	base := time.Now()

	req := c.BeginFirstPage()
	c.Complete(req, PageResult{Cards: []*card.Card{
		newCard("keep", card.VerdictReal, 0.5, base),
		newCard("drop", card.VerdictFake, 0.5, base),
	}, HasMore: false}, nil)
	c.Plan()

	c.Store().ApplyFilter(card.VerdictReal)
	plan := c.Plan()
	assert.True(t, plan.Full)
	assert.Equal(t, []string{"drop"}, plan.Removed)
	require.Len(t, plan.Visible, 1)
	assert.Equal(t, "keep", plan.Visible[0].ID)
}

func TestAddLocalItemRenders(t *testing.T) {
	c := NewController(NewStore())
	base := time.Now()

	req := c.BeginFirstPage()
	c.Complete(req, PageResult{Cards: makePage("p1", 2, base.Add(-time.Hour)), HasMore: false}, nil)
	c.Plan()

	mine := newCard("mine", card.VerdictFake, 0.95, base)
	assert.True(t, c.AddLocalItem(mine))

	plan := c.Plan()
	require.NotEmpty(t, plan.Visible)
	assert.Equal(t, "mine", plan.Visible[0].ID)
}

func TestNearEnd(t *testing.T) {
	c := NewController(NewStore())

	assert.False(t, c.NearEnd(0, 0, 3))
	assert.False(t, c.NearEnd(5, 20, 3))
	assert.True(t, c.NearEnd(17, 20, 3))
	assert.True(t, c.NearEnd(19, 20, 3))
}
