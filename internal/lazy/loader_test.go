package lazy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFetcher fails a configurable number of times before succeeding.
type scriptedFetcher struct {
	mu       sync.Mutex
	failures int
	calls    int
	block    chan struct{} // when set, Load waits until closed
}

func (f *scriptedFetcher) Load(_ context.Context, _ Resource) error {
	f.mu.Lock()
	f.calls++
	shouldFail := f.calls <= f.failures
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if shouldFail {
		return errors.New("synthetic load failure")
	}
	return nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func collectUpdates() (func(Update), chan Update) {
	ch := make(chan Update, 64)
	return func(u Update) { ch <- u }, ch
}

func waitForState(t *testing.T, ch chan Update, id string, want LoadState) Update {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case u := <-ch:
			if u.ID == id && u.State == want {
				return u
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s to reach %s", id, want)
		}
	}
}

func testOptions() Options {
	return Options{MaxRetries: 3, RetryDelay: 5 * time.Millisecond}
}

func TestLoadOnViewportEntry(t *testing.T) {
	fetcher := &scriptedFetcher{}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, testOptions(), notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})

	// Observation alone must not load
	state, ok := l.State("n1")
	require.True(t, ok)
	assert.Equal(t, StatePending, state)
	assert.Zero(t, fetcher.callCount())

	l.EnterViewport("n1")
	waitForState(t, updates, "n1", StateLoaded)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestViewportReentryDoesNotDuplicateLoad(t *testing.T) {
	fetcher := &scriptedFetcher{block: make(chan struct{})}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, testOptions(), notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")
	l.LeaveViewport("n1")
	l.EnterViewport("n1")
	l.EnterViewport("n1")

	close(fetcher.block)
	waitForState(t, updates, "n1", StateLoaded)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestRetriesThenPermanentFailure(t *testing.T) {
	fetcher := &scriptedFetcher{failures: 10}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, testOptions(), notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")

	u := waitForState(t, updates, "n1", StateFailed)
	assert.Equal(t, 3, u.Attempt)
	assert.Error(t, u.Err)
	assert.Equal(t, 3, fetcher.callCount())

	// No further automatic attempts after permanent failure
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, fetcher.callCount())
}

func TestManualRetryAfterFailure(t *testing.T) {
	fetcher := &scriptedFetcher{failures: 3}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, testOptions(), notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")
	waitForState(t, updates, "n1", StateFailed)

	// The fourth call succeeds; manual retry must reach loaded
	l.RetryManually("n1")
	waitForState(t, updates, "n1", StateLoaded)
	assert.Equal(t, 4, fetcher.callCount())
}

func TestManualRetryCancelsPendingRetryTimer(t *testing.T) {
	fetcher := &scriptedFetcher{failures: 1}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, Options{MaxRetries: 3, RetryDelay: time.Hour}, notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")

	// First attempt fails and arms an automatic retry far in the future
	waitForState(t, updates, "n1", StatePending)
	l.mu.Lock()
	require.NotNil(t, l.nodes["n1"].timer)
	l.mu.Unlock()

	// The manual load takes over; the stale timer must be gone
	l.RetryManually("n1")
	l.mu.Lock()
	assert.Nil(t, l.nodes["n1"].timer)
	l.mu.Unlock()

	waitForState(t, updates, "n1", StateLoaded)
	assert.Equal(t, 2, fetcher.callCount())
}

func TestObserveIgnoresSettledNodes(t *testing.T) {
	fetcher := &scriptedFetcher{}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, testOptions(), notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")
	waitForState(t, updates, "n1", StateLoaded)

	// Re-observing a loaded node must not restart it
	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestEagerModeLoadsOnObserve(t *testing.T) {
	fetcher := &scriptedFetcher{}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, Options{MaxRetries: 3, RetryDelay: 5 * time.Millisecond, Eager: true}, notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	waitForState(t, updates, "n1", StateLoaded)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestVisibilityPause(t *testing.T) {
	fetcher := &scriptedFetcher{}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, testOptions(), notify)

	l.SetDocumentVisible(false)
	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, fetcher.callCount())
	state, _ := l.State("n1")
	assert.Equal(t, StatePending, state)

	// Returning to visibility resumes pending in-view nodes exactly once
	l.SetDocumentVisible(true)
	waitForState(t, updates, "n1", StateLoaded)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestConstrainedConnectionDefersToManualLoad(t *testing.T) {
	fetcher := &scriptedFetcher{}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, Options{MaxRetries: 3, RetryDelay: 5 * time.Millisecond, Constrained: true}, notify)

	l.Observe("low", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("low")

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, fetcher.callCount())
	assert.True(t, l.AwaitingManualLoad("low"))

	// High-priority resources bypass the policy
	l.Observe("high", Resource{URL: "https://example.com/b.png", Kind: KindImage, HighPriority: true})
	l.EnterViewport("high")
	waitForState(t, updates, "high", StateLoaded)

	// Manual action loads the deferred one
	l.RetryManually("low")
	waitForState(t, updates, "low", StateLoaded)
	assert.False(t, l.AwaitingManualLoad("low"))
}

func TestUnobserveStopsTracking(t *testing.T) {
	fetcher := &scriptedFetcher{failures: 10}
	notify, updates := collectUpdates()
	l := NewLoader(fetcher, Options{MaxRetries: 3, RetryDelay: 50 * time.Millisecond}, notify)

	l.Observe("n1", Resource{URL: "https://example.com/a.png", Kind: KindImage})
	l.EnterViewport("n1")
	waitForState(t, updates, "n1", StateLoading)

	l.Unobserve("n1")
	_, ok := l.State("n1")
	assert.False(t, ok)

	// The retry timer must not resurrect a dropped node
	time.Sleep(150 * time.Millisecond)
	assert.LessOrEqual(t, fetcher.callCount(), 1)
}

func TestDetectKind(t *testing.T) {
	d, err := NewDetector()
	require.NoError(t, err)

	tests := []struct {
		url  string
		want Kind
	}{
		{"https://example.com/photo.jpg", KindImage},
		{"https://example.com/photo.PNG?w=300", KindImage},
		{"https://via.placeholder.com/300x200/10b981/ffffff", KindImage},
		{"https://example.com/clip.mp4", KindVideo},
		{"https://www.youtube.com/watch?v=abc123", KindVideo},
		{"https://vimeo.com/12345", KindVideo},
		{"https://example.com/article.html", KindIframe},
		{"https://example.com/embed", KindIframe},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, d.DetectKind(tt.url), "url %s", tt.url)
	}
}
