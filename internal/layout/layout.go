package layout

import (
	"sort"
	"sync"
	"time"
)

// Breakpoint maps a minimum container width to a column count.
type Breakpoint struct {
	MinWidth int
	Columns  int
}

// DefaultBreakpoints is the stock responsive table for pixel-sized
// containers. Terminal consumers pass their own cell-sized table.
var DefaultBreakpoints = []Breakpoint{
	{MinWidth: 1400, Columns: 5},
	{MinWidth: 1200, Columns: 4},
	{MinWidth: 1024, Columns: 3},
	{MinWidth: 768, Columns: 2},
}

// Layout is the derived grid geometry for a container width.
type Layout struct {
	Width     int
	Columns   int
	CardWidth int
}

// Config carries the knobs for an Engine.
type Config struct {
	Breakpoints  []Breakpoint
	MinCardWidth int
	Gap          int
	// Debounce delays resize-driven recomputation so sub-pixel jitter
	// does not trigger relayout storms. Zero recomputes immediately.
	Debounce time.Duration
}

// Engine maps container width to column count and card width. Resize
// events are debounced and the observer is only notified when the column
// count actually changes.
type Engine struct {
	breakpoints  []Breakpoint
	minCardWidth int
	gap          int
	debounce     time.Duration
	onChange     func(Layout)

	mu           sync.Mutex
	current      Layout
	pendingWidth int
	timer        *time.Timer
}

func NewEngine(cfg Config, onChange func(Layout)) *Engine {
	bps := make([]Breakpoint, len(cfg.Breakpoints))
	copy(bps, cfg.Breakpoints)
	if len(bps) == 0 {
		bps = append(bps, DefaultBreakpoints...)
	}
	// Widest first so the first match wins
	sort.Slice(bps, func(i, j int) bool { return bps[i].MinWidth > bps[j].MinWidth })

	minWidth := cfg.MinCardWidth
	if minWidth < 1 {
		minWidth = 1
	}

	return &Engine{
		breakpoints:  bps,
		minCardWidth: minWidth,
		gap:          cfg.Gap,
		debounce:     cfg.Debounce,
		onChange:     onChange,
	}
}

// Columns returns the column count for a container width: the breakpoint
// table answer, clamped down until the columns fit the minimum card width
// and gaps.
func (e *Engine) Columns(width int) int {
	cols := 1
	for _, bp := range e.breakpoints {
		if width >= bp.MinWidth {
			cols = bp.Columns
			break
		}
	}

	for cols > 1 && cols*e.minCardWidth+(cols-1)*e.gap > width {
		cols--
	}
	if cols < 1 {
		cols = 1
	}
	return cols
}

// CardWidth derives the per-card width for a container width and column
// count.
func (e *Engine) CardWidth(width, cols int) int {
	if cols < 1 {
		cols = 1
	}
	w := (width - e.gap*(cols-1)) / cols
	if w < 0 {
		w = 0
	}
	return w
}

// Compute derives the full layout for a width without touching engine
// state.
func (e *Engine) Compute(width int) Layout {
	cols := e.Columns(width)
	return Layout{Width: width, Columns: cols, CardWidth: e.CardWidth(width, cols)}
}

// Current returns the last applied layout.
func (e *Engine) Current() Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Resize records a new container width and schedules a debounced
// recomputation. With zero debounce the layout is applied synchronously.
func (e *Engine) Resize(width int) {
	e.mu.Lock()
	e.pendingWidth = width

	if e.debounce <= 0 {
		e.mu.Unlock()
		e.Flush()
		return
	}

	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.Flush)
	e.mu.Unlock()
}

// Flush applies the pending width immediately. The observer is notified
// only when the column count changed; equal-column recomputation is
// redundant and gets skipped.
func (e *Engine) Flush() {
	e.mu.Lock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	width := e.pendingWidth
	if width <= 0 || width == e.current.Width {
		e.mu.Unlock()
		return
	}

	next := e.Compute(width)
	changed := next.Columns != e.current.Columns
	e.current = next
	notify := e.onChange
	e.mu.Unlock()

	if changed && notify != nil {
		notify(next)
	}
}
