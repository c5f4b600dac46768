package navigate

import (
	"sync"
	"time"

	"github.com/starford/kasten/internal/models"
)

// Debouncer runs at most one pending callback. Scheduling a new callback
// cancels the pending one, so only the last call in a burst fires.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewDebouncer returns a Debouncer that waits delay before firing.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Schedule replaces any pending callback with fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		// A timer that already fired before Stop still runs; drop it.
		if current {
			fn()
		}
	})
}

// Stop cancels the pending callback, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// RowSource returns the rows currently on screen, in tree order.
type RowSource func() []models.Row

// Target is called with the resolved row for the last requested address.
type Target func(input string, row models.Row)

// Navigator turns a stream of cursor moves into debounced resolutions.
type Navigator struct {
	rows RowSource
	sink Target
	deb  *Debouncer
}

// NewNavigator wires a row source and a sink behind a debouncer.
func NewNavigator(rows RowSource, sink Target, delay time.Duration) *Navigator {
	return &Navigator{rows: rows, sink: sink, deb: NewDebouncer(delay)}
}

// Move schedules a resolution of input. Rows are read when the timer fires,
// not when Move is called. Nothing is delivered for an empty outline.
func (n *Navigator) Move(input string) {
	n.deb.Schedule(func() {
		if row, ok := Resolve(n.rows(), input); ok {
			n.sink(input, row)
		}
	})
}

// Close cancels any pending resolution.
func (n *Navigator) Close() {
	n.deb.Stop()
}
