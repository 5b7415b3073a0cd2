package stores

import (
	"context"
	"errors"
	"sync"

	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
)

// ErrSuperseded is returned by a fetch whose response arrived after a newer fetch started.
var ErrSuperseded = errors.New("superseded by a newer request")

// fence orders fetches: each one takes the next sequence number and cancels the one before it, and only the
// latest sequence may apply its response. Callers hold the owning store's lock around every method.
type fence struct {
	seq    uint64
	cancel context.CancelFunc
}

// begin cancels the in-flight fetch and returns the context and sequence number for a new one.
func (f *fence) begin(parent context.Context) (context.Context, uint64) {
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	f.seq++
	f.cancel = cancel
	return ctx, f.seq
}

// end reports whether seq is still the latest fetch, releasing its context if so.
func (f *fence) end(seq uint64) bool {
	if seq != f.seq {
		return false
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	return true
}

// stop cancels the in-flight fetch and invalidates it.
func (f *fence) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.seq++
}

// watchers is a list of change callbacks, run outside any store lock.
type watchers struct {
	mu  sync.Mutex
	fns []func()
}

// OnChange registers fn to run after the store's state changes.
func (w *watchers) OnChange(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fns = append(w.fns, fn)
}

func (w *watchers) notify() {
	w.mu.Lock()
	fns := append([]func(){}, w.fns...)
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// quiet reports whether err needs no toast of its own: cancellations, and 401s which the session reports.
func quiet(err error) bool {
	return services.IsCanceled(err) || errors.Is(err, shared.ErrNotAuthenticated)
}
