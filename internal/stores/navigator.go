package stores

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/desertthunder/mediax/internal/shared"
)

// Well-known locations.
const (
	LoginPath  = "/login"
	SearchPath = "/search"
	FilesPath  = "/files"
)

// Location is a path plus its query string.
type Location struct {
	Path  string
	Query url.Values
}

// ParseLocation splits raw into a [Location]. A missing path is "/".
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("%w: location %q", shared.ErrInvalidArgument, raw)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return Location{Path: path, Query: u.Query()}, nil
}

// String formats the location as path?query.
func (l Location) String() string {
	if q := l.Query.Encode(); q != "" {
		return l.Path + "?" + q
	}
	return l.Path
}

// LocationListener runs after navigation lands on the path it was registered for.
type LocationListener func(Location)

type listener struct {
	id int
	fn LocationListener
}

// Navigator is an in-memory browser history.
//
// Navigation is the trigger for fetches: stores register a listener for their path, so pushing a location, going
// back or going forward all re-fetch. Listeners run synchronously in the navigating goroutine, outside the lock.
type Navigator struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	nextID    int
	listeners map[string][]listener
}

// NewNavigator creates a history positioned at "/".
func NewNavigator() *Navigator {
	return &Navigator{
		entries:   []Location{{Path: "/", Query: url.Values{}}},
		listeners: map[string][]listener{},
	}
}

// Listen registers fn for path and returns a function that removes it.
func (n *Navigator) Listen(path string, fn LocationListener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.listeners[path] = append(n.listeners[path], listener{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		ls := n.listeners[path]
		for i, l := range ls {
			if l.id == id {
				n.listeners[path] = append(ls[:i:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Push appends raw after the current entry, discarding any forward history.
func (n *Navigator) Push(raw string) error {
	loc, err := ParseLocation(raw)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.entries = append(n.entries[:n.index+1], loc)
	n.index = len(n.entries) - 1
	fns := n.listenersFor(loc.Path)
	n.mu.Unlock()

	dispatch(fns, loc)
	return nil
}

// Replace swaps the current entry for raw.
func (n *Navigator) Replace(raw string) error {
	loc, err := ParseLocation(raw)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.entries[n.index] = loc
	fns := n.listenersFor(loc.Path)
	n.mu.Unlock()

	dispatch(fns, loc)
	return nil
}

// Back moves one entry back. It reports false at the start of history.
func (n *Navigator) Back() bool {
	return n.move(-1)
}

// Forward moves one entry forward. It reports false at the end of history.
func (n *Navigator) Forward() bool {
	return n.move(1)
}

func (n *Navigator) move(delta int) bool {
	n.mu.Lock()
	next := n.index + delta
	if next < 0 || next >= len(n.entries) {
		n.mu.Unlock()
		return false
	}
	n.index = next
	loc := n.entries[next]
	fns := n.listenersFor(loc.Path)
	n.mu.Unlock()

	dispatch(fns, loc)
	return true
}

// Current returns the current entry.
func (n *Navigator) Current() Location {
	n.mu.Lock()
	defer n.mu.Unlock()
	return copyLocation(n.entries[n.index])
}

// Len returns the number of entries in history.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.entries)
}

// listenersFor snapshots the listeners for path. Caller holds mu.
func (n *Navigator) listenersFor(path string) []LocationListener {
	ls := n.listeners[path]
	fns := make([]LocationListener, len(ls))
	for i, l := range ls {
		fns[i] = l.fn
	}
	return fns
}

func dispatch(fns []LocationListener, loc Location) {
	for _, fn := range fns {
		fn(copyLocation(loc))
	}
}

func copyLocation(l Location) Location {
	q := make(url.Values, len(l.Query))
	for k, v := range l.Query {
		q[k] = append([]string(nil), v...)
	}
	return Location{Path: l.Path, Query: q}
}
