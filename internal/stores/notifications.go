package stores

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/debounce"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
)

// Push channel timing.
const (
	DefaultReconnectDelay   = 3 * time.Second
	DefaultInvalidateWindow = 500 * time.Millisecond
)

// ListenerOpts configures a [Listener].
type ListenerOpts struct {
	// URL builds the push channel address for an access token.
	URL              func(token string) string
	Dialer           *websocket.Dialer
	Notifier         Notifier
	Logger           *log.Logger
	ReconnectDelay   time.Duration
	InvalidateWindow time.Duration
}

// Listener keeps one push channel open per credential and turns file events into a revision counter.
//
// A closed or failed channel is redialed after a fixed delay for as long as the credential is active. Bursts of
// file events inside the invalidate window bump the revision once.
type Listener struct {
	url      func(string) string
	dialer   *websocket.Dialer
	logger   *log.Logger
	toast    toaster
	delay    time.Duration
	debounce *debounce.Debouncer

	revision atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	subs   []func(uint64)
}

// NewListener creates a listener. It does nothing until [Listener.Connect].
func NewListener(opts ListenerOpts) *Listener {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.InvalidateWindow <= 0 {
		opts.InvalidateWindow = DefaultInvalidateWindow
	}

	return &Listener{
		url:      opts.URL,
		dialer:   opts.Dialer,
		logger:   shared.WithLogger(opts.Logger, "store", "notifications"),
		toast:    newToaster(opts.Notifier, nil),
		delay:    opts.ReconnectDelay,
		debounce: debounce.New(opts.InvalidateWindow),
	}
}

// ClientURL returns a URL builder for the client's push channel.
func ClientURL(c *services.Client) func(string) string {
	return func(token string) string { return c.WebSocketURL(services.NotificationsPath, token) }
}

// OnRevision registers fn to run with the new revision after file events.
func (l *Listener) OnRevision(fn func(uint64)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// Revision returns the number of debounced file invalidations so far.
func (l *Listener) Revision() uint64 {
	return l.revision.Load()
}

// Connect replaces the running connection loop with one for token. It waits for the previous loop to exit, so two
// loops never run at once. A nil token only disconnects.
func (l *Listener) Connect(token *oauth2.Token) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopLocked()

	if token == nil || token.AccessToken == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	go l.run(ctx, token.AccessToken, done)
}

// Disconnect stops the connection loop.
func (l *Listener) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Connected reports whether a connection loop is running.
func (l *Listener) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Close disconnects and drops any pending invalidation.
func (l *Listener) Close() {
	l.Disconnect()
	l.debounce.Stop()
}

// stopLocked cancels the running loop and waits for it. Caller holds mu.
func (l *Listener) stopLocked() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil
}

func (l *Listener) run(ctx context.Context, token string, done chan struct{}) {
	defer close(done)

	addr := l.url(token)
	for {
		if err := l.session(ctx, addr); err != nil && ctx.Err() == nil {
			l.logger.Debug("push channel closed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.delay):
		}
	}
}

// session dials once and reads until the channel closes or ctx ends.
func (l *Listener) session(ctx context.Context, addr string) error {
	conn, resp, err := l.dialer.DialContext(ctx, addr, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}

	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()
	defer conn.Close()

	l.logger.Debug("push channel open")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		l.handle(data)
	}
}

func (l *Listener) handle(data []byte) {
	n, err := models.ParseNotification(data)
	if err != nil {
		l.logger.Warn("dropping malformed notification", "error", err)
		return
	}

	if n.Message != "" {
		if n.IsError() {
			l.toast.fail(n.Message)
		} else {
			l.toast.info(n.Message)
		}
	}

	if n.AffectsFiles() {
		l.debounce.Call(l.bump)
	}
}

func (l *Listener) bump() {
	rev := l.revision.Add(1)

	l.mu.Lock()
	fns := append([]func(uint64){}, l.subs...)
	l.mu.Unlock()

	for _, fn := range fns {
		fn(rev)
	}
}
