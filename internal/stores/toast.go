package stores

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/shared"
)

// Level is the severity of a [Toast].
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Toast is a transient user-facing notice.
type Toast struct {
	Level   Level
	Message string
	At      time.Time
}

// Notifier receives toasts from the stores. Implementations must not block.
type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// LogNotifier writes toasts to a [log.Logger].
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier creates a [LogNotifier]. A nil logger writes to stderr.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(t Toast) {
	switch t.Level {
	case LevelError:
		n.logger.Error(t.Message)
	case LevelSuccess:
		n.logger.Info(t.Message, "status", "ok")
	default:
		n.logger.Info(t.Message)
	}
}

// ToastQueue buffers toasts for a UI to drain. Sends never block; toasts arriving while the buffer is full are
// dropped.
type ToastQueue struct {
	ch chan Toast
}

// NewToastQueue creates a queue holding up to size toasts.
func NewToastQueue(size int) *ToastQueue {
	if size < 1 {
		size = 1
	}
	return &ToastQueue{ch: make(chan Toast, size)}
}

func (q *ToastQueue) Notify(t Toast) {
	select {
	case q.ch <- t:
	default:
	}
}

// C returns the receive side of the queue.
func (q *ToastQueue) C() <-chan Toast { return q.ch }

// Drain returns every buffered toast without waiting.
func (q *ToastQueue) Drain() []Toast {
	var out []Toast
	for {
		select {
		case t := <-q.ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

// MultiNotifier fans a toast out to several notifiers.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(t Toast) {
	for _, n := range m {
		if n != nil {
			n.Notify(t)
		}
	}
}

// Recorder keeps every toast it receives. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Notify(t Toast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, t)
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Last returns the most recent toast.
func (r *Recorder) Last() (Toast, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return Toast{}, false
	}
	return r.toasts[len(r.toasts)-1], true
}

// Count returns how many toasts of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.toasts {
		if t.Level == level {
			n++
		}
	}
	return n
}

// toaster stamps and sends toasts for a store.
type toaster struct {
	notifier Notifier
	clock    shared.Clock
}

func newToaster(n Notifier, clock shared.Clock) toaster {
	if n == nil {
		n = NotifierFunc(func(Toast) {})
	}
	if clock == nil {
		clock = shared.RealClock{}
	}
	return toaster{notifier: n, clock: clock}
}

func (t toaster) send(level Level, msg string) {
	t.notifier.Notify(Toast{Level: level, Message: msg, At: t.clock.Now()})
}

func (t toaster) info(msg string)    { t.send(LevelInfo, msg) }
func (t toaster) success(msg string) { t.send(LevelSuccess, msg) }
func (t toaster) fail(msg string)    { t.send(LevelError, msg) }
