package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/shared"
)

// LinkKind says which emailed link was opened.
type LinkKind string

const (
	LinkVerifyEmail   LinkKind = "verify-email"
	LinkResetPassword LinkKind = "reset-password"
)

// LinkResult is the token captured from an emailed link.
type LinkResult struct {
	Kind  LinkKind
	Token string
	err   error
}

func (l *LinkResult) Error() error {
	return l.err
}

var linkPage = template.Must(template.New("link").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: {{.Color}}; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

type pageData struct {
	Title   string
	Message string
	Color   template.CSS
}

// LinkHandler captures the token from the first /verify-email or /reset-password request.
type LinkHandler struct {
	resultChan chan LinkResult
	once       sync.Once
	hit        bool
	mu         sync.Mutex
}

// NewLinkHandler creates a handler waiting for one link.
func NewLinkHandler() *LinkHandler {
	return &LinkHandler{resultChan: make(chan LinkResult, 1)}
}

// Routes returns the HTTP routes this handler serves.
func (h *LinkHandler) Routes() []string {
	return []string{"/" + string(LinkVerifyEmail), "/" + string(LinkResetPassword)}
}

// ServeHTTP records the link's token and answers with a page telling the user to return to the terminal.
func (h *LinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Link already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	kind := LinkKind(r.URL.Path[1:])
	token := r.URL.Query().Get("token")
	if token == "" {
		h.Send(LinkResult{Kind: kind, err: fmt.Errorf("%w: link has no token", shared.ErrMissingArgument)})
		render(w, http.StatusBadRequest, pageData{Title: "Invalid link", Message: "The link is missing its token.", Color: "#d9534f"})
		return
	}

	h.Send(LinkResult{Kind: kind, Token: token})

	title := "Email link received"
	if kind == LinkResetPassword {
		title = "Reset link received"
	}
	render(w, http.StatusOK, pageData{Title: title, Message: "You can close this window and return to the terminal.", Color: "#2e7d32"})
}

func render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	linkPage.Execute(w, data)
}

// Send delivers the result through the channel (only once).
func (h *LinkHandler) Send(result LinkResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *LinkHandler) Result() <-chan LinkResult {
	return h.resultChan
}

// Await listens on addr and blocks until a link is opened or ctx ends.
func Await(ctx context.Context, addr string, logger *log.Logger) (LinkResult, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return LinkResult{}, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, ln, logger)
}

// Serve runs the link server on ln until a link is opened or ctx ends, then shuts it down.
func Serve(ctx context.Context, ln net.Listener, logger *log.Logger) (LinkResult, error) {
	handler := NewLinkHandler()

	router := NewBasicRouter()
	router.Use(Recover(logger), RequestLogger(logger))
	router.Handler(handler)

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("waiting for link", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	var result LinkResult
	var waitErr error

	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		waitErr = fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			waitErr = fmt.Errorf("%w: no link opened", shared.ErrTimeout)
		} else {
			waitErr = ctx.Err()
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down server", "error", err)
	}

	if waitErr != nil {
		return LinkResult{}, waitErr
	}
	if result.Error() != nil {
		return result, result.Error()
	}
	return result, nil
}
