package stores

import (
	"context"
	"database/sql"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/repositories"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
)

// AppOpts configures [NewApp].
type AppOpts struct {
	Config   *shared.Config
	DB       *sql.DB // nil disables local persistence
	Notifier Notifier
	Logger   *log.Logger
	Clock    shared.Clock
	IDs      shared.IDGenerator

	// Transport and Dialer replace the network stack, mostly in tests.
	Transport  http.RoundTripper
	Dialer     *websocket.Dialer
	Middleware []services.Middleware
}

// App is the set of stores a front-end works with, constructed and wired explicitly.
type App struct {
	Client    *services.Client
	Navigator *Navigator
	Session   *Session
	Search    *Search
	Files     *Files
	Listener  *Listener
	Notifier  Notifier
	Logger    *log.Logger
}

// NewApp builds the client and stores and wires them together:
//
//	client 401          -> Session.Expire
//	session credential  -> Listener.Connect
//	listener revision   -> Files.Refresh
func NewApp(opts AppOpts) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NewLogNotifier(opts.Logger)
	}

	clientOpts := services.ClientOpts{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout.Duration,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            shared.WithLogger(opts.Logger, "component", "client"),
		Transport:         opts.Transport,
		Middleware:        opts.Middleware,
	}

	client, err := services.NewClient(clientOpts)
	if err != nil {
		return nil, err
	}

	nav := NewNavigator()

	var sessionRepo SessionRepository
	if opts.DB != nil && cfg.Session.Persist {
		sessionRepo = repositories.NewSessionRepository(opts.DB, opts.Clock)
	}

	session := NewSession(SessionOpts{
		Client:          client,
		Navigator:       nav,
		Notifier:        opts.Notifier,
		Repo:            sessionRepo,
		Logger:          opts.Logger,
		Clock:           opts.Clock,
		RefreshInterval: cfg.Session.RefreshInterval.Duration,
	})

	search := NewSearch(SearchOpts{
		Client:    client,
		Navigator: nav,
		Notifier:  opts.Notifier,
		History:   newHistory(cfg, opts.DB, client),
		Logger:    opts.Logger,
		Clock:     opts.Clock,
		Debounce:  cfg.Search.Debounce.Duration,
		PageSize:  cfg.Search.PageSize,
	})

	files := NewFiles(FilesOpts{
		Client:        client,
		Navigator:     nav,
		Notifier:      opts.Notifier,
		Logger:        opts.Logger,
		Clock:         opts.Clock,
		IDs:           opts.IDs,
		PageSize:      cfg.Files.PageSize,
		MaxUploadSize: cfg.Files.MaxUploadSize,
	})

	listener := NewListener(ListenerOpts{
		URL:              ClientURL(client),
		Dialer:           opts.Dialer,
		Notifier:         opts.Notifier,
		Logger:           opts.Logger,
		ReconnectDelay:   cfg.Notifications.ReconnectDelay.Duration,
		InvalidateWindow: cfg.Notifications.InvalidateWindow.Duration,
	})

	if cfg.Notifications.Enabled {
		session.OnCredential(func(token *oauth2.Token) { listener.Connect(token) })
	}
	listener.OnRevision(func(uint64) { files.Refresh() })

	return &App{
		Client:    client,
		Navigator: nav,
		Session:   session,
		Search:    search,
		Files:     files,
		Listener:  listener,
		Notifier:  opts.Notifier,
		Logger:    opts.Logger,
	}, nil
}

func newHistory(cfg *shared.Config, db *sql.DB, client *services.Client) HistoryStore {
	if cfg.Search.History == shared.HistoryRemote {
		return NewRemoteHistory(client.Media, cfg.Search.HistoryLimit)
	}
	if db == nil {
		return nil
	}
	return NewLocalHistory(repositories.NewHistoryRepository(db), cfg.Search.HistoryLimit)
}

// Start restores a prior session and loads history. It reports whether a session was restored.
func (a *App) Start(ctx context.Context) bool {
	restored := a.Session.Restore(ctx)
	if restored {
		if _, err := a.Search.LoadHistory(ctx); err != nil {
			a.Logger.Debug("failed to load history", "error", err)
		}
	}
	return restored
}

// Close stops timers, fetches and the push channel.
func (a *App) Close() {
	a.Listener.Close()
	a.Search.Close()
	a.Files.Close()
	a.Session.Close()
}
