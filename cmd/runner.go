package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/desertthunder/mediax/internal/stores"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	db        *sql.DB
	transport http.RoundTripper
	logger    *log.Logger
	output    io.Writer
	input     *bufio.Reader

	mu sync.Mutex // guards output; toasts arrive from the push channel goroutine
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	// DB is used instead of opening config.Database.Path.
	DB        *sql.DB
	Transport http.RoundTripper
	Logger    *log.Logger
	Output    io.Writer
	Input     io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	return &Runner{
		config:    opts.Config,
		db:        opts.DB,
		transport: opts.Transport,
		logger:    opts.Logger,
		output:    opts.Output,
		input:     bufio.NewReader(opts.Input),
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, searchCommand, detailCommand, historyCommand, filesCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open builds the stores and restores any persisted session. Live apps keep the push channel
// open while signed in. The returned func releases everything open acquired.
func (r *Runner) open(ctx context.Context, live bool, notifier stores.Notifier) (*stores.App, func(), error) {
	cfg := *r.config
	cfg.Notifications.Enabled = live && r.config.Notifications.Enabled

	db, closeDB := r.db, func() {}
	if db == nil {
		opened, err := shared.OpenDatabase(cfg.Database)
		if err != nil {
			r.logger.Warn("local storage unavailable, session will not persist", "error", err)
		} else {
			db, closeDB = opened, func() { opened.Close() }
		}
	}

	if notifier == nil {
		notifier = r.console()
	}

	app, err := stores.NewApp(stores.AppOpts{
		Config:    &cfg,
		DB:        db,
		Notifier:  notifier,
		Logger:    r.logger,
		Transport: r.transport,
	})
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	if app.Start(ctx) {
		r.logger.Debug("session restored", "user", app.Session.State().User.Username)
	}

	return app, func() { app.Close(); closeDB() }, nil
}

// authed is [Runner.open] for commands that need a signed in user.
func (r *Runner) authed(ctx context.Context, live bool) (*stores.App, func(), error) {
	app, done, err := r.open(ctx, live, nil)
	if err != nil {
		return nil, nil, err
	}
	if !app.Session.Authenticated() {
		done()
		if app.Session.Expired() {
			return nil, nil, fmt.Errorf("%w: %w: run 'mediax auth login' again", shared.ErrNotAuthenticated, shared.ErrSessionExpired)
		}
		return nil, nil, fmt.Errorf("%w: run 'mediax auth login' first", shared.ErrNotAuthenticated)
	}
	return app, done, nil
}

// console prints toasts as status lines.
func (r *Runner) console() stores.Notifier {
	return stores.NotifierFunc(func(t stores.Toast) {
		mark := "•"
		switch t.Level {
		case stores.LevelSuccess:
			mark = "✓"
		case stores.LevelError:
			mark = "✗"
		}
		r.writePlain("%s %s\n", mark, t.Message)
	})
}

// prompt reads one line of input for a value that was not passed as a flag.
func (r *Runner) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	r.writePlain("%s: ", label)
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.write(append(output, '\n'))
}

func (r *Runner) write(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	return r.write([]byte(fmt.Sprintf(format, args...)))
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
