package main

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/mediax/internal/formatter"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/desertthunder/mediax/internal/stores"
	"github.com/urfave/cli/v3"
)

// Search navigates the search store to the query built from args and flags and prints the page it fetched.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	kind, err := mediaType(cmd.String("type"))
	if err != nil {
		return err
	}

	v := url.Values{}
	v.Set("type", string(kind))
	v.Set("q", strings.Join(cmd.Args().Slice(), " "))
	v.Set("page", strconv.Itoa(cmd.Int("page")))
	if n := cmd.Int("page-size"); n > 0 {
		v.Set("page_size", strconv.Itoa(n))
	}
	for flag, key := range map[string]string{
		"license":      "license",
		"license-type": "license_type",
		"category":     "categories",
		"aspect-ratio": "aspect_ratio",
		"size":         "size",
		"length":       "length",
	} {
		for _, value := range cmd.StringSlice(flag) {
			v.Add(key, value)
		}
	}

	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	r.logger.Debug("searching", "query", v.Encode())
	if err := app.Navigator.Push(stores.SearchPath + "?" + v.Encode()); err != nil {
		return err
	}

	state := app.Search.State()
	if state.Err != nil {
		return state.Err
	}
	result := state.Result()
	if result == nil {
		return fmt.Errorf("%w: no results for %s", shared.ErrAPIRequest, v.Encode())
	}

	return r.emit(cmd, string(kind)+"-results", func(f formatter.Format) ([]byte, error) {
		return formatter.Results(f, result)
	})
}

// Detail prints one media item, optionally opening its landing page.
func (r *Runner) Detail(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: id", shared.ErrMissingArgument)
	}
	kind, err := mediaType(cmd.String("type"))
	if err != nil {
		return err
	}

	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	item, err := app.Search.Detail(ctx, kind, id)
	if err != nil {
		return err
	}

	if cmd.Bool("open") {
		if landing := item.Item().ForeignLandingURL; landing != "" {
			if err := shared.OpenBrowser(landing); err != nil {
				r.logger.Warn("failed to open browser", "url", landing, "error", err)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(item, true)
	}
	return r.write(formatter.MediaToText(item))
}

// HistoryList prints recent searches.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	return r.withHistory(ctx, func(app *stores.App) error {
		return r.write(formatter.HistoryToText(app.Search.History()))
	})
}

// HistoryDelete removes one keyword from recent searches.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	keyword := cmd.StringArg("keyword")
	if keyword == "" {
		return fmt.Errorf("%w: keyword", shared.ErrMissingArgument)
	}

	return r.withHistory(ctx, func(app *stores.App) error {
		if err := app.Search.DeleteHistory(ctx, keyword); err != nil {
			return err
		}
		return r.writePlain("✓ Removed %q\n", keyword)
	})
}

// HistoryClear removes every recent search.
func (r *Runner) HistoryClear(ctx context.Context, cmd *cli.Command) error {
	return r.withHistory(ctx, func(app *stores.App) error {
		if err := app.Search.ClearHistory(ctx); err != nil {
			return err
		}
		return r.writePlain("✓ Search history cleared\n")
	})
}

// withHistory loads recent searches before fn. Remote history belongs to the account, so it needs a session.
func (r *Runner) withHistory(ctx context.Context, fn func(*stores.App) error) error {
	open := r.open
	if r.config.Search.History == shared.HistoryRemote {
		open = func(ctx context.Context, live bool, _ stores.Notifier) (*stores.App, func(), error) {
			return r.authed(ctx, live)
		}
	}

	app, done, err := open(ctx, false, nil)
	if err != nil {
		return err
	}
	defer done()

	if _, err := app.Search.LoadHistory(ctx); err != nil {
		return err
	}
	return fn(app)
}

// emit renders data in the --format and writes it to stdout or the --output file.
func (r *Runner) emit(cmd *cli.Command, name string, render func(formatter.Format) ([]byte, error)) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	data, err := render(format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		saved, err := formatter.WriteExport(path, name, format, data)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Saved to %s\n", saved)
	}
	return r.write(data)
}

func mediaType(s string) (models.MediaType, error) {
	kind := models.MediaType(strings.ToLower(s))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: media type must be %q or %q, got %q", shared.ErrInvalidArgument, models.MediaImage, models.MediaAudio, s)
	}
	return kind, nil
}
