package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/mediax/internal/formatter"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/desertthunder/mediax/internal/stores"
	"github.com/urfave/cli/v3"
)

// FilesList prints one page of uploaded files.
func (r *Runner) FilesList(ctx context.Context, cmd *cli.Command) error {
	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	list, err := r.listFiles(app, cmd)
	if err != nil {
		return err
	}

	return r.emit(cmd, "files", func(f formatter.Format) ([]byte, error) {
		return formatter.Files(f, list)
	})
}

// FilesUpload sends each path in turn. It stops at the first failure. Every path is checked against the upload
// limit before anything is read or sent.
func (r *Runner) FilesUpload(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: at least one path", shared.ErrMissingArgument)
	}

	for _, path := range paths {
		if err := r.checkUpload(path); err != nil {
			return err
		}
	}

	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		record, err := app.Files.Upload(ctx, services.Upload{Filename: filepath.Base(path), Content: content})
		if err != nil {
			return err
		}
		r.logger.Debug("uploaded", "id", record.ID, "status", record.Status)
	}
	return nil
}

func (r *Runner) checkUpload(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, path)
	}
	if limit := r.config.Files.MaxUploadSize; info.Size() > limit {
		return fmt.Errorf("%w: %s is %s, the limit is %s", shared.ErrFileTooLarge, path,
			formatter.HumanSize(info.Size()), formatter.HumanSize(limit))
	}
	return nil
}

// FilesDelete deletes a file by id.
func (r *Runner) FilesDelete(ctx context.Context, cmd *cli.Command) error {
	return r.fileAction(ctx, cmd, "", (*stores.Files).Delete)
}

// FilesRetry re-queues a finished file.
func (r *Runner) FilesRetry(ctx context.Context, cmd *cli.Command) error {
	return r.fileAction(ctx, cmd, "Retry", (*stores.Files).Retry)
}

// FilesCancel stops a file in progress.
func (r *Runner) FilesCancel(ctx context.Context, cmd *cli.Command) error {
	return r.fileAction(ctx, cmd, "Cancel", (*stores.Files).Cancel)
}

// FilesWatch lists files, then keeps the push channel open and prints the list again after every change the
// backend reports. It returns when ctx is cancelled.
func (r *Runner) FilesWatch(ctx context.Context, cmd *cli.Command) error {
	app, done, err := r.authed(ctx, true)
	if err != nil {
		return err
	}
	defer done()

	show := func() {
		state := app.Files.State()
		if state.Err != nil || state.List == nil {
			return
		}
		r.writePlainHeader(fmt.Sprintf("Files (revision %d)", app.Listener.Revision()))
		r.write(formatter.FilesToText(state.List))
	}

	// Registered after the store's own subscriber, so the list is already refreshed.
	app.Listener.OnRevision(func(uint64) { show() })

	if _, err := r.listFiles(app, cmd); err != nil {
		return err
	}
	show()

	<-ctx.Done()
	r.logger.Debug("watch stopped", "revision", app.Listener.Revision())
	return nil
}

// listFiles navigates the file store to the page described by the flags.
func (r *Runner) listFiles(app *stores.App, cmd *cli.Command) (*models.FileList, error) {
	v := url.Values{}
	v.Set("page", strconv.Itoa(cmd.Int("page")))
	if n := cmd.Int("page-size"); n > 0 {
		v.Set("page_size", strconv.Itoa(n))
	}
	v.Set("sort_by", cmd.String("sort"))
	v.Set("order", cmd.String("order"))

	if err := app.Navigator.Push(stores.FilesPath + "?" + v.Encode()); err != nil {
		return nil, err
	}

	state := app.Files.State()
	if state.Err != nil {
		return nil, state.Err
	}
	return state.List, nil
}

// fileAction loads the first page before acting so actions the file's status does not allow are refused locally.
// The store toasts deletes itself; label names other actions in the confirmation line.
func (r *Runner) fileAction(ctx context.Context, cmd *cli.Command, label string, action func(*stores.Files, context.Context, int64) error) error {
	id, err := strconv.ParseInt(cmd.StringArg("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: file id must be a number", shared.ErrInvalidArgument)
	}

	app, done, err := r.authed(ctx, false)
	if err != nil {
		return err
	}
	defer done()

	app.Files.List()

	if err := action(app.Files, ctx, id); err != nil {
		return err
	}
	if label != "" {
		return r.writePlain("✓ %s requested for file %d\n", label, id)
	}
	return nil
}
