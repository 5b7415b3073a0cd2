package stores

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
)

// FilesOpts configures a [Files].
type FilesOpts struct {
	Client        *services.Client
	Navigator     *Navigator
	Notifier      Notifier
	Logger        *log.Logger
	Clock         shared.Clock
	IDs           shared.IDGenerator
	PageSize      int
	MaxUploadSize int64
}

// FilesState is a snapshot of the file store.
type FilesState struct {
	Form    models.ListFilesQuery
	List    *models.FileList
	Loading bool
	Err     error
}

// Files keeps the file list form, the /files location and the fetched page consistent.
//
// It follows the same form, location, fetch cycle as [Search]. Deletes are not optimistic: the list is re-fetched
// after the backend confirms.
type Files struct {
	watchers

	client   *services.Client
	nav      *Navigator
	logger   *log.Logger
	toast    toaster
	ids      shared.IDGenerator
	pageSize int
	maxSize  int64

	ctx      context.Context
	stop     context.CancelFunc
	unlisten func()

	mu      sync.Mutex
	form    models.ListFilesQuery
	list    *models.FileList
	loading bool
	err     error
	fence   fence
}

// NewFiles creates a file store listening on [FilesPath].
func NewFiles(opts FilesOpts) *Files {
	if opts.Navigator == nil {
		opts.Navigator = NewNavigator()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.IDs == nil {
		opts.IDs = shared.UUIDGenerator{}
	}
	if opts.PageSize <= 0 || opts.PageSize > models.MaxFilesPageSize {
		opts.PageSize = models.DefaultFilesPageSize
	}
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = services.MaxUploadSize
	}

	ctx, stop := context.WithCancel(context.Background())

	form := models.DefaultListFilesQuery()
	form.PageSize = opts.PageSize

	f := &Files{
		client:   opts.Client,
		nav:      opts.Navigator,
		logger:   shared.WithLogger(opts.Logger, "store", "files"),
		toast:    newToaster(opts.Notifier, opts.Clock),
		ids:      opts.IDs,
		pageSize: opts.PageSize,
		maxSize:  opts.MaxUploadSize,
		ctx:      ctx,
		stop:     stop,
		form:     form,
	}
	f.unlisten = f.nav.Listen(FilesPath, f.onLocation)
	return f
}

// State returns a snapshot of the store.
func (f *Files) State() FilesState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return FilesState{Form: f.form, List: f.list, Loading: f.loading, Err: f.err}
}

// Form returns the current form values.
func (f *Files) Form() models.ListFilesQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// SetSort changes the sort field and order. It does not list.
func (f *Files) SetSort(field models.SortField, order models.SortOrder) {
	f.mu.Lock()
	if field.Valid() {
		f.form.SortBy = field
	}
	if order.Valid() {
		f.form.Order = order
	}
	f.mu.Unlock()
	f.notify()
}

// SetPageSize changes the page size. It does not list.
func (f *Files) SetPageSize(n int) {
	if n < 1 || n > models.MaxFilesPageSize {
		return
	}
	f.mu.Lock()
	f.form.PageSize = n
	f.mu.Unlock()
	f.notify()
}

// List navigates to the first page of the form with a fresh nonce, so the location always differs and is fetched.
func (f *Files) List() {
	f.mu.Lock()
	f.form.Page = 1
	f.form.Nonce = f.ids.New()
	q := f.form
	f.mu.Unlock()

	f.nav.Push(FilesPath + "?" + q.Encode())
}

// SetPage navigates to page n.
func (f *Files) SetPage(n int) {
	if n < 1 {
		n = 1
	}

	f.mu.Lock()
	f.form.Page = n
	q := f.form
	f.mu.Unlock()

	f.nav.Push(FilesPath + "?" + q.Encode())
}

// Refresh re-fetches the current location when it is the file list. Pushed file events land here.
func (f *Files) Refresh() {
	loc := f.nav.Current()
	if loc.Path != FilesPath {
		return
	}
	f.onLocation(loc)
}

func (f *Files) onLocation(loc Location) {
	q := models.ParseListFilesQuery(loc.Query)
	if loc.Query.Get("page_size") == "" {
		q.PageSize = f.pageSize
	}

	f.mu.Lock()
	f.form = q
	f.mu.Unlock()

	if _, err := f.Fetch(f.ctx, q); err != nil && !errors.Is(err, ErrSuperseded) {
		f.logger.Debug("list files failed", "error", err)
	}
}

// Fetch loads one page. A fetch superseded by a newer one is cancelled and returns [ErrSuperseded] without
// touching state.
func (f *Files) Fetch(ctx context.Context, q models.ListFilesQuery) (*models.FileList, error) {
	f.mu.Lock()
	fetchCtx, seq := f.fence.begin(ctx)
	f.loading = true
	f.mu.Unlock()
	f.notify()

	list, err := f.client.Files.List(fetchCtx, q)

	f.mu.Lock()
	if !f.fence.end(seq) {
		f.mu.Unlock()
		return nil, ErrSuperseded
	}
	f.loading = false
	f.err = err
	if err == nil {
		f.list = list
	}
	f.mu.Unlock()
	f.notify()

	if err != nil {
		if !quiet(err) {
			f.toast.fail(services.Message(err, "Failed to load files"))
		}
		return nil, err
	}
	return list, nil
}

// Upload sends one file. Empty files and files over the size limit are rejected before any request. On success
// the list is re-sorted newest first and listed again.
func (f *Files) Upload(ctx context.Context, up services.Upload) (*models.FileRecord, error) {
	switch size := up.Size(); {
	case size == 0:
		f.toast.fail("File is empty")
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptyFile, up.Filename)
	case size > f.maxSize:
		f.toast.fail(fmt.Sprintf("File too large (max %s)", humanLimit(f.maxSize)))
		return nil, fmt.Errorf("%w: %s is %d bytes", shared.ErrFileTooLarge, up.Filename, size)
	}

	record, err := f.client.Files.Upload(ctx, up)
	if err != nil {
		if !quiet(err) {
			f.toast.fail(services.Message(err, "Upload failed"))
		}
		return nil, err
	}

	f.toast.success("Uploaded " + record.Filename)

	f.mu.Lock()
	f.form.SortBy = models.SortCreatedAt
	f.form.Order = models.OrderDesc
	f.mu.Unlock()

	f.List()
	return record, nil
}

// Delete removes a file and re-fetches the current location.
func (f *Files) Delete(ctx context.Context, id int64) error {
	if err := f.client.Files.Delete(ctx, id); err != nil {
		if !quiet(err) {
			f.toast.fail(services.Message(err, "Failed to delete file"))
		}
		return err
	}

	f.toast.success("File deleted")
	f.Refresh()
	return nil
}

// Retry re-queues a finished file.
func (f *Files) Retry(ctx context.Context, id int64) error {
	return f.act(ctx, id, models.ActionRetry, f.client.Files.Retry)
}

// Cancel stops an in-flight file.
func (f *Files) Cancel(ctx context.Context, id int64) error {
	return f.act(ctx, id, models.ActionCancel, f.client.Files.Cancel)
}

func (f *Files) act(ctx context.Context, id int64, action models.FileAction, call func(context.Context, int64) error) error {
	if record, ok := f.find(id); ok && !record.Can(action) {
		f.toast.fail(fmt.Sprintf("Cannot %s a file that is %s", action, record.Status))
		return fmt.Errorf("%w: cannot %s file %d with status %s", shared.ErrInvalidArgument, action, id, record.Status)
	}

	err := call(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotImplemented):
		f.toast.info(fmt.Sprintf("%s is not available yet", action))
	case err != nil && !quiet(err):
		f.toast.fail(services.Message(err, fmt.Sprintf("Failed to %s file", action)))
	}
	return err
}

// find looks id up on the loaded page.
func (f *Files) find(id int64) (models.FileRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.list == nil {
		return models.FileRecord{}, false
	}
	for _, r := range f.list.Results {
		if r.ID == id {
			return r, true
		}
	}
	return models.FileRecord{}, false
}

// Close stops listening and cancels the in-flight fetch.
func (f *Files) Close() {
	f.unlisten()
	f.stop()

	f.mu.Lock()
	f.fence.stop()
	f.loading = false
	f.mu.Unlock()
}

func humanLimit(n int64) string {
	const mib = 1 << 20
	if n%mib == 0 {
		return fmt.Sprintf("%dMB", n/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}
