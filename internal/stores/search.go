package stores

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mediax/internal/debounce"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/shared"
)

// DefaultSearchDebounce is the coalescing window for [Search.Search].
const DefaultSearchDebounce = 700 * time.Millisecond

// SearchOpts configures a [Search].
type SearchOpts struct {
	Client    *services.Client
	Navigator *Navigator
	Notifier  Notifier
	History   HistoryStore // nil disables history
	Logger    *log.Logger
	Clock     shared.Clock
	Debounce  time.Duration
	PageSize  int
}

// SearchState is a snapshot of the search store.
type SearchState struct {
	Form    models.SearchQuery
	Query   models.SearchQuery // the query the current results answer
	Images  *models.ImageResults
	Audio   *models.AudioResults
	History []models.HistoryEntry
	Loading bool
	Err     error
}

// Result returns the results for the query's media type, or nil before the first fetch of that type.
func (s SearchState) Result() models.SearchResult {
	switch s.Query.Type {
	case models.MediaAudio:
		if s.Audio != nil {
			return *s.Audio
		}
	default:
		if s.Images != nil {
			return *s.Images
		}
	}
	return nil
}

// Search keeps the search form, the /search location and the result slots consistent.
//
// Typing and paging change the form; [Search.Search] and [Search.SetPage] turn it into a location; landing on a
// /search location parses it back into the form and fetches. Image and audio results live in separate slots so
// switching type keeps the other slot's results.
type Search struct {
	watchers

	client   *services.Client
	nav      *Navigator
	history  HistoryStore
	logger   *log.Logger
	clock    shared.Clock
	toast    toaster
	debounce *debounce.Debouncer
	pageSize int

	ctx      context.Context
	stop     context.CancelFunc
	unlisten func()

	mu      sync.Mutex
	form    models.SearchQuery
	query   models.SearchQuery
	images  *models.ImageResults
	audio   *models.AudioResults
	recent  []models.HistoryEntry
	loading bool
	err     error
	fence   fence
}

// NewSearch creates a search store listening on [SearchPath].
func NewSearch(opts SearchOpts) *Search {
	if opts.Navigator == nil {
		opts.Navigator = NewNavigator()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = shared.RealClock{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	if opts.PageSize <= 0 {
		opts.PageSize = models.DefaultSearchPageSize
	}

	ctx, stop := context.WithCancel(context.Background())

	form := models.DefaultSearchQuery()
	form.PageSize = opts.PageSize

	s := &Search{
		client:   opts.Client,
		nav:      opts.Navigator,
		history:  opts.History,
		logger:   shared.WithLogger(opts.Logger, "store", "search"),
		clock:    opts.Clock,
		toast:    newToaster(opts.Notifier, opts.Clock),
		debounce: debounce.New(opts.Debounce),
		pageSize: opts.PageSize,
		ctx:      ctx,
		stop:     stop,
		form:     form,
		query:    form,
	}
	s.unlisten = s.nav.Listen(SearchPath, s.onLocation)
	return s
}

// State returns a snapshot of the store.
func (s *Search) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SearchState{
		Form:    s.form,
		Query:   s.query,
		Images:  s.images,
		Audio:   s.audio,
		History: slices.Clone(s.recent),
		Loading: s.loading,
		Err:     s.err,
	}
}

// Form returns the current form values.
func (s *Search) Form() models.SearchQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form
}

// Update edits the form in place. It does not search.
func (s *Search) Update(fn func(*models.SearchQuery)) {
	s.mu.Lock()
	fn(&s.form)
	s.mu.Unlock()
	s.notify()
}

// Search navigates to the form's location once typing pauses for the debounce window. The page resets to 1.
func (s *Search) Search() {
	s.debounce.Call(s.submit)
}

// SearchNow navigates immediately, dropping any pending debounced search.
func (s *Search) SearchNow() {
	s.debounce.Cancel()
	s.submit()
}

// Pending reports whether a debounced search is waiting.
func (s *Search) Pending() bool {
	return s.debounce.Pending()
}

func (s *Search) submit() {
	s.mu.Lock()
	s.form.Page = 1
	q := s.form.Normalize()
	s.mu.Unlock()

	s.nav.Push(SearchPath + "?" + q.Encode())
}

// SetPage navigates to page n of the current query without debouncing.
func (s *Search) SetPage(n int) {
	if n < 1 {
		n = 1
	}

	s.mu.Lock()
	s.form.Page = n
	q := s.form.Normalize()
	s.mu.Unlock()

	s.nav.Push(SearchPath + "?" + q.Encode())
}

func (s *Search) onLocation(loc Location) {
	q := models.ParseSearchQuery(loc.Query)
	if loc.Query.Get("page_size") == "" {
		q.PageSize = s.pageSize
	}

	s.mu.Lock()
	s.form = q
	s.mu.Unlock()

	if _, err := s.Fetch(s.ctx, q); err != nil && !errors.Is(err, ErrSuperseded) {
		s.logger.Debug("search failed", "error", err)
	}
}

// Fetch runs q and routes the result into its slot. A fetch superseded by a newer one is cancelled and returns
// [ErrSuperseded] without touching state.
func (s *Search) Fetch(ctx context.Context, q models.SearchQuery) (models.SearchResult, error) {
	s.mu.Lock()
	fetchCtx, seq := s.fence.begin(ctx)
	s.loading = true
	s.mu.Unlock()
	s.notify()

	result, err := s.client.Media.Search(fetchCtx, q)

	s.mu.Lock()
	if !s.fence.end(seq) {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.loading = false
	s.err = err
	if err == nil {
		s.query = q
		switch r := result.(type) {
		case models.ImageResults:
			s.images = &r
		case models.AudioResults:
			s.audio = &r
		}
	}
	s.mu.Unlock()

	if err != nil {
		if !quiet(err) {
			s.toast.fail(services.Message(err, "Search failed, please try again"))
		}
		s.notify()
		return nil, err
	}

	if q.Q != "" {
		s.record(ctx, q.Q)
	}
	s.notify()
	return result, nil
}

// Results returns the image and audio slots.
func (s *Search) Results() (*models.ImageResults, *models.AudioResults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images, s.audio
}

// Detail fetches one item.
func (s *Search) Detail(ctx context.Context, kind models.MediaType, id string) (models.Media, error) {
	item, err := s.client.Media.Detail(ctx, kind, id)
	if err != nil {
		if !quiet(err) {
			s.toast.fail(services.Message(err, "Failed to load media"))
		}
		return nil, err
	}
	return item, nil
}

// History returns the displayed recent searches, newest first.
func (s *Search) History() []models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.recent)
}

// LoadHistory replaces the displayed history with the store's.
func (s *Search) LoadHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}

	entries, err := s.history.List(ctx)
	if err != nil {
		if !quiet(err) {
			s.toast.fail(services.Message(err, "Failed to load search history"))
		}
		return nil, err
	}

	s.mu.Lock()
	s.recent = entries
	s.mu.Unlock()
	s.notify()
	return slices.Clone(entries), nil
}

// DeleteHistory removes keyword from the displayed history before the store confirms, and puts it back if the
// store fails.
func (s *Search) DeleteHistory(ctx context.Context, keyword string) error {
	if s.history == nil {
		return shared.ErrNotImplemented
	}

	s.mu.Lock()
	i := slices.IndexFunc(s.recent, func(e models.HistoryEntry) bool { return e.Keyword == keyword })
	var removed []models.HistoryEntry
	if i >= 0 {
		removed = []models.HistoryEntry{s.recent[i]}
		s.recent = slices.Delete(slices.Clone(s.recent), i, i+1)
	}
	s.mu.Unlock()
	s.notify()

	if err := s.history.Delete(ctx, keyword); err != nil {
		s.rollback(removed)
		if !quiet(err) {
			s.toast.fail(services.Message(err, "Failed to delete search history"))
		}
		return err
	}
	return nil
}

// ClearHistory empties the displayed history before the store confirms, and restores it if the store fails.
func (s *Search) ClearHistory(ctx context.Context) error {
	if s.history == nil {
		return shared.ErrNotImplemented
	}

	s.mu.Lock()
	removed := s.recent
	s.recent = nil
	s.mu.Unlock()
	s.notify()

	if err := s.history.Clear(ctx); err != nil {
		s.rollback(removed)
		if !quiet(err) {
			s.toast.fail(services.Message(err, "Failed to clear search history"))
		}
		return err
	}
	return nil
}

// rollback puts removed entries back, skipping keywords that were recorded again in the meantime.
func (s *Search) rollback(removed []models.HistoryEntry) {
	if len(removed) == 0 {
		return
	}

	s.mu.Lock()
	recent := slices.Clone(s.recent)
	for _, e := range removed {
		if !slices.ContainsFunc(recent, func(r models.HistoryEntry) bool { return r.Keyword == e.Keyword }) {
			recent = append(recent, e)
		}
	}
	models.SortHistory(recent)
	s.recent = recent
	s.mu.Unlock()
	s.notify()
}

func (s *Search) record(ctx context.Context, keyword string) {
	if s.history == nil {
		return
	}
	if err := s.history.Record(ctx, keyword, s.clock.Now()); err != nil {
		s.logger.Warn("failed to record search", "keyword", keyword, "error", err)
		return
	}
	if _, err := s.LoadHistory(ctx); err != nil {
		s.logger.Debug("failed to reload history", "error", err)
	}
}

// Close stops listening, drops any pending search and cancels the in-flight fetch.
func (s *Search) Close() {
	s.debounce.Stop()
	s.unlisten()
	s.stop()

	s.mu.Lock()
	s.fence.stop()
	s.loading = false
	s.mu.Unlock()
}
