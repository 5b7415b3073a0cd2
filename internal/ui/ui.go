package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mediax/internal/formatter"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/services"
	"github.com/desertthunder/mediax/internal/stores"
	"golang.org/x/oauth2"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	SearchView
	DetailView
	FilesView
	UploadView
)

// Model represents the TUI application state. Data lives in the stores; the model only keeps widgets and focus.
type Model struct {
	ctx     context.Context
	app     *stores.App
	toasts  *stores.ToastQueue
	changes chan struct{}

	view   ViewState
	width  int
	height int

	username  textinput.Model
	password  textinput.Model
	query     textinput.Model
	path      textinput.Model
	results   list.Model
	files     list.Model
	detail    models.Media
	toast     *stores.Toast
	busy      string
	help      help.Model
	keys      keyMap
	showHelp  bool
	searching bool
}

// NewModel creates a TUI over app. Toasts are read from toasts, which should be one of app's notifiers.
func NewModel(ctx context.Context, app *stores.App, toasts *stores.ToastQueue) *Model {
	m := &Model{
		ctx:     ctx,
		app:     app,
		toasts:  toasts,
		changes: make(chan struct{}, 1),
		view:    LoginView,
		help:    help.New(),
		keys:    newKeyMap(),
	}

	m.username = textinput.New()
	m.username.Placeholder = "username"
	m.password = textinput.New()
	m.password.Placeholder = "password"
	m.password.EchoMode = textinput.EchoPassword
	m.query = textinput.New()
	m.query.Placeholder = "search openly licensed media"
	m.query.CharLimit = models.MaxQueryLength
	m.path = textinput.New()
	m.path.Placeholder = "path/to/file"

	m.results = newList("Results")
	m.files = newList("Files")

	notify := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	app.Search.OnChange(notify)
	app.Files.OnChange(notify)
	app.Session.OnCredential(func(*oauth2.Token) { notify() })

	if app.Session.Authenticated() {
		m.enterSearch()
	} else {
		m.username.Focus()
	}
	return m
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init starts listening for store changes and toasts.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange(), m.waitForToast())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.results.SetSize(msg.Width-4, msg.Height-10)
		m.files.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case changedMsg:
		if !m.app.Session.Authenticated() && m.view != LoginView {
			m.enterLogin()
		}
		return m, tea.Batch(m.sync(), m.waitForChange())

	case toastMsg:
		t := stores.Toast(msg)
		m.toast = &t
		return m, m.waitForToast()

	case doneMsg:
		m.busy = ""
		if msg.action == "login" && msg.err == nil {
			m.password.SetValue("")
			m.enterSearch()
			return m, m.run("history", func() error {
				_, err := m.app.Search.LoadHistory(m.ctx)
				return err
			})
		}
		if msg.action == "logout" {
			m.enterLogin()
		}
		return m, m.sync()

	case detailMsg:
		m.busy = ""
		if msg.err == nil {
			m.detail = msg.media
			m.view = DetailView
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.app.Session.Authenticated() && m.view != LoginView {
			m.enterLogin()
		}
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case FilesView:
			return m.handleFilesKeys(msg)
		case UploadView:
			return m.handleUploadKeys(msg)
		}
	}

	return m.updateWidgets(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LoginView:
		body = m.renderLogin()
	case SearchView:
		body = m.renderSearch()
	case DetailView:
		body = m.renderDetail()
	case FilesView:
		body = m.renderFiles()
	case UploadView:
		body = m.renderUpload()
	}

	var footer []string
	if m.busy != "" {
		footer = append(footer, styles.help.Render(m.busy+"..."))
	}
	if m.toast != nil {
		footer = append(footer, styles.toast(*m.toast))
	}
	if m.showHelp {
		footer = append(footer, m.help.FullHelpView(m.keys.FullHelp()))
	}

	if len(footer) == 0 {
		return body
	}
	return body + "\n\n" + strings.Join(footer, "\n")
}

func (m *Model) enterLogin() {
	m.view = LoginView
	m.query.Blur()
	m.path.Blur()
	m.password.Blur()
	m.username.Focus()
}

func (m *Model) enterSearch() {
	m.view = SearchView
	m.username.Blur()
	m.password.Blur()
	m.path.Blur()
	m.searching = true
	m.query.SetValue(m.app.Search.Form().Q)
	m.query.Focus()
}

func (m *Model) enterFiles() tea.Cmd {
	m.view = FilesView
	m.query.Blur()
	m.searching = false
	return m.run("loading files", func() error {
		m.app.Files.List()
		return nil
	})
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if m.username.Focused() {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.username.Focus()
	case "esc":
		return m, tea.Quit
	case "enter":
		if m.username.Focused() {
			m.username.Blur()
			return m, m.password.Focus()
		}
		creds := models.Credentials{Username: m.username.Value(), Password: m.password.Value()}
		return m, m.run("login", func() error { return m.app.Session.Login(m.ctx, creds) })
	}
	return m.updateWidgets(msg)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch {
		case key.Matches(msg, m.keys.back):
			m.searching = false
			m.query.Blur()
			return m, nil
		case key.Matches(msg, m.keys.tab):
			return m, m.enterFiles()
		case msg.String() == "enter":
			m.searching = false
			m.query.Blur()
			return m, m.run("searching", func() error {
				m.app.Search.SearchNow()
				return nil
			})
		}

		before := m.query.Value()
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(msg)
		if q := m.query.Value(); q != before {
			m.app.Search.Update(func(form *models.SearchQuery) { form.Q = q })
			m.app.Search.Search()
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case msg.String() == "?":
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.tab):
		return m, m.enterFiles()
	case key.Matches(msg, m.keys.find):
		m.searching = true
		return m, m.query.Focus()
	case key.Matches(msg, m.keys.kind):
		m.app.Search.Update(func(form *models.SearchQuery) {
			if form.Type == models.MediaAudio {
				form.Type = models.MediaImage
			} else {
				form.Type = models.MediaAudio
			}
		})
		return m, m.run("searching", func() error {
			m.app.Search.SearchNow()
			return nil
		})
	case key.Matches(msg, m.keys.next), key.Matches(msg, m.keys.prev):
		info, ok := m.pageInfo()
		if !ok {
			return m, nil
		}
		page := info.Page + 1
		if key.Matches(msg, m.keys.prev) {
			if !info.HasPrev() {
				return m, nil
			}
			page = info.Page - 1
		} else if !info.HasNext() {
			return m, nil
		}
		return m, m.run("loading page", func() error {
			m.app.Search.SetPage(page)
			return nil
		})
	case key.Matches(msg, m.keys.history):
		return m, m.run("clearing history", func() error { return m.app.Search.ClearHistory(m.ctx) })
	case key.Matches(msg, m.keys.logout):
		return m, m.run("logout", func() error { return m.app.Session.Logout(m.ctx) })
	case key.Matches(msg, m.keys.enter):
		return m, m.openDetail()
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.enter):
		m.view = SearchView
		m.detail = nil
	}
	return m, nil
}

func (m *Model) handleFilesKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	selected, hasSelection := m.files.SelectedItem().(fileItem)

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case msg.String() == "?":
		m.showHelp = !m.showHelp
		return m, nil
	case key.Matches(msg, m.keys.tab), key.Matches(msg, m.keys.back):
		m.enterSearch()
		return m, nil
	case key.Matches(msg, m.keys.upload):
		m.view = UploadView
		m.path.SetValue("")
		return m, m.path.Focus()
	case key.Matches(msg, m.keys.refresh):
		return m, m.run("loading files", func() error {
			m.app.Files.List()
			return nil
		})
	case key.Matches(msg, m.keys.next), key.Matches(msg, m.keys.prev):
		page := m.app.Files.State().List
		if page == nil {
			return m, nil
		}
		n := page.Page + 1
		if key.Matches(msg, m.keys.prev) {
			if !page.HasPrev() {
				return m, nil
			}
			n = page.Page - 1
		} else if !page.HasNext() {
			return m, nil
		}
		return m, m.run("loading page", func() error {
			m.app.Files.SetPage(n)
			return nil
		})
	case key.Matches(msg, m.keys.remove) && hasSelection:
		id := selected.file.ID
		return m, m.run("deleting", func() error { return m.app.Files.Delete(m.ctx, id) })
	case key.Matches(msg, m.keys.retry) && hasSelection:
		id := selected.file.ID
		return m, m.run("retrying", func() error { return m.app.Files.Retry(m.ctx, id) })
	case key.Matches(msg, m.keys.cancel) && hasSelection:
		id := selected.file.ID
		return m, m.run("cancelling", func() error { return m.app.Files.Cancel(m.ctx, id) })
	case key.Matches(msg, m.keys.logout):
		return m, m.run("logout", func() error { return m.app.Session.Logout(m.ctx) })
	}

	var cmd tea.Cmd
	m.files, cmd = m.files.Update(msg)
	return m, cmd
}

func (m *Model) handleUploadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.path.Blur()
		m.view = FilesView
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.path.Value())
		m.path.Blur()
		m.view = FilesView
		if path == "" {
			return m, nil
		}
		return m, m.run("uploading", func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				m.app.Notifier.Notify(stores.Toast{Level: stores.LevelError, Message: fmt.Sprintf("Cannot read %s", path)})
				return err
			}
			_, err = m.app.Files.Upload(m.ctx, services.Upload{Filename: filepath.Base(path), Content: content})
			return err
		})
	}

	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *Model) updateWidgets(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LoginView:
		var c1, c2 tea.Cmd
		m.username, c1 = m.username.Update(msg)
		m.password, c2 = m.password.Update(msg)
		cmd = tea.Batch(c1, c2)
	case SearchView:
		if m.searching {
			m.query, cmd = m.query.Update(msg)
		} else {
			m.results, cmd = m.results.Update(msg)
		}
	case FilesView:
		m.files, cmd = m.files.Update(msg)
	case UploadView:
		m.path, cmd = m.path.Update(msg)
	}
	return m, cmd
}

// sync copies store state into the list widgets.
func (m *Model) sync() tea.Cmd {
	state := m.app.Search.State()
	if r := state.Result(); r != nil {
		m.results.Title = fmt.Sprintf("%s results for %q", titleCase(string(r.Kind())), state.Query.Q)
		if state.Query.Q == "" {
			m.results.Title = titleCase(string(r.Kind())) + " results"
		}
	}

	files := m.app.Files.State()
	return tea.Batch(
		m.results.SetItems(resultItems(state.Result())),
		m.files.SetItems(fileItems(files.List)),
	)
}

func (m *Model) pageInfo() (models.PageInfo, bool) {
	r := m.app.Search.State().Result()
	if r == nil {
		return models.PageInfo{}, false
	}
	return r.Info(), true
}

func (m *Model) openDetail() tea.Cmd {
	var kind models.MediaType
	var id string
	switch item := m.results.SelectedItem().(type) {
	case imageItem:
		kind, id = models.MediaImage, item.image.ID
	case audioItem:
		kind, id = models.MediaAudio, item.audio.ID
	default:
		return nil
	}

	m.busy = "loading"
	return func() tea.Msg {
		media, err := m.app.Search.Detail(m.ctx, kind, id)
		return detailMsg{media: media, err: err}
	}
}

// run performs fn off the update loop and reports back with a [doneMsg].
func (m *Model) run(action string, fn func() error) tea.Cmd {
	m.busy = action
	return func() tea.Msg {
		return doneMsg{action: action, err: fn()}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) waitForToast() tea.Cmd {
	if m.toasts == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case t := <-m.toasts.C():
			return toastMsg(t)
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) tabs() string {
	search, files := styles.tab.Render("Search"), styles.tab.Render("Files")
	switch m.view {
	case SearchView, DetailView:
		search = styles.focus.Render("Search")
	case FilesView, UploadView:
		files = styles.focus.Render("Files")
	}

	user := ""
	if u := m.app.Session.State().User; u != nil {
		user = styles.help.Render("  " + u.DisplayName())
	}
	return search + files + user
}

func (m *Model) renderLogin() string {
	title := styles.title.Render("Log in")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.tab, m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, m.username.View(), m.password.View(), helpView)
}

func (m *Model) renderSearch() string {
	state := m.app.Search.State()

	var b strings.Builder
	b.WriteString(m.tabs() + "\n\n")
	fmt.Fprintf(&b, "%s  %s\n", m.query.View(), styles.help.Render("["+string(state.Form.Type)+"]"))

	if len(state.History) > 0 {
		keywords := make([]string, len(state.History))
		for i, e := range state.History {
			keywords[i] = e.Keyword
		}
		b.WriteString(styles.help.Render("Recent: "+strings.Join(keywords, " · ")) + "\n")
	}
	b.WriteString("\n")

	switch r := state.Result(); {
	case state.Loading && r == nil:
		b.WriteString(styles.help.Render("Searching..."))
	case r == nil:
		b.WriteString(styles.help.Render("Type a query and press enter."))
	case r.Len() == 0:
		b.WriteString(styles.warn.Render("No results."))
	default:
		b.WriteString(m.results.View())
		info := r.Info()
		fmt.Fprintf(&b, "\n%s", styles.help.Render(fmt.Sprintf("Page %d of %d (%d results)", info.Page, info.PageCount, info.ResultCount)))
	}

	var keys []key.Binding
	if m.searching {
		keys = []key.Binding{m.keys.enter, m.keys.back, m.keys.tab}
	} else {
		keys = []key.Binding{m.keys.find, m.keys.kind, m.keys.enter, m.keys.next, m.keys.prev, m.keys.tab, m.keys.quit}
	}
	b.WriteString("\n\n" + m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderDetail() string {
	if m.detail == nil {
		return styles.err.Render("Nothing selected")
	}
	title := styles.title.Render(orUntitled(m.detail.Item().Title))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, formatter.MediaToText(m.detail), helpView)
}

func (m *Model) renderFiles() string {
	state := m.app.Files.State()

	var b strings.Builder
	b.WriteString(m.tabs() + "\n\n")

	switch {
	case state.List == nil:
		b.WriteString(styles.help.Render("Loading files..."))
	case state.List.Empty():
		b.WriteString(styles.help.Render("No files yet. Press u to upload one."))
	default:
		b.WriteString(m.files.View())
		fmt.Fprintf(&b, "\n%s", styles.help.Render(fmt.Sprintf("Page %d of %d", state.List.Page, state.List.PageCount)))
	}

	keys := []key.Binding{m.keys.upload, m.keys.remove, m.keys.retry, m.keys.cancel, m.keys.refresh, m.keys.tab, m.keys.quit}
	b.WriteString("\n\n" + m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderUpload() string {
	title := styles.title.Render("Upload a file")
	limit := styles.help.Render(fmt.Sprintf("Files up to %s.", formatter.HumanSize(services.MaxUploadSize)))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back})
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, m.path.View(), limit, helpView)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
