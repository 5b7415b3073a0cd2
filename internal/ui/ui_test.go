package ui

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/shared"
	"github.com/desertthunder/mediax/internal/stores"
	tu "github.com/desertthunder/mediax/internal/testing"
)

func newTestModel(t *testing.T) (*Model, *tu.FakeBackend) {
	t.Helper()

	backend := tu.NewFakeBackend(t)
	backend.AddUser(models.UserProfile{Username: "johndoe", FullName: "John Doe"}, "secret1")
	backend.AddImages(models.ImageItem{MediaItem: models.MediaItem{ID: "i1", Title: "cat on a mat", License: "by"}, Width: 10, Height: 20})

	cfg := shared.DefaultConfig()
	cfg.API.BaseURL = backend.URL()
	cfg.API.RequestsPerSecond = 0
	cfg.Notifications.Enabled = false
	cfg.Search.Debounce = shared.Duration{Duration: time.Second}

	queue := stores.NewToastQueue(16)
	app, err := stores.NewApp(stores.AppOpts{Config: cfg, Notifier: queue})
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(app.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m := NewModel(ctx, app, queue)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, backend
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// exec runs cmd and feeds its message back into the model, as the program loop would.
func exec(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	_, next := m.Update(cmd())
	return next
}

func login(t *testing.T, m *Model) {
	t.Helper()
	m.username.SetValue("johndoe")
	m.username.Blur()
	m.password.SetValue("secret1")
	m.password.Focus()

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	exec(t, m, cmd)
}

func TestModel(t *testing.T) {
	t.Run("Starts At Login", func(t *testing.T) {
		m, _ := newTestModel(t)

		if m.view != LoginView {
			t.Fatalf("expected LoginView, got %d", m.view)
		}
		if !strings.Contains(m.View(), "Log in") {
			t.Errorf("expected login form, got %q", m.View())
		}
	})

	t.Run("Login Moves To Search", func(t *testing.T) {
		m, _ := newTestModel(t)
		login(t, m)

		if m.view != SearchView {
			t.Fatalf("expected SearchView, got %d", m.view)
		}
		if !m.app.Session.Authenticated() {
			t.Error("expected session to be authenticated")
		}
		if m.password.Value() != "" {
			t.Error("expected password to be cleared")
		}
		if !strings.Contains(m.View(), "John Doe") {
			t.Errorf("expected display name in tabs, got %q", m.View())
		}
	})

	t.Run("Failed Login Stays", func(t *testing.T) {
		m, _ := newTestModel(t)
		m.username.SetValue("johndoe")
		m.username.Blur()
		m.password.SetValue("wrong1")
		m.password.Focus()

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)

		if m.view != LoginView {
			t.Errorf("expected LoginView, got %d", m.view)
		}
		toast := <-m.toasts.C()
		if toast.Message != "Incorrect username or password" {
			t.Errorf("unexpected toast %q", toast.Message)
		}
	})

	t.Run("Typing Updates The Form", func(t *testing.T) {
		m, backend := newTestModel(t)
		login(t, m)

		for _, r := range "cat" {
			m.Update(runes(string(r)))
		}
		if got := m.app.Search.Form().Q; got != "cat" {
			t.Fatalf("expected form query cat, got %q", got)
		}

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		exec(t, m, cmd)

		if m.searching {
			t.Error("expected query to lose focus after enter")
		}
		if n := backend.Calls(http.MethodGet, "/media/search"); n < 1 {
			t.Errorf("expected a search request, got %d", n)
		}
		if !strings.Contains(m.View(), "cat on a mat") {
			t.Errorf("expected result in view, got %q", m.View())
		}
	})

	t.Run("Toggle Type", func(t *testing.T) {
		m, _ := newTestModel(t)
		login(t, m)
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		_, cmd := m.Update(runes("t"))
		exec(t, m, cmd)

		if got := m.app.Search.State().Query.Type; got != models.MediaAudio {
			t.Errorf("expected audio, got %s", got)
		}
	})

	t.Run("Tab Lists Files", func(t *testing.T) {
		m, backend := newTestModel(t)
		backend.AddFile("johndoe", models.FileRecord{Filename: "notes.txt", Size: 2048})
		login(t, m)

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		exec(t, m, cmd)

		if m.view != FilesView {
			t.Fatalf("expected FilesView, got %d", m.view)
		}
		if !strings.Contains(m.View(), "notes.txt") {
			t.Errorf("expected file in view, got %q", m.View())
		}
	})

	t.Run("Logout Returns To Login", func(t *testing.T) {
		m, _ := newTestModel(t)
		login(t, m)
		m.Update(tea.KeyMsg{Type: tea.KeyEsc})

		_, cmd := m.Update(runes("L"))
		exec(t, m, cmd)

		if m.view != LoginView {
			t.Errorf("expected LoginView, got %d", m.view)
		}
	})

	t.Run("Toast Line", func(t *testing.T) {
		m, _ := newTestModel(t)
		m.Update(toastMsg(stores.Toast{Level: stores.LevelError, Message: "boom"}))

		if !strings.Contains(m.View(), "boom") {
			t.Errorf("expected toast in view, got %q", m.View())
		}
	})
}

func TestItems(t *testing.T) {
	t.Run("Audio Description", func(t *testing.T) {
		item := audioItem{audio: models.AudioItem{MediaItem: models.MediaItem{Creator: "Sam", License: "cc0"}, Duration: 61_000}}
		if got := item.Description(); got != "Sam • CC0 • 1:01" {
			t.Errorf("unexpected description %q", got)
		}
		if item.Title() != "Untitled" {
			t.Errorf("expected Untitled, got %q", item.Title())
		}
	})

	t.Run("Result Items Follow Kind", func(t *testing.T) {
		r := models.AudioResults{Page: models.Page[models.AudioItem]{Results: []models.AudioItem{{}, {}}}}
		items := resultItems(r)
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if _, ok := items[0].(audioItem); !ok {
			t.Errorf("expected audioItem, got %T", items[0])
		}
		if resultItems(nil) != nil {
			t.Error("expected no items for nil result")
		}
	})

	t.Run("File Description Uses First Line", func(t *testing.T) {
		item := fileItem{file: models.FileRecord{
			Filename:     "a.txt",
			Status:       models.StatusSuccess,
			Size:         1024,
			Descriptions: []models.FileDescription{{ID: 1, Description: "summary\nmore"}},
		}}
		desc := item.Description()
		if !strings.HasPrefix(desc, "success • 1.0 KB") || !strings.HasSuffix(desc, "summary") {
			t.Errorf("unexpected description %q", desc)
		}
	})
}
