package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/repositories"
	"github.com/desertthunder/mediax/internal/shared"
	tu "github.com/desertthunder/mediax/internal/testing"
	"github.com/urfave/cli/v3"
)

type cliEnv struct {
	backend *tu.FakeBackend
	config  *shared.Config
	db      *sql.DB
	output  *bytes.Buffer
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()

	backend := tu.NewFakeBackend(t)
	backend.AddUser(models.UserProfile{Username: "johndoe", FullName: "John Doe", Email: "john@example.com"}, "secret1")
	backend.AddImages(models.ImageItem{MediaItem: models.MediaItem{ID: "i1", Title: "cat on a mat", Creator: "Jane", License: "by"}})

	config := shared.DefaultConfig()
	config.API.BaseURL = backend.URL()
	config.API.RequestsPerSecond = 0
	config.Notifications.Enabled = false

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return &cliEnv{backend: backend, config: config, db: db, output: &bytes.Buffer{}}
}

// run executes args against a fresh command tree, like one invocation of the binary.
func (e *cliEnv) run(t *testing.T, input string, args ...string) error {
	t.Helper()

	runner := NewRunner(RunnerOpts{
		Config: e.config,
		DB:     e.db,
		Logger: shared.NewLogger(io.Discard),
		Output: e.output,
		Input:  strings.NewReader(input),
	})

	app := &cli.Command{Name: "mediax", Writer: io.Discard, Commands: runner.register()}
	return app.Run(context.Background(), append([]string{"mediax"}, args...))
}

func (e *cliEnv) login(t *testing.T) {
	t.Helper()
	if err := e.run(t, "", "auth", "login", "-u", "johndoe", "-p", "secret1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	e.output.Reset()
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input == nil {
				t.Error("expected input to default to os.Stdin")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := output.String(); got != `{"key":"value"}`+"\n" {
				t.Errorf("unexpected output %q", got)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("prompt", func(t *testing.T) {
		t.Run("uses the flag value without reading", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Input: strings.NewReader("ignored\n")})

			got, err := runner.prompt("Username", "johndoe")
			if err != nil || got != "johndoe" {
				t.Errorf("expected johndoe, got %q, %v", got, err)
			}
		})

		t.Run("reads a line", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader("secret1\r\n")})

			got, err := runner.prompt("Password", "")
			if err != nil || got != "secret1" {
				t.Errorf("expected secret1, got %q, %v", got, err)
			}
			if output.String() != "Password: " {
				t.Errorf("expected prompt, got %q", output.String())
			}
		})

		t.Run("missing input", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Input: strings.NewReader("")})

			if _, err := runner.prompt("Email", ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})

		names := map[string]bool{}
		for _, cmd := range runner.register() {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "search", "detail", "history", "files", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("Login Persists The Session", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "auth", "login", "-u", "johndoe", "-p", "secret1"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ Logged in as John Doe") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		env.output.Reset()
		if err := env.run(t, "", "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Logged in as John Doe") {
			t.Errorf("expected restored session, got %q", env.output.String())
		}
		if !strings.Contains(env.output.String(), "john@example.com") {
			t.Errorf("expected email, got %q", env.output.String())
		}
	})

	t.Run("Login Prompts For The Password", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "secret1\n", "auth", "login", "-u", "johndoe"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Password: ") {
			t.Errorf("expected a prompt, got %q", env.output.String())
		}
	})

	t.Run("Wrong Password", func(t *testing.T) {
		env := newCLIEnv(t)

		err := env.run(t, "", "auth", "login", "-u", "johndoe", "-p", "wrong12")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if !strings.Contains(env.output.String(), "✗ Incorrect username or password") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Logout", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "• Logged out") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		env.output.Reset()
		if err := env.run(t, "", "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✗ Not logged in") {
			t.Errorf("expected logged out status, got %q", env.output.String())
		}
	})

	t.Run("Logout Without A Session", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "auth", "logout"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Signup Password Mismatch", func(t *testing.T) {
		env := newCLIEnv(t)

		err := env.run(t, "", "auth", "signup", "-u", "janedoe", "-p", "secret1", "--confirm", "secret2")
		if !errors.Is(err, shared.ErrPasswordMismatch) {
			t.Errorf("expected ErrPasswordMismatch, got %v", err)
		}
	})

	t.Run("Signup Then Login", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "auth", "signup", "-u", "janedoe", "-p", "secret2", "--confirm", "secret2"); err != nil {
			t.Fatalf("signup failed: %v", err)
		}
		if err := env.run(t, "", "auth", "login", "-u", "janedoe", "-p", "secret2"); err != nil {
			t.Fatalf("login after signup failed: %v", err)
		}
	})

	t.Run("Confirm Email", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "auth", "confirm-email", tu.VerificationToken("johndoe")); err != nil {
			t.Fatalf("confirm failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ Email verified") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Confirm Email Needs A Token", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "auth", "confirm-email"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Forgot And Reset Password", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "auth", "forgot-password", "--email", "john@example.com"); err != nil {
			t.Fatalf("forgot-password failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ If your email is found") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		err := env.run(t, "", "auth", "reset-password", "-p", "newpass1", "--confirm", "newpass1", tu.ResetToken("johndoe"))
		if err != nil {
			t.Fatalf("reset failed: %v", err)
		}
		if err := env.run(t, "", "auth", "login", "-u", "johndoe", "-p", "newpass1"); err != nil {
			t.Errorf("login with the new password failed: %v", err)
		}
	})
}

func TestSearchCommands(t *testing.T) {
	t.Run("Requires Login", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "search", "cat"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Stale Stored Session Reports Expiry", func(t *testing.T) {
		env := newCLIEnv(t)
		repo := repositories.NewSessionRepository(env.db, shared.RealClock{})
		if err := repo.Save(models.StoredSession{AccessToken: "revoked", RefreshToken: "unknown"}); err != nil {
			t.Fatal(err)
		}

		err := env.run(t, "", "search", "cat")
		if !errors.Is(err, shared.ErrSessionExpired) || !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrSessionExpired, got %v", err)
		}
	})

	t.Run("Prints Results", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "search", "--format", "csv", "cat"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "i1,cat on a mat,Jane,CC BY") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Unknown Type", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "search", "--type", "video", "cat"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "search", "--format", "xml", "cat"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Export To File", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		path := filepath.Join(t.TempDir(), "cats.md")
		if err := env.run(t, "", "search", "-f", "markdown", "-o", path, "cat"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected export file: %v", err)
		}
		if !strings.Contains(string(data), "cat on a mat") {
			t.Errorf("unexpected export %q", data)
		}
		if !strings.Contains(env.output.String(), "✓ Saved to "+path) {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("History Records Searches", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "search", "cat"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		env.output.Reset()
		if err := env.run(t, "", "history", "list"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "  cat\n") {
			t.Errorf("expected cat in history, got %q", env.output.String())
		}

		if err := env.run(t, "", "history", "delete", "cat"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}

		env.output.Reset()
		if err := env.run(t, "", "history", "list"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		if env.output.String() != "No recent searches.\n" {
			t.Errorf("expected empty history, got %q", env.output.String())
		}
	})

	t.Run("History Clear", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "history", "clear"); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ Search history cleared") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Detail", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "detail", "i1"); err != nil {
			t.Fatalf("detail failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Title: cat on a mat") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})
}

func TestFilesCommands(t *testing.T) {
	t.Run("Upload Then List", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		path := filepath.Join(t.TempDir(), "notes.txt")
		if err := os.WriteFile(path, []byte("meeting notes"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := env.run(t, "", "files", "upload", path); err != nil {
			t.Fatalf("upload failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ Uploaded notes.txt") {
			t.Errorf("unexpected output %q", env.output.String())
		}

		env.output.Reset()
		if err := env.run(t, "", "files", "list", "--order", "desc"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "notes.txt") {
			t.Errorf("expected uploaded file, got %q", env.output.String())
		}
	})

	t.Run("Upload Too Large", func(t *testing.T) {
		env := newCLIEnv(t)
		env.config.Files.MaxUploadSize = 4
		env.login(t)

		path := filepath.Join(t.TempDir(), "big.bin")
		if err := os.WriteFile(path, []byte("12345"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := env.run(t, "", "files", "upload", path); !errors.Is(err, shared.ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("Oversized Path Is Rejected Before Any Upload", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		dir := t.TempDir()
		small := filepath.Join(dir, "small.txt")
		if err := os.WriteFile(small, []byte("fine"), 0644); err != nil {
			t.Fatal(err)
		}
		huge := filepath.Join(dir, "huge.bin")
		f, err := os.Create(huge)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.Truncate(1 << 30); err != nil {
			t.Fatal(err)
		}
		f.Close()

		if err := env.run(t, "", "files", "upload", small, huge); !errors.Is(err, shared.ErrFileTooLarge) {
			t.Errorf("expected ErrFileTooLarge, got %v", err)
		}
		if n := env.backend.Calls(http.MethodPost, "/files/upload"); n != 0 {
			t.Errorf("expected no upload requests, got %d", n)
		}
	})

	t.Run("Upload Directory", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "files", "upload", t.TempDir()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		env := newCLIEnv(t)
		file := env.backend.AddFile("johndoe", models.FileRecord{Filename: "a.txt", Status: models.StatusSuccess, Size: 10})
		env.login(t)

		if err := env.run(t, "", "files", "delete", strconv.FormatInt(file.ID, 10)); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ File deleted") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Delete Missing File", func(t *testing.T) {
		env := newCLIEnv(t)
		env.login(t)

		if err := env.run(t, "", "files", "delete", "99"); !errors.Is(err, shared.ErrFileNotFound) {
			t.Errorf("expected ErrFileNotFound, got %v", err)
		}
		if !strings.Contains(env.output.String(), "✗ File not found") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Bad Id", func(t *testing.T) {
		env := newCLIEnv(t)

		if err := env.run(t, "", "files", "delete", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Retry Is Not Available", func(t *testing.T) {
		env := newCLIEnv(t)
		file := env.backend.AddFile("johndoe", models.FileRecord{Filename: "a.txt", Status: models.StatusSuccess, Size: 10})
		env.login(t)

		err := env.run(t, "", "files", "retry", strconv.FormatInt(file.ID, 10))
		if !errors.Is(err, shared.ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
		if !strings.Contains(env.output.String(), "• retry is not available yet") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Cancel A Finished File", func(t *testing.T) {
		env := newCLIEnv(t)
		file := env.backend.AddFile("johndoe", models.FileRecord{Filename: "a.txt", Status: models.StatusSuccess, Size: 10})
		env.login(t)

		err := env.run(t, "", "files", "cancel", strconv.FormatInt(file.ID, 10))
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if !strings.Contains(env.output.String(), "✗ Cannot cancel a file that is success") {
			t.Errorf("unexpected output %q", env.output.String())
		}
	})

	t.Run("Watch Stops With The Context", func(t *testing.T) {
		env := newCLIEnv(t)
		env.backend.AddFile("johndoe", models.FileRecord{Filename: "a.txt", Size: 10})
		env.login(t)

		runner := NewRunner(RunnerOpts{
			Config: env.config,
			DB:     env.db,
			Logger: shared.NewLogger(io.Discard),
			Output: env.output,
		})
		app := &cli.Command{Name: "mediax", Writer: io.Discard, Commands: runner.register()}

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		if err := app.Run(ctx, []string{"mediax", "files", "watch"}); err != nil {
			t.Fatalf("watch failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "a.txt") {
			t.Errorf("expected the first listing, got %q", env.output.String())
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(shared.EnvDBPath, filepath.Join(dir, "mediax.db"))
	configPath := filepath.Join(dir, "config.toml")

	env := newCLIEnv(t)
	if err := env.run(t, "", "setup", "--config", configPath); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("expected config file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "mediax.db")); err != nil {
		t.Errorf("expected database file: %v", err)
	}
	if !strings.Contains(env.output.String(), "✓ Setup complete") {
		t.Errorf("unexpected output %q", env.output.String())
	}

	env.output.Reset()
	if err := env.run(t, "", "setup", "--config", configPath, "--rollback"); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
}
