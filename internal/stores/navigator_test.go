package stores

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNavigator(t *testing.T) {
	t.Run("Starts At Root", func(t *testing.T) {
		nav := NewNavigator()
		require.Equal(t, "/", nav.Current().Path)
		require.Equal(t, 1, nav.Len())
	})

	t.Run("Push Runs Path Listeners", func(t *testing.T) {
		nav := NewNavigator()

		var seen []string
		nav.Listen("/search", func(loc Location) { seen = append(seen, loc.Query.Get("q")) })
		nav.Listen("/files", func(Location) { t.Error("files listener should not run") })

		require.NoError(t, nav.Push("/search?q=cat"))
		require.NoError(t, nav.Push("/search?q=dog"))

		require.Equal(t, []string{"cat", "dog"}, seen)
		require.Equal(t, "/search?q=dog", nav.Current().String())
	})

	t.Run("Back And Forward Re-run Listeners", func(t *testing.T) {
		nav := NewNavigator()

		var seen []string
		nav.Listen("/search", func(loc Location) { seen = append(seen, loc.Query.Get("q")) })

		nav.Push("/search?q=cat")
		nav.Push("/search?q=dog")

		require.True(t, nav.Back())
		require.Equal(t, "cat", nav.Current().Query.Get("q"))
		require.True(t, nav.Forward())
		require.False(t, nav.Forward())

		require.Equal(t, []string{"cat", "dog", "cat", "dog"}, seen)
	})

	t.Run("Back At Start", func(t *testing.T) {
		nav := NewNavigator()
		require.False(t, nav.Back())
	})

	t.Run("Push Discards Forward History", func(t *testing.T) {
		nav := NewNavigator()
		nav.Push("/a")
		nav.Push("/b")
		nav.Back()
		nav.Push("/c")

		require.Equal(t, 3, nav.Len())
		require.False(t, nav.Forward())
		require.Equal(t, "/c", nav.Current().Path)
	})

	t.Run("Replace Keeps Length", func(t *testing.T) {
		nav := NewNavigator()

		calls := 0
		nav.Listen("/files", func(Location) { calls++ })

		nav.Push("/files?page=1")
		nav.Replace("/files?page=2")

		require.Equal(t, 2, nav.Len())
		require.Equal(t, "2", nav.Current().Query.Get("page"))
		require.Equal(t, 2, calls)
	})

	t.Run("Listener Can Navigate", func(t *testing.T) {
		nav := NewNavigator()
		nav.Listen("/old", func(Location) { nav.Replace("/new") })

		require.NoError(t, nav.Push("/old"))
		require.Equal(t, "/new", nav.Current().Path)
	})

	t.Run("Unlisten", func(t *testing.T) {
		nav := NewNavigator()

		calls := 0
		unlisten := nav.Listen("/search", func(Location) { calls++ })
		nav.Push("/search")
		unlisten()
		nav.Push("/search")

		require.Equal(t, 1, calls)
	})

	t.Run("Current Is A Copy", func(t *testing.T) {
		nav := NewNavigator()
		nav.Push("/search?q=cat")

		loc := nav.Current()
		loc.Query.Set("q", "dog")

		require.Equal(t, "cat", nav.Current().Query.Get("q"))
	})

	t.Run("Relative Path", func(t *testing.T) {
		loc, err := ParseLocation("search?q=cat")
		require.NoError(t, err)
		require.Equal(t, "/search", loc.Path)
	})
}
