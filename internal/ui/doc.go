// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin layer over the stores in [stores.App]:
//  1. [LoginView] : Username and password form
//  2. [SearchView] : Search-as-you-type query, image/audio toggle, paged results and recent searches
//  3. [DetailView] : One media item with its attribution
//  4. [FilesView] : Uploaded files with their status and actions
//  5. [UploadView] : Path prompt for a new upload
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern. Store changes and toasts arrive
// through channels and are turned into messages, so the view re-renders whenever a fetch lands or a push event
// refreshes the file list. Network calls always run inside commands, never in Update.
//
// Keyboard navigation uses vim-style bindings (j/k, h/l, enter, esc, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
