package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mediax/internal/models"
	"github.com/desertthunder/mediax/internal/stores"
)

var (
	_ tea.Msg = changedMsg{}
	_ tea.Msg = toastMsg{}
	_ tea.Msg = doneMsg{}
	_ tea.Msg = detailMsg{}
)

// changedMsg reports that a store's state moved and the view should be rebuilt.
type changedMsg struct{}

// toastMsg carries one toast from the queue.
type toastMsg stores.Toast

// doneMsg reports the end of a background action.
type doneMsg struct {
	action string
	err    error
}

// detailMsg carries a fetched media item.
type detailMsg struct {
	media models.Media
	err   error
}
