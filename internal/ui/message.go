package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSnapshotLoaded MsgKind = iota
	MsgProgressUpdate
	MsgSyncComplete
	MsgBrowserOpened
)

type snapshotLoaded struct {
	snapshot *models.Snapshot
	err      error
}

type syncComplete struct {
	result *tasks.SyncResult
	err    error
}

type browserOpened struct {
	album models.Album
	err   error
}

// snapshotLoadedMsg is the constructor for [MsgSnapshotLoaded]
func snapshotLoadedMsg(snapshot *models.Snapshot, err error) Msg {
	return Msg{kind: MsgSnapshotLoaded, data: snapshotLoaded{snapshot, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result *tasks.SyncResult, err error) Msg {
	return Msg{kind: MsgSyncComplete, data: syncComplete{result, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(album models.Album, err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: browserOpened{album, err}}
}
