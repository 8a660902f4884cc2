package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
	"github.com/desertthunder/fmx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AlbumListView ViewState = iota
	SyncView
	ResultView
)

// SnapshotLoader reads the stored snapshot.
type SnapshotLoader interface {
	Load() (*models.Snapshot, error)
}

// Syncer runs a sync pass.
type Syncer interface {
	Sync(ctx context.Context, progress chan<- tasks.ProgressUpdate) (*tasks.SyncResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	loader       SnapshotLoader
	syncer       Syncer
	open         func(url string) error
	width        int
	height       int
	albumList    list.Model
	snapshot     *models.Snapshot
	progressChan <-chan tasks.ProgressUpdate
	doneChan     <-chan Msg
	progress     tasks.ProgressUpdate
	result       *tasks.SyncResult
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. syncer may be nil, in which case the sync key is disabled.
func NewModel(ctx context.Context, loader SnapshotLoader, syncer Syncer) *Model {
	m := &Model{
		ctx:       ctx,
		view:      AlbumListView,
		loader:    loader,
		syncer:    syncer,
		open:      shared.OpenBrowser,
		albumList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	m.albumList.Title = "Recently Played Albums"
	m.albumList.SetShowHelp(false)
	if syncer == nil {
		m.keys.sync.SetEnabled(false)
	}
	return m
}

// Init loads the stored snapshot.
func (m *Model) Init() tea.Cmd {
	return m.loadSnapshot()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.albumList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AlbumListView:
			return m.handleAlbumListKeys(msg)
		case SyncView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.albumList, cmd = m.albumList.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSnapshotLoaded:
		data := msg.data.(snapshotLoaded)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.snapshot = data.snapshot
		cmd := m.albumList.SetItems(albumItems(data.snapshot.Albums))
		return m, cmd

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSyncComplete:
		data := msg.data.(syncComplete)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		return m, m.loadSnapshot()

	case MsgBrowserOpened:
		data := msg.data.(browserOpened)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not open %s: %v", data.album.URI, data.err))
		} else {
			m.status = styles.ok.Render(fmt.Sprintf("Opened %s", data.album.Title))
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case AlbumListView:
		return m.renderAlbumList()
	case SyncView:
		return m.renderSync()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleAlbumListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.albumList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.albumList, cmd = m.albumList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if item, ok := m.albumList.SelectedItem().(albumItem); ok {
			if !item.album.HasLink() {
				m.status = styles.warn.Render(fmt.Sprintf("%s has no Last.fm page", item.album.Title))
				return m, nil
			}
			return m, m.openAlbum(item.album)
		}
		return m, nil
	case key.Matches(msg, m.keys.sync):
		m.view = SyncView
		m.status = ""
		m.progress = tasks.ProgressUpdate{}
		return m, m.startSync()
	}

	var cmd tea.Cmd
	m.albumList, cmd = m.albumList.Update(msg)
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.open):
		m.view = AlbumListView
		m.result = nil
		m.err = nil
	}
	return m, nil
}

func (m *Model) loadSnapshot() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.loader.Load()
		return snapshotLoadedMsg(snapshot, err)
	}
}

func (m *Model) openAlbum(album models.Album) tea.Cmd {
	return func() tea.Msg {
		return browserOpenedMsg(album, m.open(album.URI))
	}
}

func (m *Model) startSync() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.doneChan = done

	go func() {
		result, err := m.syncer.Sync(m.ctx, progress)
		done <- syncCompleteMsg(result, err)
		close(progress)
	}()

	return m.waitForProgress()
}

// waitForProgress reads the next update of the running sync, or its result once the progress channel closes.
func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderAlbumList() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	var b strings.Builder
	if m.snapshot.IsEmpty() {
		b.WriteString(styles.title.Render("Recently Played Albums"))
		b.WriteString("\nNo albums yet.")
		if m.keys.sync.Enabled() {
			b.WriteString(" Press s to sync.")
		}
		b.WriteString("\n")
	} else {
		b.WriteString(m.albumList.View())
		b.WriteString("\n")
		if !m.snapshot.SyncedAt.IsZero() {
			b.WriteString(styles.help.Render("synced " + m.snapshot.SyncedAt.Local().Format("2006-01-02 15:04")))
			b.WriteString("\n")
		}
	}

	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderSync() string {
	title := styles.title.Render("Syncing Recent Albums")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchFeed:
		phase = "Fetching recent tracks..."
	case tasks.ResolveAlbums:
		phase = fmt.Sprintf("Resolving albums (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.SaveSnapshot:
		phase = "Saving snapshot..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)), helpView)
	}
	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	var title string
	switch m.result.Status {
	case models.RunPreserved:
		title = styles.warn.Render("No albums resolved, previous snapshot kept")
	default:
		title = styles.ok.Render("✓ Sync Complete!")
	}

	info := fmt.Sprintf(
		"\nTracks: %d\nAlbums: %d\nSkipped: %d\nDropped: %d\nTook: %s",
		m.result.TracksSeen,
		len(m.result.Albums),
		m.result.Skipped,
		m.result.Dropped,
		m.result.FinishedAt.Sub(m.result.StartedAt).Round(time.Millisecond),
	)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
