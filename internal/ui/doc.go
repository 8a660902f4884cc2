// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI shows the stored recent-albums snapshot and lets the user act on it:
//  1. [AlbumListView] : Browse albums; enter opens the album's Last.fm page in the browser
//  2. [SyncView] : Monitor a sync pass started with s
//  3. [ResultView] : Counters of the finished pass, then back to the refreshed list
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a channel from the AlbumEngine, the same channel the CLI reads.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, s, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
