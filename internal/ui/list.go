package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/fmx/internal/models"
)

var _ list.Item = albumItem{}

// albumItem wraps [models.Album] to implement [list.Item].
type albumItem struct {
	album models.Album
}

func (i albumItem) FilterValue() string { return i.album.Title }
func (i albumItem) Title() string       { return i.album.Title }
func (i albumItem) Description() string {
	if i.album.HasLink() {
		return i.album.URI
	}
	return "no Last.fm page"
}

func albumItems(albums []models.Album) []list.Item {
	items := make([]list.Item, len(albums))
	for i, album := range albums {
		items[i] = albumItem{album: album}
	}
	return items
}
