package music

import (
	"strings"

	"market-dashboard/src/models"
)

type searchResponse struct {
	Tracks    *page[trackItem]    `json:"tracks"`
	Playlists *page[playlistItem] `json:"playlists"`
}

type page[T any] struct {
	// Playlist pages may contain null entries.
	Items []*T `json:"items"`
}

type trackItem struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	URI     string               `json:"uri"`
	Artists []models.MMusicActor `json:"artists"`
	Album   struct {
		Images []models.MMusicImage `json:"images"`
	} `json:"album"`
}

type playlistItem struct {
	ID     string               `json:"id"`
	Name   string               `json:"name"`
	URI    string               `json:"uri"`
	Images []models.MMusicImage `json:"images"`
	Owner  *struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
}

// -----------------------------------------------------------------------------

func (t *trackItem) toTrack() (models.MMusicItem, bool) {
	if t == nil || t.ID == "" || t.URI == "" {
		return models.MMusicItem{}, false
	}

	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	artist := strings.Join(names, ", ")
	if artist == "" {
		artist = "Unknown Artist"
	}

	return models.MMusicItem{
		ID:      t.ID,
		Type:    "track",
		Name:    orDefault(t.Name, "Unknown Track"),
		Artist:  artist,
		Artists: nonNil(t.Artists),
		URI:     t.URI,
		Images:  nonNil(t.Album.Images),
	}, true
}

// -----------------------------------------------------------------------------

func (p *playlistItem) toPlaylist() (models.MMusicItem, bool) {
	if p == nil || p.ID == "" || p.URI == "" {
		return models.MMusicItem{}, false
	}

	owner := "Spotify"
	if p.Owner != nil && p.Owner.DisplayName != "" {
		owner = p.Owner.DisplayName
	}

	return models.MMusicItem{
		ID:      p.ID,
		Type:    "playlist",
		Name:    orDefault(p.Name, "Unknown Playlist"),
		Artist:  owner,
		Artists: []models.MMusicActor{{Name: owner}},
		URI:     p.URI,
		Images:  nonNil(p.Images),
	}, true
}

// -----------------------------------------------------------------------------

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
