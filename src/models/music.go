package models

// MMusicItem is one search hit: a track or a playlist.
type MMusicItem struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"` // track or playlist
	Name    string        `json:"name"`
	Artist  string        `json:"artist"`
	Artists []MMusicActor `json:"artists"`
	URI     string        `json:"uri"`
	Images  []MMusicImage `json:"images"`
}

type MMusicActor struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

type MMusicImage struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// MMusicTokens is the result of an authorization code exchange.
type MMusicTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}
