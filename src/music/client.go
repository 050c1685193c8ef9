package music

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-dashboard/src/helpers"
	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"golang.org/x/sync/errgroup"
)

const (
	ProviderName = "spotify"

	searchLimit = "10"
)

// Scopes requested from the user on authorization.
var Scopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"streaming",
	"playlist-read-private",
	"playlist-read-collaborative",
}

// ErrUnauthorized means the provider rejected the caller's access token.
var ErrUnauthorized = errors.New("invalid or expired token")

// -----------------------------------------------------------------------------

// Client calls through to the music provider for the browser: it builds the
// authorization URL, exchanges codes for tokens and searches the catalogue.
// Playback itself happens in the browser.
type Client struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewClient(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *Client {
	return &Client{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// Configured reports whether both client credentials are present.
func (c *Client) Configured() bool {
	p := c.Config.Providers
	return p.SpotifyClientID != "" && p.SpotifyClientSecret != ""
}

// -----------------------------------------------------------------------------

// AuthURL returns the page the user is sent to for granting access.
func (c *Client) AuthURL() (string, error) {
	p := c.Config.Providers
	if p.SpotifyClientID == "" {
		return "", helpers.NewConfigurationError("Spotify client ID not configured", nil)
	}

	q := url.Values{}
	q.Set("client_id", p.SpotifyClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", p.SpotifyRedirectURI)
	q.Set("scope", strings.Join(Scopes, " "))
	return p.SpotifyAuthURL + "/authorize?" + q.Encode(), nil
}

// -----------------------------------------------------------------------------

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (models.MMusicTokens, error) {
	var tokens models.MMusicTokens
	if strings.TrimSpace(code) == "" {
		return tokens, helpers.NewValidationError("No authorization code provided")
	}
	if !c.Configured() {
		return tokens, helpers.NewConfigurationError("Spotify credentials not configured", nil)
	}

	p := c.Config.Providers
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", p.SpotifyRedirectURI)

	basic := base64.StdEncoding.EncodeToString([]byte(p.SpotifyClientID + ":" + p.SpotifyClientSecret))
	resp, err := c.Network.PostForm(ctx, p.SpotifyAuthURL+"/api/token", form, map[string]string{
		"Authorization": "Basic " + basic,
	})
	if err != nil {
		c.observe("token", "failed")
		return tokens, helpers.NewProviderError("token exchange", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.observe("token", "failed")
		return tokens, helpers.NewProviderError(fmt.Sprintf("token exchange: unexpected status %d", resp.StatusCode), nil)
	}
	if err := json.Unmarshal(resp.Body, &tokens); err != nil || tokens.AccessToken == "" {
		c.observe("token", "failed")
		return tokens, helpers.NewProviderError("token exchange: bad body", err)
	}
	c.observe("token", "ok")
	return tokens, nil
}

// -----------------------------------------------------------------------------

// ApplyTokens stores tokens in the dashboard document. Other music settings
// are kept.
func ApplyTokens(cfg *models.MDashboardConfig, tokens models.MMusicTokens, now time.Time) {
	if cfg.Spotify == nil {
		cfg.Spotify = &models.MMusicAuth{}
	}
	access := tokens.AccessToken
	refresh := tokens.RefreshToken
	expires := now.Add(time.Duration(tokens.ExpiresIn) * time.Second).UnixMilli()

	cfg.Spotify.AccessToken = &access
	cfg.Spotify.RefreshToken = &refresh
	cfg.Spotify.TokenExpiresAt = &expires
}

// -----------------------------------------------------------------------------

// Search looks up tracks and playlists concurrently. A failed half yields no
// items of that kind; a rejected token fails the whole search.
func (c *Client) Search(ctx context.Context, accessToken, query string) ([]models.MMusicItem, error) {
	if strings.TrimSpace(query) == "" {
		return nil, helpers.NewValidationError("Query parameter required")
	}
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	var tracks searchResponse
	var playlists searchResponse

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.search(gctx, accessToken, query, "track", &tracks)
	})
	g.Go(func() error {
		return c.search(gctx, accessToken, query, "playlist", &playlists)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]models.MMusicItem, 0, 20)
	if tracks.Tracks != nil {
		for _, t := range tracks.Tracks.Items {
			if item, ok := t.toTrack(); ok {
				items = append(items, item)
			}
		}
	}
	if playlists.Playlists != nil {
		for _, p := range playlists.Playlists.Items {
			if item, ok := p.toPlaylist(); ok {
				items = append(items, item)
			}
		}
	}
	return items, nil
}

// -----------------------------------------------------------------------------

// search fills out. Only ErrUnauthorized is returned; other failures leave
// out empty.
func (c *Client) search(ctx context.Context, accessToken, query, kind string, out *searchResponse) error {
	resp, err := c.Network.Get(ctx, c.Config.Providers.SpotifyAPIURL+"/search", map[string]string{
		"q":     query,
		"type":  kind,
		"limit": searchLimit,
	}, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	switch {
	case err != nil:
		c.Logger.Warning("Search %s for %q failed: %v", kind, query, err)
		c.observe("search_"+kind, "failed")
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		c.observe("search_"+kind, "failed")
		return ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		c.Logger.Warning("Search %s for %q: unexpected status %d", kind, query, resp.StatusCode)
		c.observe("search_"+kind, "failed")
		return nil
	}

	if err := json.Unmarshal(resp.Body, out); err != nil {
		c.Logger.Warning("Search %s for %q: bad body: %v", kind, query, err)
		c.observe("search_"+kind, "failed")
		return nil
	}
	c.observe("search_"+kind, "ok")
	return nil
}

// -----------------------------------------------------------------------------

func (c *Client) observe(endpoint, status string) {
	metrics.ProviderFetchesTotal.WithLabelValues(ProviderName, endpoint, status).Inc()
}
