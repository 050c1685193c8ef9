package music

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"market-dashboard/src/config"
	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tracksBody = `{"tracks":{"items":[
		{"id":"t1","name":"Blue in Green","uri":"spotify:track:t1","artists":[{"name":"Miles Davis"},{"name":"Bill Evans"}],"album":{"images":[{"url":"http://img/1","height":64,"width":64}]}},
		{"id":"","name":"broken","uri":"spotify:track:x"},
		{"id":"t2","uri":"spotify:track:t2"}
	]}}`
	playlistsBody = `{"playlists":{"items":[
		null,
		{"id":"p1","name":"Focus","uri":"spotify:playlist:p1","images":[],"owner":{"display_name":"dana"}},
		{"id":"p2","name":"","uri":"spotify:playlist:p2"}
	]}}`
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.Network.BreakerFailures = 0
	cfg.Providers.SpotifyAuthURL = srv.URL + "/accounts"
	cfg.Providers.SpotifyAPIURL = srv.URL + "/v1"
	cfg.Providers.SpotifyClientID = "client"
	cfg.Providers.SpotifyClientSecret = "secret"
	cfg.Providers.SpotifyRedirectURI = "http://localhost:3000/config.html"

	log := logger.NewNop("music-test")
	return NewClient(cfg, network.NewAsyncNetworkManager(cfg, ProviderName, log), log)
}

func TestAuthURL(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	raw, err := c.AuthURL()
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(u.Path, "/accounts/authorize"))
	q := u.Query()
	assert.Equal(t, "client", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "http://localhost:3000/config.html", q.Get("redirect_uri"))
	assert.Equal(t, strings.Join(Scopes, " "), q.Get("scope"))

	c.Config.Providers.SpotifyClientID = ""
	_, err = c.AuthURL()
	var cfgErr *helpers.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestExchange(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/accounts/api/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("client:secret"))
		if r.Header.Get("Authorization") != wantAuth || r.PostForm.Get("code") != "good" ||
			r.PostForm.Get("grant_type") != "authorization_code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		fmt.Fprint(w, `{"access_token":"acc","refresh_token":"ref","expires_in":3600}`)
	}))

	tokens, err := c.Exchange(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, models.MMusicTokens{AccessToken: "acc", RefreshToken: "ref", ExpiresIn: 3600}, tokens)

	_, err = c.Exchange(context.Background(), "bad")
	var provErr *helpers.ProviderError
	assert.ErrorAs(t, err, &provErr)

	_, err = c.Exchange(context.Background(), "")
	assert.True(t, helpers.IsValidation(err))

	c.Config.Providers.SpotifyClientSecret = ""
	_, err = c.Exchange(context.Background(), "good")
	var cfgErr *helpers.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestApplyTokens(t *testing.T) {
	cfg := models.DefaultDashboardConfig()
	cfg.Spotify = nil
	now := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

	ApplyTokens(&cfg, models.MMusicTokens{AccessToken: "acc", RefreshToken: "ref", ExpiresIn: 60}, now)

	require.NotNil(t, cfg.Spotify)
	assert.False(t, cfg.Spotify.Enabled)
	assert.Equal(t, "acc", *cfg.Spotify.AccessToken)
	assert.Equal(t, "ref", *cfg.Spotify.RefreshToken)
	assert.Equal(t, now.Add(time.Minute).UnixMilli(), *cfg.Spotify.TokenExpiresAt)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("type") {
		case "track":
			fmt.Fprint(w, tracksBody)
		case "playlist":
			fmt.Fprint(w, playlistsBody)
		}
	}))

	items, err := c.Search(context.Background(), "tok", "kind of blue")
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, "Miles Davis, Bill Evans", items[0].Artist)
	assert.Equal(t, "track", items[0].Type)
	assert.Len(t, items[0].Images, 1)
	assert.Equal(t, "Unknown Track", items[1].Name)
	assert.Equal(t, "Unknown Artist", items[1].Artist)

	assert.Equal(t, "playlist", items[2].Type)
	assert.Equal(t, "dana", items[2].Artist)
	assert.Equal(t, []models.MMusicActor{{Name: "dana"}}, items[2].Artists)
	assert.Equal(t, "Unknown Playlist", items[3].Name)
	assert.Equal(t, "Spotify", items[3].Artist)

	_, err = c.Search(context.Background(), "expired", "kind of blue")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Search(context.Background(), "tok", " ")
	assert.True(t, helpers.IsValidation(err))
}

func TestSearch_FailedHalfIsEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == "playlist" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, tracksBody)
	}))

	items, err := c.Search(context.Background(), "tok", "blue")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
