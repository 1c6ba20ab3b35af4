package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddTorrentSubmitsForm(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/torrents/add", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/v2", "", "", time.Second)

	err := c.AddTorrent(context.Background(), AddOptions{
		URLs:                   "magnet:?xt=urn:btih:0000000000000000000000000000000000000000",
		SavePath:               "/downloads",
		Paused:                 true,
		Sequential:             true,
		FirstLastPiecePriority: false,
		ContentLayout:          "Original",
	})
	require.NoError(t, err)

	assert.Equal(t, "/downloads", form.Get("savepath"))
	assert.Equal(t, "true", form.Get("paused"))
	assert.Equal(t, "true", form.Get("sequentialDownload"))
	assert.Equal(t, "false", form.Get("firstLastPiecePrio"))
	assert.Equal(t, "Original", form.Get("contentLayout"))
}

func TestLatestTorrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/torrents/info", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("limit"))
		require.Equal(t, "added_on", r.URL.Query().Get("sort"))
		require.Equal(t, "true", r.URL.Query().Get("reverse"))

		if _, err := w.Write([]byte(`[{"hash":"abc","name":"show","added_on":1680000000,"state":"pausedDL"}]`)); err != nil {
			panic(err)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)

	torrent, err := c.LatestTorrent(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "abc", torrent.Hash)
	assert.Equal(t, "show", torrent.Name)
	assert.Equal(t, "pausedDL", torrent.State)
}

func TestLatestTorrentEmptyListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("[]")); err != nil {
			panic(err)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)

	_, err := c.LatestTorrent(context.Background())
	assert.ErrorIs(t, err, ErrNoTorrents)
}

func TestSetFilePriorityJoinsIndices(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/torrents/filePrio", r.URL.Path)
		require.NoError(t, r.ParseForm())
		form = r.PostForm
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)

	require.NoError(t, c.SetFilePriority(context.Background(), "abc", []int{0, 2, 4}, 0))

	assert.Equal(t, "abc", form.Get("hash"))
	assert.Equal(t, "0", form.Get("priority"))
	assert.Equal(t, "0|2|4", form.Get("id"))
}

func TestRejectedCallSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)

	err := c.StartTorrents(context.Background(), []string{"abc"})
	assert.ErrorContains(t, err, "403")
}
