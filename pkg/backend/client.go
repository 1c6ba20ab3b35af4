package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

var (
	ErrNoTorrents = errors.New("could not find any torrents on the backend")
)

// Client speaks the download backend's WebUI API. The backend is a black box
// reached over HTTP; every call is bounded by the client's timeout and the
// caller's context.
type Client struct {
	url      string
	username string
	password string

	hc *http.Client
}

func NewClient(
	url string,
	username string,
	password string,
	timeout time.Duration,
) *Client {
	return &Client{
		url:      url,
		username: username,
		password: password,

		hc: &http.Client{
			Timeout: timeout,
		},
	}
}

// AddOptions are the submission fields for registering a torrent.
type AddOptions struct {
	URLs                   string
	SavePath               string
	Paused                 bool
	Sequential             bool
	FirstLastPiecePriority bool
	ContentLayout          string
}

// Torrent is one entry of the backend's torrent listing.
type Torrent struct {
	Hash     string `json:"hash"`
	Name     string `json:"name"`
	SavePath string `json:"save_path"`
	AddedOn  int64  `json:"added_on"`
	State    string `json:"state"`
}

func (c *Client) postForm(ctx context.Context, form url.Values, segments ...string) error {
	u, err := url.JoinPath(c.url, segments...)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	if res.Body != nil {
		defer res.Body.Close()
	}
	if res.StatusCode != http.StatusOK {
		return errors.New(res.Status)
	}

	return nil
}

// AddTorrent submits a torrent by magnet link or URL.
func (c *Client) AddTorrent(ctx context.Context, opts AddOptions) error {
	log.Debug().
		Str("urls", opts.URLs).
		Str("savePath", opts.SavePath).
		Bool("paused", opts.Paused).
		Msg("Adding torrent to backend")

	form := url.Values{}
	form.Set("urls", opts.URLs)
	form.Set("savepath", opts.SavePath)
	form.Set("paused", strconv.FormatBool(opts.Paused))
	form.Set("sequentialDownload", strconv.FormatBool(opts.Sequential))
	form.Set("firstLastPiecePrio", strconv.FormatBool(opts.FirstLastPiecePriority))
	if opts.ContentLayout != "" {
		form.Set("contentLayout", opts.ContentLayout)
	}

	return c.postForm(ctx, form, "torrents", "add")
}

// LatestTorrent returns the most recently added torrent, or ErrNoTorrents
// when the listing is empty.
func (c *Client) LatestTorrent(ctx context.Context) (*Torrent, error) {
	u, err := url.JoinPath(c.url, "torrents", "info")
	if err != nil {
		return nil, err
	}

	infoURL, err := url.Parse(u)
	if err != nil {
		return nil, err
	}

	q := infoURL.Query()
	q.Set("limit", "1")
	q.Set("sort", "added_on")
	q.Set("reverse", "true")
	infoURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL.String(), http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if res.Body != nil {
		defer res.Body.Close()
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.New(res.Status)
	}

	torrents := []Torrent{}
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&torrents); err != nil {
		return nil, err
	}

	if len(torrents) == 0 {
		return nil, ErrNoTorrents
	}

	return &torrents[0], nil
}

// SetFilePriority sets the download priority for a set of file indices;
// priority 0 marks them "do not download".
func (c *Client) SetFilePriority(ctx context.Context, hash string, ids []int, priority int) error {
	log.Debug().
		Str("hash", hash).
		Ints("ids", ids).
		Int("priority", priority).
		Msg("Setting file priorities on backend")

	segments := make([]string, 0, len(ids))
	for _, id := range ids {
		segments = append(segments, strconv.Itoa(id))
	}

	form := url.Values{}
	form.Set("hash", hash)
	form.Set("priority", strconv.Itoa(priority))
	form.Set("id", strings.Join(segments, "|"))

	return c.postForm(ctx, form, "torrents", "filePrio")
}

// StartTorrents starts the given torrents.
func (c *Client) StartTorrents(ctx context.Context, hashes []string) error {
	log.Debug().
		Strs("hashes", hashes).
		Msg("Starting torrents on backend")

	form := url.Values{}
	form.Set("hashes", strings.Join(hashes, "|"))

	return c.postForm(ctx, form, "torrents", "start")
}
