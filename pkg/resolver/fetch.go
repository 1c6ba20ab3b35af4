package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pojntfx/atorrent/pkg/metainfo"
	"github.com/rs/zerolog/log"
)

var (
	ErrFetchFailed = errors.New("could not fetch torrent file")
)

// FetchTorrent downloads a `.torrent` document over HTTP, bounded by the
// resolver's timeout, and parses it into a metadata record.
func (r *Resolver) FetchTorrent(ctx context.Context, rawURL string) (*metainfo.Record, error) {
	log.Debug().
		Str("url", rawURL).
		Msg("Fetching torrent file")

	hc := &http.Client{
		Timeout: r.timeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFetchFailed, rawURL, err)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFetchFailed, rawURL, err)
	}
	if res.Body != nil {
		defer res.Body.Close()
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %q: %v", ErrFetchFailed, rawURL, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrFetchFailed, rawURL, err)
	}

	return metainfo.Parse(body, metainfo.SourceTorrent)
}
