package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/storage"
	"github.com/phayes/freeport"
	"github.com/pojntfx/atorrent/pkg/metainfo"
	"github.com/rs/zerolog/log"
)

// Resolver turns magnet links and torrent URLs into metadata records. Magnet
// metadata comes from the swarm through an embedded torrent client; the
// client never downloads payload data.
type Resolver struct {
	storage string
	timeout time.Duration
	debug   bool

	torrentClient *torrent.Client

	ctx context.Context
}

func NewResolver(
	storage string,
	timeout time.Duration,
	debug bool,

	ctx context.Context,
) *Resolver {
	return &Resolver{
		storage: storage,
		timeout: timeout,
		debug:   debug,

		ctx: ctx,
	}
}

func (r *Resolver) Open() error {
	log.Trace().Msg("Opening resolver")

	cfg := torrent.NewDefaultClientConfig()
	cfg.Debug = r.debug
	cfg.DefaultStorage = storage.NewFileByInfoHash(r.storage)
	cfg.NoUpload = true

	torrentPort, err := freeport.GetFreePort()
	if err != nil {
		panic(err)
	}
	cfg.ListenPort = torrentPort

	c, err := torrent.NewClient(cfg)
	if err != nil {
		return err
	}
	r.torrentClient = c

	return nil
}

func (r *Resolver) Close() error {
	log.Trace().Msg("Closing resolver")

	errs := r.torrentClient.Close()
	for _, err := range errs {
		if err != nil {
			if err != context.Canceled {
				return err
			}
		}
	}

	return nil
}

// Resolve fetches full metadata for a magnet link from the swarm, bounded by
// the resolver's timeout. A swarm that can't be reached in time degrades to a
// partial record instead of failing; the identifier alone is still useful to
// the caller. The torrent handle is dropped on every exit path.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*metainfo.Record, error) {
	magnet, err := ParseMagnet(raw)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("magnet", raw).
		Msg("Resolving magnet link")

	t, err := r.torrentClient.AddMagnet(raw)
	if err != nil {
		log.Debug().
			Err(err).
			Str("magnet", raw).
			Msg("Could not add magnet link, returning partial record")

		return magnet.DegradedRecord(), nil
	}
	defer t.Drop()

	timeout := time.NewTimer(r.timeout)
	defer timeout.Stop()

	select {
	case <-t.GotInfo():
	case <-timeout.C:
		log.Debug().
			Str("magnet", raw).
			Dur("timeout", r.timeout).
			Msg("Metadata exchange timed out, returning partial record")

		return magnet.DegradedRecord(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	record, err := metainfo.ParseInfo([]byte(t.Metainfo().InfoBytes), metainfo.SourceMagnet)
	if err != nil {
		log.Debug().
			Err(err).
			Str("magnet", raw).
			Msg("Could not parse swarm metadata, returning partial record")

		return magnet.DegradedRecord(), nil
	}

	if record.Name == "" {
		record.Name = magnet.DisplayName
	}
	if record.Announce == "" && len(magnet.Trackers) > 0 {
		record.Announce = magnet.Trackers[0]
		record.AnnounceList = [][]string{magnet.Trackers}
	}

	return record, nil
}

// ResolveIdentifier routes an acquisition identifier to magnet resolution or
// torrent file fetching.
func (r *Resolver) ResolveIdentifier(ctx context.Context, identifier string) (*metainfo.Record, error) {
	if strings.HasPrefix(identifier, "magnet:") {
		return r.Resolve(ctx, identifier)
	}

	return r.FetchTorrent(ctx, identifier)
}
