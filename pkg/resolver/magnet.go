package resolver

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/pojntfx/atorrent/pkg/metainfo"
)

var (
	ErrInvalidMagnet         = errors.New("could not parse invalid magnet link")
	ErrUnsupportedHashLength = errors.New("could not handle info hash of unsupported length")
)

const infoHashPrefix = "urn:btih:"

// Magnet is the identifier portion of a magnet link, known without touching
// the swarm.
type Magnet struct {
	V1Hash      string
	V2Hash      string
	DisplayName string
	Trackers    []string
}

// InfoHash mirrors metainfo.Record.InfoHash for the pre-resolution case.
func (m *Magnet) InfoHash() string {
	if m.V1Hash != "" {
		return m.V1Hash
	}

	if len(m.V2Hash) >= 40 {
		return m.V2Hash[:40]
	}

	return m.V2Hash
}

// ParseMagnet extracts the content identifier, display name and trackers from
// a magnet link. The length of the `xt` token decides its encoding: 40 hex
// characters (v1), 32 base32 characters (v1) or 64 hex characters (v2).
func ParseMagnet(raw string) (*Magnet, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMagnet, err)
	}
	if u.Scheme != "magnet" {
		return nil, fmt.Errorf("%w: unexpected scheme %q", ErrInvalidMagnet, u.Scheme)
	}

	query := u.Query()

	xt := query.Get("xt")
	if !strings.HasPrefix(xt, infoHashPrefix) {
		return nil, fmt.Errorf("%w: missing %q exact topic", ErrInvalidMagnet, infoHashPrefix)
	}
	token := strings.TrimPrefix(xt, infoHashPrefix)

	m := &Magnet{
		DisplayName: query.Get("dn"),
		Trackers:    query["tr"],
	}

	switch len(token) {
	case 40:
		if _, err := hex.DecodeString(token); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMagnet, err)
		}

		m.V1Hash = strings.ToLower(token)
	case 32:
		hash, err := base32.StdEncoding.DecodeString(strings.ToUpper(token))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMagnet, err)
		}

		m.V1Hash = hex.EncodeToString(hash)
	case 64:
		if _, err := hex.DecodeString(token); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMagnet, err)
		}

		m.V2Hash = strings.ToLower(token)
	default:
		return nil, fmt.Errorf("%w: %d characters", ErrUnsupportedHashLength, len(token))
	}

	return m, nil
}

// DegradedRecord is the partial metadata record used when the swarm could not
// be reached: identifier and display name only, no files.
func (m *Magnet) DegradedRecord() *metainfo.Record {
	r := &metainfo.Record{
		Source: metainfo.SourceMagnet,
		V1Hash: m.V1Hash,
		V2Hash: m.V2Hash,
		Name:   m.DisplayName,
		Files:  []metainfo.FileEntry{},
	}

	if len(m.Trackers) > 0 {
		r.Announce = m.Trackers[0]
		r.AnnounceList = [][]string{m.Trackers}
	}

	return r
}
