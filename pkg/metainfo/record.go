package metainfo

// Source says where a record's metadata came from.
type Source string

const (
	SourceMagnet  Source = "magnet"
	SourceTorrent Source = "torrent"
)

// Record is the canonical, immutable result of one metadata resolution. It is
// what the API hands back to callers and what the acquisition workflow keys
// its backend calls on.
type Record struct {
	Source       Source        `json:"source"`
	V1Hash       string        `json:"v1Hash,omitempty"`
	V2Hash       string        `json:"v2Hash,omitempty"`
	Name         string        `json:"name"`
	TotalLength  int64         `json:"totalLength"`
	Files        []FileEntry   `json:"files"`
	FileTree     *FileTreeNode `json:"fileTree,omitempty"`
	Announce     string        `json:"announce,omitempty"`
	AnnounceList [][]string    `json:"announceList,omitempty"`
	Private      bool          `json:"private"`
	CreatedBy    string        `json:"createdBy,omitempty"`
	CreationDate int64         `json:"creationDate,omitempty"`
	Comment      string        `json:"comment,omitempty"`
}

// InfoHash is the identifier a backend reports the torrent under: the v1 hash
// when one exists, otherwise the truncated v2 hash.
func (r *Record) InfoHash() string {
	if r.V1Hash != "" {
		return r.V1Hash
	}

	if len(r.V2Hash) >= 40 {
		return r.V2Hash[:40]
	}

	return r.V2Hash
}
