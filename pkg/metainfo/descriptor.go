package metainfo

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pojntfx/atorrent/pkg/bencode"
)

var (
	ErrMissingInfoDictionary  = errors.New("could not find info dictionary in torrent")
	ErrMissingFileInformation = errors.New("could not find file information in torrent")
)

const v1PieceHashLength = 20

// Descriptor is a parsed torrent info dictionary plus the surrounding
// document, when one was available.
type Descriptor struct {
	Name        string
	PieceLength int64
	PieceCount  int
	MetaVersion int
	Private     bool

	// Info is the decoded info dictionary; its raw byte span backs the v1
	// hash computation.
	Info *bencode.Value

	doc *bencode.Value
}

type infoFields struct {
	Name        string `mapstructure:"name"`
	PieceLength int64  `mapstructure:"piece length"`
	Private     bool   `mapstructure:"private"`
	MetaVersion int    `mapstructure:"meta version"`
}

type documentFields struct {
	Announce     string     `mapstructure:"announce"`
	AnnounceList [][]string `mapstructure:"announce-list"`
	Comment      string     `mapstructure:"comment"`
	CreatedBy    string     `mapstructure:"created by"`
	CreationDate int64      `mapstructure:"creation date"`
}

// ParseDescriptor decodes a full `.torrent` document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	doc, err := bencode.Decode(data)
	if err != nil {
		return nil, err
	}

	info, ok := doc.Get("info")
	if !ok || info.Kind() != bencode.KindDict {
		return nil, ErrMissingInfoDictionary
	}

	d, err := newDescriptor(info)
	if err != nil {
		return nil, err
	}
	d.doc = doc

	return d, nil
}

// ParseInfoDescriptor decodes a bare info dictionary, as handed back by a
// swarm metadata exchange.
func ParseInfoDescriptor(infoBytes []byte) (*Descriptor, error) {
	info, err := bencode.Decode(infoBytes)
	if err != nil {
		return nil, err
	}
	if info.Kind() != bencode.KindDict {
		return nil, ErrMissingInfoDictionary
	}

	return newDescriptor(info)
}

func newDescriptor(info *bencode.Value) (*Descriptor, error) {
	fields := infoFields{}
	if err := decodeWeakly(info.Unwrap(), &fields); err != nil {
		return nil, err
	}

	d := &Descriptor{
		Name:        fields.Name,
		PieceLength: fields.PieceLength,
		MetaVersion: fields.MetaVersion,
		Private:     fields.Private,

		Info: info,
	}

	if pieces, ok := info.Get("pieces"); ok {
		d.PieceCount = len(pieces.Bytes()) / v1PieceHashLength
	}

	return d, nil
}

// decodeWeakly maps unwrapped bencode values onto a tagged struct, converting
// byte strings to valid UTF-8 along the way.
func decodeWeakly(input any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           result,
		DecodeHook: func(src reflect.Kind, target reflect.Kind, from any) (any, error) {
			if target == reflect.String {
				switch v := from.(type) {
				case []byte:
					return strings.ToValidUTF8(string(v), ""), nil
				case string:
					return strings.ToValidUTF8(v, ""), nil
				}
			}

			return from, nil
		},
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}

// V1Hash is the hex SHA-1 of the info dictionary over its original byte span.
// Re-encoding is only a fallback for descriptors constructed in code; a
// decoded span is always preferred since an encoder's canonicalization is not
// guaranteed to byte-match an arbitrary producer's.
func (d *Descriptor) V1Hash() string {
	enc := d.Info.Raw()
	if enc == nil {
		enc = bencode.Encode(d.Info)
	}

	sum := sha1.Sum(enc)

	return hex.EncodeToString(sum[:])
}

// V2Hash is the hex SHA-256 of the canonical info encoding with the legacy
// `pieces` field blanked, matching how v2 identifiers exclude v1 piece hashes.
func (d *Descriptor) V2Hash() string {
	clone := bencode.NewDict()
	for _, key := range d.Info.Keys() {
		val, _ := d.Info.Get(key)
		if key == "pieces" {
			val = bencode.NewBytes(nil)
		}

		clone.Set(key, val)
	}

	sum := sha256.Sum256(bencode.Encode(clone))

	return hex.EncodeToString(sum[:])
}

// Files normalizes the v2 file tree, the v1 multi-file list or the v1
// single-file fields into one canonical flat list.
func (d *Descriptor) Files() ([]FileEntry, error) {
	if tree, ok := d.Info.Get("file tree"); ok && tree.Kind() == bencode.KindDict {
		files := []FileEntry{}
		walkFileTree(tree, nil, &files)

		return validatePaths(qualifyPaths(d.Name, files))
	}

	if list, ok := d.Info.Get("files"); ok && list.Kind() == bencode.KindList {
		files := []FileEntry{}
		for _, entry := range list.List() {
			length, _ := entry.Get("length")
			pathList, ok := entry.Get("path")
			if !ok || length == nil || len(pathList.List()) == 0 {
				return nil, ErrMissingFileInformation
			}

			path := []string{}
			for _, segment := range pathList.List() {
				path = append(path, segment.Text())
			}

			files = append(files, FileEntry{Path: path, Length: length.Int64()})
		}

		return validatePaths(qualifyPaths(d.Name, files))
	}

	if length, ok := d.Info.Get("length"); ok {
		return []FileEntry{{Path: []string{d.Name}, Length: length.Int64()}}, nil
	}

	return nil, ErrMissingFileInformation
}

// walkFileTree flattens a v2 file tree depth-first. A node is a leaf when it
// carries the empty-string key holding the file attributes.
func walkFileTree(node *bencode.Value, prefix []string, out *[]FileEntry) {
	if attrs, ok := node.Get(""); ok {
		var length int64
		if l, ok := attrs.Get("length"); ok {
			length = l.Int64()
		}

		path := make([]string, len(prefix))
		copy(path, prefix)

		*out = append(*out, FileEntry{Path: path, Length: length})

		return
	}

	for _, name := range node.Keys() {
		child, _ := node.Get(name)
		if child.Kind() != bencode.KindDict {
			continue
		}

		walkFileTree(child, append(prefix, name), out)
	}
}

// validatePaths rejects file entries without a single path segment, which a
// torrent with an empty `path` list or an unnamed root-level leaf would
// otherwise produce.
func validatePaths(files []FileEntry) ([]FileEntry, error) {
	for _, file := range files {
		if len(file.Path) == 0 {
			return nil, ErrMissingFileInformation
		}
	}

	return files, nil
}

// qualifyPaths roots multi-file layouts under the torrent name, mirroring how
// backends lay the content out on disk. A lone top-level file keeps its path.
func qualifyPaths(name string, files []FileEntry) []FileEntry {
	if name == "" || (len(files) == 1 && len(files[0].Path) == 1) {
		return files
	}

	for i, file := range files {
		files[i].Path = append([]string{name}, file.Path...)
	}

	return files
}

// Record assembles the canonical metadata record for this descriptor.
func (d *Descriptor) Record(source Source) (*Record, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}

	var total int64
	for _, file := range files {
		total += file.Length
	}

	r := &Record{
		Source:      source,
		Name:        d.Name,
		TotalLength: total,
		Files:       files,
		FileTree:    BuildFileTree(files),
		Private:     d.Private,
	}

	// A v1 identifier is only meaningful when v1 piece hashes exist; a
	// v2-only torrent is identified by its (truncated) v2 hash instead.
	if _, ok := d.Info.Get("pieces"); ok || d.MetaVersion < 2 {
		r.V1Hash = d.V1Hash()
	}
	if d.MetaVersion == 2 {
		r.V2Hash = d.V2Hash()
	}

	if d.doc != nil {
		fields := documentFields{}
		if err := decodeWeakly(d.doc.Unwrap(), &fields); err != nil {
			return nil, err
		}

		r.Announce = fields.Announce
		r.AnnounceList = fields.AnnounceList
		r.Comment = fields.Comment
		r.CreatedBy = fields.CreatedBy
		r.CreationDate = fields.CreationDate
	}

	return r, nil
}

// Parse is the one-step path from raw `.torrent` bytes to a metadata record.
func Parse(data []byte, source Source) (*Record, error) {
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, err
	}

	return d.Record(source)
}

// ParseInfo builds a metadata record from a bare info dictionary.
func ParseInfo(infoBytes []byte, source Source) (*Record, error) {
	d, err := ParseInfoDescriptor(infoBytes)
	if err != nil {
		return nil, err
	}

	return d.Record(source)
}
