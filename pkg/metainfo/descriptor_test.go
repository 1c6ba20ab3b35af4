package metainfo

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/pojntfx/atorrent/pkg/bencode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleFileInfo() string {
	return "d6:lengthi104857600e4:name9:movie.mkv12:piece lengthi262144e6:pieces20:" + strings.Repeat("x", 20) + "e"
}

func TestParseSingleFile(t *testing.T) {
	info := singleFileInfo()
	doc := "d8:announce30:udp://tracker.example.org:13377:comment4:test10:created by7:mkbrr/113:creation datei1680000000e4:info" + info + "e"

	record, err := Parse([]byte(doc), SourceTorrent)
	require.NoError(t, err)

	sum := sha1.Sum([]byte(info))
	assert.Equal(t, hex.EncodeToString(sum[:]), record.V1Hash)
	assert.Empty(t, record.V2Hash)
	assert.Equal(t, record.V1Hash, record.InfoHash())

	assert.Equal(t, SourceTorrent, record.Source)
	assert.Equal(t, "movie.mkv", record.Name)
	assert.Equal(t, int64(104857600), record.TotalLength)
	assert.Equal(t, []FileEntry{{Path: []string{"movie.mkv"}, Length: 104857600}}, record.Files)

	require.NotNil(t, record.FileTree)
	assert.False(t, record.FileTree.IsDir())
	assert.Equal(t, "movie.mkv", record.FileTree.Name)
	assert.Equal(t, int64(104857600), record.FileTree.Length)

	assert.Equal(t, "udp://tracker.example.org:1337", record.Announce)
	assert.Equal(t, "test", record.Comment)
	assert.Equal(t, "mkbrr/1", record.CreatedBy)
	assert.Equal(t, int64(1680000000), record.CreationDate)
	assert.False(t, record.Private)
}

func TestParseMultiFile(t *testing.T) {
	info := "d5:filesl" +
		"d6:lengthi1e4:pathl1:a6:b1.txtee" +
		"d6:lengthi2e4:pathl1:a6:b2.txtee" +
		"d6:lengthi3e4:pathl5:c.txtee" +
		"e4:name4:show12:piece lengthi16384e6:pieces20:" + strings.Repeat("x", 20) + "7:privatei1ee"
	doc := "d4:info" + info + "e"

	record, err := Parse([]byte(doc), SourceTorrent)
	require.NoError(t, err)

	assert.Equal(t, []FileEntry{
		{Path: []string{"show", "a", "b1.txt"}, Length: 1},
		{Path: []string{"show", "a", "b2.txt"}, Length: 2},
		{Path: []string{"show", "c.txt"}, Length: 3},
	}, record.Files)
	assert.Equal(t, int64(6), record.TotalLength)
	assert.True(t, record.Private)

	tree := record.FileTree
	require.True(t, tree.IsDir())
	assert.Equal(t, int64(6), tree.Size)

	show, ok := tree.Children["show"]
	require.True(t, ok)
	assert.Equal(t, int64(6), show.Size)
	assert.Equal(t, int64(3), show.Children["a"].Size)

	assert.Equal(t, record.Files, tree.Flatten())
}

func TestParseFileTree(t *testing.T) {
	info := "d9:file tree" +
		"d3:dird5:a.txtd0:d6:lengthi5eeee5:b.txtd0:d6:lengthi7eeee" +
		"12:meta versioni2e4:name3:tor12:piece lengthi65536ee"
	doc := "d4:info" + info + "e"

	record, err := Parse([]byte(doc), SourceTorrent)
	require.NoError(t, err)

	assert.Equal(t, []FileEntry{
		{Path: []string{"tor", "dir", "a.txt"}, Length: 5},
		{Path: []string{"tor", "b.txt"}, Length: 7},
	}, record.Files)
	assert.Equal(t, int64(12), record.TotalLength)

	// Pure v2: no v1 piece hashes, so the backend-facing identifier is the
	// truncated v2 hash.
	assert.Empty(t, record.V1Hash)
	require.Len(t, record.V2Hash, 64)
	assert.Equal(t, record.V2Hash[:40], record.InfoHash())
}

func TestParseHybrid(t *testing.T) {
	info := "d9:file treed9:movie.mkvd0:d6:lengthi9eeee6:lengthi9e12:meta versioni2e4:name9:movie.mkv12:piece lengthi65536e6:pieces20:" + strings.Repeat("p", 20) + "e"
	doc := "d4:info" + info + "e"

	record, err := Parse([]byte(doc), SourceTorrent)
	require.NoError(t, err)

	sum := sha1.Sum([]byte(info))
	assert.Equal(t, hex.EncodeToString(sum[:]), record.V1Hash)
	require.Len(t, record.V2Hash, 64)
	assert.Equal(t, record.V1Hash, record.InfoHash())

	assert.Equal(t, []FileEntry{{Path: []string{"movie.mkv"}, Length: 9}}, record.Files)
}

func TestV2HashIgnoresKeyOrderAndPieces(t *testing.T) {
	a := bencode.NewDict()
	a.Set("name", bencode.NewString("tor"))
	a.Set("meta version", bencode.NewInteger(2))
	a.Set("pieces", bencode.NewBytes([]byte(strings.Repeat("x", 20))))

	b := bencode.NewDict()
	b.Set("pieces", bencode.NewBytes([]byte(strings.Repeat("y", 20))))
	b.Set("meta version", bencode.NewInteger(2))
	b.Set("name", bencode.NewString("tor"))

	da := &Descriptor{Info: a, MetaVersion: 2}
	db := &Descriptor{Info: b, MetaVersion: 2}

	assert.Equal(t, da.V2Hash(), db.V2Hash())
}

func TestV2HashMatchesBlankedPieces(t *testing.T) {
	d := bencode.NewDict()
	d.Set("meta version", bencode.NewInteger(2))
	d.Set("name", bencode.NewString("tor"))
	d.Set("pieces", bencode.NewBytes([]byte(strings.Repeat("x", 20))))

	blanked := "d12:meta versioni2e4:name3:tor6:pieces0:e"
	sum := sha256.Sum256([]byte(blanked))

	desc := &Descriptor{Info: d, MetaVersion: 2}
	assert.Equal(t, hex.EncodeToString(sum[:]), desc.V2Hash())
}

func TestParseMissingInfo(t *testing.T) {
	_, err := Parse([]byte("d8:announce3:uree"), SourceTorrent)
	assert.ErrorIs(t, err, ErrMissingInfoDictionary)
}

func TestParseMissingFileInformation(t *testing.T) {
	_, err := Parse([]byte("d4:infod4:name3:toree"), SourceTorrent)
	assert.ErrorIs(t, err, ErrMissingFileInformation)
}

func TestParseEmptyFilePath(t *testing.T) {
	info := "d5:filesl" +
		"d6:lengthi1e4:pathlee" +
		"e4:name4:show12:piece lengthi16384e6:pieces20:" + strings.Repeat("x", 20) + "e"
	doc := "d4:info" + info + "e"

	_, err := Parse([]byte(doc), SourceTorrent)
	assert.ErrorIs(t, err, ErrMissingFileInformation)
}

func TestParseUnnamedRootLeaf(t *testing.T) {
	// A file tree whose root is itself a leaf yields a file without a path
	// segment when the torrent has no name to qualify it with.
	info := "d9:file treed0:d6:lengthi5eee12:meta versioni2ee"
	doc := "d4:info" + info + "e"

	_, err := Parse([]byte(doc), SourceTorrent)
	assert.ErrorIs(t, err, ErrMissingFileInformation)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte("d4:info"), SourceTorrent)
	assert.ErrorIs(t, err, bencode.ErrMalformedEncoding)
}

func TestParseInfoOnly(t *testing.T) {
	record, err := ParseInfo([]byte(singleFileInfo()), SourceMagnet)
	require.NoError(t, err)

	assert.Equal(t, SourceMagnet, record.Source)
	assert.Equal(t, "movie.mkv", record.Name)
	assert.Empty(t, record.Announce)
	require.Len(t, record.Files, 1)
}
