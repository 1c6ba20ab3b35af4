package metainfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFileTreeFlattenInverse(t *testing.T) {
	for _, tt := range []struct {
		name  string
		files []FileEntry
	}{
		{
			"single file",
			[]FileEntry{{Path: []string{"movie.mkv"}, Length: 104857600}},
		},
		{
			"flat directory",
			[]FileEntry{
				{Path: []string{"show", "e1.mkv"}, Length: 1},
				{Path: []string{"show", "e2.mkv"}, Length: 2},
			},
		},
		{
			"nested directories",
			[]FileEntry{
				{Path: []string{"show", "s1", "e1.mkv"}, Length: 1},
				{Path: []string{"show", "s1", "e2.mkv"}, Length: 2},
				{Path: []string{"show", "s2", "e1.mkv"}, Length: 3},
				{Path: []string{"show", "notes.txt"}, Length: 4},
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.files, BuildFileTree(tt.files).Flatten())
		})
	}
}

func TestBuildFileTreeCollapsesSingleFile(t *testing.T) {
	tree := BuildFileTree([]FileEntry{{Path: []string{"movie.mkv"}, Length: 7}})

	assert.False(t, tree.IsDir())
	assert.Equal(t, "movie.mkv", tree.Name)
	assert.Equal(t, int64(7), tree.Length)
}

func TestBuildFileTreeIgnoresEmptyPaths(t *testing.T) {
	tree := BuildFileTree([]FileEntry{
		{Path: nil, Length: 1},
		{Path: []string{"movie.mkv"}, Length: 7},
	})

	assert.False(t, tree.IsDir())
	assert.Equal(t, "movie.mkv", tree.Name)
}

func TestDirectorySizes(t *testing.T) {
	tree := BuildFileTree([]FileEntry{
		{Path: []string{"show", "s1", "e1.mkv"}, Length: 10},
		{Path: []string{"show", "s1", "e2.mkv"}, Length: 20},
		{Path: []string{"show", "s2", "e1.mkv"}, Length: 30},
	})

	require.True(t, tree.IsDir())
	assert.Equal(t, int64(60), tree.Size)

	show := tree.Children["show"]
	require.NotNil(t, show)
	assert.Equal(t, int64(60), show.Size)
	assert.Equal(t, int64(30), show.Children["s1"].Size)
	assert.Equal(t, int64(30), show.Children["s2"].Size)

	e1 := show.Children["s1"].Children["e1.mkv"]
	require.NotNil(t, e1)
	assert.False(t, e1.IsDir())
	assert.Equal(t, int64(10), e1.Length)
}

func TestFlattenPreservesInsertionOrder(t *testing.T) {
	files := []FileEntry{
		{Path: []string{"t", "z.txt"}, Length: 1},
		{Path: []string{"t", "a", "b.txt"}, Length: 2},
		{Path: []string{"t", "a", "a.txt"}, Length: 3},
		{Path: []string{"t", "m.txt"}, Length: 4},
	}

	assert.Equal(t, files, BuildFileTree(files).Flatten())
}
