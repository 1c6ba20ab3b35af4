package metainfo

// FileEntry is one file of a torrent in canonical flat order.
type FileEntry struct {
	Path   []string `json:"path"`
	Length int64    `json:"length"`
}

// FileTreeNode is either a file (Children == nil, Length set) or a directory
// (Children != nil, Size covering all descendant files). Directories remember
// the order their children were inserted in so that flattening a tree gives
// back the flat list it was built from.
type FileTreeNode struct {
	Name     string                   `json:"name"`
	Length   int64                    `json:"length,omitempty"`
	Size     int64                    `json:"size,omitempty"`
	Children map[string]*FileTreeNode `json:"children,omitempty"`

	order []string
}

func (n *FileTreeNode) IsDir() bool {
	return n.Children != nil
}

func newDirectory(name string) *FileTreeNode {
	return &FileTreeNode{
		Name:     name,
		Children: map[string]*FileTreeNode{},
	}
}

func (n *FileTreeNode) insert(path []string, length int64) {
	if len(path) == 0 {
		return
	}

	name := path[0]

	if len(path) == 1 {
		if _, ok := n.Children[name]; !ok {
			n.order = append(n.order, name)
		}
		n.Children[name] = &FileTreeNode{Name: name, Length: length}

		return
	}

	child, ok := n.Children[name]
	if !ok {
		child = newDirectory(name)
		n.Children[name] = child
		n.order = append(n.order, name)
	}

	child.insert(path[1:], length)
}

// computeSizes recomputes directory sizes bottom-up and returns the subtree
// total. Sizes are never stored independently of the children they sum.
func (n *FileTreeNode) computeSizes() int64 {
	if !n.IsDir() {
		return n.Length
	}

	var total int64
	for _, name := range n.order {
		total += n.Children[name].computeSizes()
	}
	n.Size = total

	return total
}

// BuildFileTree assembles the hierarchical view of a flat file list. A list
// containing a single top-level file collapses to that file node.
func BuildFileTree(files []FileEntry) *FileTreeNode {
	root := newDirectory("")
	for _, file := range files {
		root.insert(file.Path, file.Length)
	}
	root.computeSizes()

	if len(root.order) == 1 {
		if child := root.Children[root.order[0]]; !child.IsDir() {
			return child
		}
	}

	return root
}

// Flatten walks the tree depth-first in insertion order, undoing
// BuildFileTree.
func (n *FileTreeNode) Flatten() []FileEntry {
	files := []FileEntry{}
	n.flatten(nil, &files)

	return files
}

func (n *FileTreeNode) flatten(prefix []string, out *[]FileEntry) {
	if !n.IsDir() {
		path := make([]string, 0, len(prefix)+1)
		path = append(path, prefix...)
		path = append(path, n.Name)

		*out = append(*out, FileEntry{Path: path, Length: n.Length})

		return
	}

	if n.Name != "" {
		prefix = append(prefix, n.Name)
	}

	for _, name := range n.order {
		n.Children[name].flatten(prefix, out)
	}
}
