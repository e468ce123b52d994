// Package metadata stores experiment metadata as a tree of named nodes.
//
// Every node is either a branch, holding named children, or a leaf, holding a
// Value. Paths are given as a sequence of segments rather than a dotted string,
// so segment names may contain any character.
//
//	md := metadata.New()
//	md.Set(metadata.NewValueWithUnits(2000.0, "mm"), "detector", "distance")
//	e := md.Lookup("detector", "distance")
//	if e.Kind == metadata.Leaf {
//	    fmt.Println(e.Value.Data, e.Value.Units)
//	}
//
// A Tree is not safe for concurrent mutation.
package metadata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrLeafAsBranch is returned when a path tries to descend through a leaf.
	ErrLeafAsBranch = errors.New("path uses a leaf node as a branch")

	// ErrEmptyPath is returned for a path with no segments or an empty segment.
	ErrEmptyPath = errors.New("empty metadata path")

	// ErrNotFound is returned when deleting a path that does not exist.
	ErrNotFound = errors.New("metadata path not found")
)

// CoreKeys documents the standard detector metadata keys.
var CoreKeys = map[string]string{
	"pixel_size":                  "2 element array defining the (x y) dimensions of the pixel",
	"voxel_size":                  "3 element array defining the (x y z) dimensions of the voxel",
	"detector_center":             "2 element array defining the (x y) center of the detector in pixels",
	"sample_to_detector_distance": "distance from the sample to the detector (mm)",
	"wavelength":                  "wavelength of incident radiation (Angstroms)",
}

// Value is a leaf payload: the data and, optionally, its units.
type Value struct {
	Data     interface{}
	Units    string
	HasUnits bool
}

// NewValue returns a value without units.
func NewValue(v interface{}) Value { return Value{Data: v} }

// NewValueWithUnits returns a value carrying a unit string.
func NewValueWithUnits(v interface{}, units string) Value {
	return Value{Data: v, Units: units, HasUnits: true}
}

func (v Value) String() string {
	if v.HasUnits {
		return fmt.Sprintf("%v %s", v.Data, v.Units)
	}
	return fmt.Sprintf("%v", v.Data)
}

// Kind tags what a path resolves to.
type Kind int

const (
	Absent Kind = iota
	Leaf
	Branch
)

func (k Kind) String() string {
	switch k {
	case Leaf:
		return "leaf"
	case Branch:
		return "branch"
	default:
		return "absent"
	}
}

type node struct {
	leaf     *Value
	children map[string]*node
}

func newBranch() *node { return &node{children: map[string]*node{}} }

func (n *node) isLeaf() bool { return n.leaf != nil }

// Entry is the result of a lookup. Value is set for leaves, Tree for branches.
type Entry struct {
	Kind  Kind
	Value Value
	Tree  *Tree
}

// Tree is a metadata tree rooted at a branch node.
type Tree struct {
	root *node
}

// New returns an empty tree.
func New() *Tree { return &Tree{root: newBranch()} }

func checkPath(path []string) error {
	if len(path) == 0 {
		return ErrEmptyPath
	}
	for _, p := range path {
		if p == "" {
			return fmt.Errorf("%w: %q", ErrEmptyPath, strings.Join(path, "."))
		}
	}
	return nil
}

// walk follows path from the root without creating nodes. It returns nil if any
// segment is missing, and ErrLeafAsBranch if an intermediate segment is a leaf.
func (t *Tree) walk(path []string) (*node, error) {
	n := t.root
	for i, seg := range path {
		if n.isLeaf() {
			return nil, fmt.Errorf("%w: %q", ErrLeafAsBranch, strings.Join(path[:i], "."))
		}
		child, ok := n.children[seg]
		if !ok {
			return nil, nil
		}
		n = child
	}
	return n, nil
}

// Lookup resolves a path. A path that branches through a leaf resolves to Absent.
func (t *Tree) Lookup(path ...string) Entry {
	if checkPath(path) != nil {
		return Entry{Kind: Absent}
	}
	n, err := t.walk(path)
	if err != nil || n == nil {
		return Entry{Kind: Absent}
	}
	if n.isLeaf() {
		return Entry{Kind: Leaf, Value: *n.leaf}
	}
	return Entry{Kind: Branch, Tree: &Tree{root: n}}
}

// Get returns the leaf value at path, and whether one exists.
func (t *Tree) Get(path ...string) (Value, bool) {
	e := t.Lookup(path...)
	if e.Kind != Leaf {
		return Value{}, false
	}
	return e.Value, true
}

// Set stores v at path, creating intermediate branches. An existing leaf or
// branch at the final segment is replaced.
func (t *Tree) Set(v Value, path ...string) error {
	if err := checkPath(path); err != nil {
		return err
	}

	n := t.root
	for i, seg := range path[:len(path)-1] {
		child, ok := n.children[seg]
		switch {
		case !ok:
			child = newBranch()
			n.children[seg] = child
		case child.isLeaf():
			return fmt.Errorf("%w: %q", ErrLeafAsBranch, strings.Join(path[:i+1], "."))
		}
		n = child
	}

	leaf := v
	n.children[path[len(path)-1]] = &node{leaf: &leaf}
	return nil
}

// Delete removes the node at path, then prunes any branches left empty.
func (t *Tree) Delete(path ...string) error {
	if err := checkPath(path); err != nil {
		return err
	}

	trail := []*node{t.root}
	n := t.root
	for i, seg := range path {
		if n.isLeaf() {
			return fmt.Errorf("%w: %q", ErrLeafAsBranch, strings.Join(path[:i], "."))
		}
		child, ok := n.children[seg]
		if !ok {
			return fmt.Errorf("%w: %q", ErrNotFound, strings.Join(path, "."))
		}
		trail = append(trail, child)
		n = child
	}

	delete(trail[len(trail)-2].children, path[len(path)-1])
	for i := len(path) - 1; i > 0; i-- {
		if len(trail[i].children) > 0 {
			break
		}
		delete(trail[i-1].children, path[i-1])
	}
	return nil
}

// Keys returns the path of every leaf, sorted lexically by joined path.
func (t *Tree) Keys() [][]string {
	var keys [][]string
	var visit func(n *node, prefix []string)
	visit = func(n *node, prefix []string) {
		for name, child := range n.children {
			p := append(append([]string(nil), prefix...), name)
			if child.isLeaf() {
				keys = append(keys, p)
				continue
			}
			visit(child, p)
		}
	}
	visit(t.root, nil)

	sort.Slice(keys, func(i, j int) bool {
		return strings.Join(keys[i], "\x00") < strings.Join(keys[j], "\x00")
	})
	return keys
}

// Len returns the number of leaves.
func (t *Tree) Len() int { return len(t.Keys()) }
