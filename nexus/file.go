package nexus

import (
	"fmt"
	"strings"
)

const maxLinkDepth = 16

// File is an in-memory hierarchical container rooted at "/".
type File struct {
	root *Group
}

// NewFile creates an empty File.
func NewFile() *File {
	return &File{root: newGroup("", nil)}
}

// Root returns the root group.
func (f *File) Root() *Group {
	return f.root
}

// Lookup returns the node at an absolute path. Links met on intermediate segments are
// followed; a link at the final segment is returned as is.
func (f *File) Lookup(path string) (Node, error) {
	return f.lookup(path, 0)
}

// Resolve is like Lookup but also follows a link at the final segment.
func (f *File) Resolve(path string) (Node, error) {
	node, err := f.lookup(path, 0)
	if err != nil {
		return nil, err
	}

	for depth := 0; ; depth++ {
		ln, ok := node.(*Link)
		if !ok {
			return node, nil
		}
		if depth >= maxLinkDepth {
			return nil, fmt.Errorf("%w: %s", ErrLinkLoop, path)
		}
		if node, err = f.lookup(ln.target, depth+1); err != nil {
			return nil, fmt.Errorf("link %s -> %s: %w", ln.Path(), ln.target, err)
		}
	}
}

// Exists reports whether a path resolves to a node.
func (f *File) Exists(path string) bool {
	_, err := f.Resolve(path)
	return err == nil
}

func (f *File) lookup(path string, depth int) (Node, error) {
	if depth > maxLinkDepth {
		return nil, fmt.Errorf("%w: %s", ErrLinkLoop, path)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrNotFound, path)
	}

	var node Node = f.root
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		if seg == "" {
			continue
		}

		group, err := f.asGroup(node, depth)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		child, ok := group.Child(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		node = child
	}

	return node, nil
}

func (f *File) asGroup(node Node, depth int) (*Group, error) {
	switch n := node.(type) {
	case *Group:
		return n, nil
	case *Link:
		target, err := f.lookup(n.target, depth+1)
		if err != nil {
			return nil, err
		}
		return f.asGroup(target, depth+1)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, node.Path())
	}
}

// Walk visits every node in depth-first insertion order, starting with the root.
// Links are visited but not followed. A non-nil error from fn stops the walk.
func (f *File) Walk(fn func(Node) error) error {
	return walk(f.root, fn)
}

func walk(n Node, fn func(Node) error) error {
	if err := fn(n); err != nil {
		return err
	}

	g, ok := n.(*Group)
	if !ok {
		return nil
	}
	for _, child := range g.Children() {
		if err := walk(child, fn); err != nil {
			return err
		}
	}

	return nil
}

// DanglingLinks returns the paths of links whose target does not resolve.
func (f *File) DanglingLinks() []string {
	var out []string
	_ = f.Walk(func(n Node) error {
		if ln, ok := n.(*Link); ok {
			if _, err := f.Resolve(ln.Path()); err != nil {
				out = append(out, ln.Path())
			}
		}
		return nil
	})

	return out
}
