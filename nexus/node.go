package nexus

import (
	"fmt"
	"strings"
)

// ClassAttr is the attribute holding the NeXus base class of a group.
const ClassAttr = "NX_class"

// Kind identifies the type of a Node.
type Kind uint8

const (
	GroupKind Kind = iota
	DatasetKind
	LinkKind
)

func (k Kind) String() string {
	switch k {
	case GroupKind:
		return "group"
	case DatasetKind:
		return "dataset"
	case LinkKind:
		return "link"
	default:
		return "unknown"
	}
}

// Node is a group, dataset or link in a File.
type Node interface {
	Name() string
	Path() string
	Kind() Kind
	Attrs() *Attrs
	Parent() *Group
}

// Attrs is an ordered set of named attributes.
type Attrs struct {
	names  []string
	values map[string]Data
}

// Set stores an attribute, converting v with NewData. Setting an existing name replaces its value.
func (a *Attrs) Set(name string, v any) error {
	if name == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidName)
	}

	d, err := NewData(v)
	if err != nil {
		return fmt.Errorf("attribute %q: %w", name, err)
	}

	if a.values == nil {
		a.values = map[string]Data{}
	}
	if _, ok := a.values[name]; !ok {
		a.names = append(a.names, name)
	}
	a.values[name] = d

	return nil
}

// Get returns the attribute value.
func (a *Attrs) Get(name string) (Data, bool) {
	d, ok := a.values[name]
	return d, ok
}

// String returns the attribute as text.
func (a *Attrs) String(name string) (string, bool) {
	d, ok := a.values[name]
	if !ok {
		return "", false
	}

	return d.Text(), true
}

// Names returns the attribute names in insertion order.
func (a *Attrs) Names() []string {
	return append([]string{}, a.names...)
}

// Len returns the number of attributes.
func (a *Attrs) Len() int {
	return len(a.names)
}

type baseNode struct {
	name   string
	parent *Group
	attrs  Attrs
}

func (n *baseNode) Name() string   { return n.name }
func (n *baseNode) Parent() *Group { return n.parent }
func (n *baseNode) Attrs() *Attrs  { return &n.attrs }

func (n *baseNode) Path() string {
	if n.parent == nil {
		return "/"
	}

	return joinPath(n.parent.Path(), n.name)
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}

	return parent + "/" + name
}

// Group is a node containing named children.
type Group struct {
	baseNode
	children map[string]Node
	order    []string
}

// Dataset is a node holding typed data.
type Dataset struct {
	baseNode
	data Data
}

// Link is a node that refers to another node by absolute path.
type Link struct {
	baseNode
	target string
}

var (
	_ Node = (*Group)(nil)
	_ Node = (*Dataset)(nil)
	_ Node = (*Link)(nil)
)

func newGroup(name string, parent *Group) *Group {
	return &Group{
		baseNode: baseNode{name: name, parent: parent},
		children: map[string]Node{},
	}
}

func (g *Group) Kind() Kind { return GroupKind }

// Class returns the NX_class attribute, or an empty string.
func (g *Group) Class() string {
	s, _ := g.attrs.String(ClassAttr)
	return s
}

// CreateGroup adds a child group. A non-empty nxClass is stored as the NX_class attribute.
func (g *Group) CreateGroup(name, nxClass string) (*Group, error) {
	if err := g.checkName(name); err != nil {
		return nil, err
	}

	child := newGroup(name, g)
	if nxClass != "" {
		_ = child.attrs.Set(ClassAttr, nxClass)
	}
	g.add(name, child)

	return child, nil
}

// CreateDataset adds a child dataset.
func (g *Group) CreateDataset(name string, data Data) (*Dataset, error) {
	if err := g.checkName(name); err != nil {
		return nil, err
	}

	ds := &Dataset{baseNode: baseNode{name: name, parent: g}, data: data}
	g.add(name, ds)

	return ds, nil
}

// CreateLink adds a child link to the absolute path target.
func (g *Group) CreateLink(name, target string) (*Link, error) {
	if err := g.checkName(name); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(target, "/") {
		return nil, fmt.Errorf("%w: link target %q is not absolute", ErrInvalidName, target)
	}

	ln := &Link{baseNode: baseNode{name: name, parent: g}, target: target}
	g.add(name, ln)

	return ln, nil
}

// Child returns the direct child with the given name.
func (g *Group) Child(name string) (Node, bool) {
	n, ok := g.children[name]
	return n, ok
}

// Group returns the direct child group with the given name.
func (g *Group) Group(name string) (*Group, bool) {
	n, ok := g.children[name].(*Group)
	return n, ok
}

// Dataset returns the direct child dataset with the given name.
func (g *Group) Dataset(name string) (*Dataset, bool) {
	n, ok := g.children[name].(*Dataset)
	return n, ok
}

// Children returns the children in insertion order.
func (g *Group) Children() []Node {
	out := make([]Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.children[name])
	}

	return out
}

// Len returns the number of children.
func (g *Group) Len() int {
	return len(g.order)
}

func (g *Group) checkName(name string) error {
	if name == "" || strings.Contains(name, "/") || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if _, ok := g.children[name]; ok {
		return fmt.Errorf("%w: %s", ErrNodeExists, joinPath(g.Path(), name))
	}

	return nil
}

func (g *Group) add(name string, n Node) {
	g.children[name] = n
	g.order = append(g.order, name)
}

func (d *Dataset) Kind() Kind { return DatasetKind }

// Data returns the dataset content.
func (d *Dataset) Data() Data { return d.data }

func (l *Link) Kind() Kind { return LinkKind }

// Target returns the absolute path the link refers to.
func (l *Link) Target() string { return l.target }
