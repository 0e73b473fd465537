package nexus

import (
	"bufio"
	"io"
	"strings"
)

// DefaultTreeMaxValues is the number of array elements shown per dataset by TreeEncoder.
const DefaultTreeMaxValues = 8

// TreeEncoder renders a File as an indented tree, one node per line:
//
//	/
//	  @default = <A "entry">
//	  entry:NXentry
//	    duration <F8 12.5>
//	    data:NXdata
//	      det1 --> /entry/instrument/bluesky_streams/primary/det1/value
type TreeEncoder struct {
	// MaxValues limits the array elements printed per dataset; 0 prints all of them.
	MaxValues int
}

var _ Encoder = (*TreeEncoder)(nil)

func (e *TreeEncoder) Format() Format    { return TreeFormat }
func (e *TreeEncoder) Extension() string { return "txt" }

// Encode writes the tree rendering of f to w.
func (e *TreeEncoder) Encode(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	e.writeNode(bw, f.Root(), 0)

	return bw.Flush()
}

func (e *TreeEncoder) writeNode(w *bufio.Writer, n Node, depth int) {
	indent := strings.Repeat("  ", depth)

	_, _ = w.WriteString(indent)
	switch node := n.(type) {
	case *Group:
		if node.Parent() == nil {
			_, _ = w.WriteString("/")
		} else {
			_, _ = w.WriteString(node.Name())
			if class := node.Class(); class != "" {
				_, _ = w.WriteString(":" + class)
			}
		}
	case *Dataset:
		_, _ = w.WriteString(node.Name() + " " + node.Data().sml(e.MaxValues))
	case *Link:
		_, _ = w.WriteString(node.Name() + " --> " + node.Target())
	}
	_ = w.WriteByte('\n')

	attrs := n.Attrs()
	for _, name := range attrs.Names() {
		if name == ClassAttr {
			if _, ok := n.(*Group); ok {
				continue
			}
		}
		d, _ := attrs.Get(name)
		_, _ = w.WriteString(indent + "  @" + name + " = " + d.sml(e.MaxValues) + "\n")
	}

	if g, ok := n.(*Group); ok {
		for _, child := range g.Children() {
			e.writeNode(w, child, depth+1)
		}
	}
}
