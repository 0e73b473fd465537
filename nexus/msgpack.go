package nexus

import (
	"bufio"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/go-nxrec/internal/util"
)

const (
	containerFormat  = "nexus-msgpack"
	containerVersion = 1
)

// MsgpackCodec stores a File as a single msgpack document that mirrors the hierarchy:
// every node keeps its name, kind, ordered attributes, and either children, data or a link target.
type MsgpackCodec struct{}

var _ Encoder = (*MsgpackCodec)(nil)

type wireFile struct {
	Format  string   `msgpack:"format"`
	Version int      `msgpack:"version"`
	Root    wireNode `msgpack:"root"`
}

type wireNode struct {
	Name     string     `msgpack:"name"`
	Kind     uint8      `msgpack:"kind"`
	Attrs    []wireAttr `msgpack:"attrs,omitempty"`
	Children []wireNode `msgpack:"children,omitempty"`
	Data     *wireData  `msgpack:"data,omitempty"`
	Target   string     `msgpack:"target,omitempty"`
}

type wireAttr struct {
	Name string   `msgpack:"name"`
	Data wireData `msgpack:"data"`
}

type wireData struct {
	DType   string    `msgpack:"dtype"`
	Shape   []int     `msgpack:"shape"`
	Floats  []float64 `msgpack:"f8,omitempty"`
	Ints    []int64   `msgpack:"i8,omitempty"`
	Bools   []bool    `msgpack:"bool,omitempty"`
	Strings []string  `msgpack:"a,omitempty"`
}

func (c *MsgpackCodec) Format() Format    { return MsgpackFormat }
func (c *MsgpackCodec) Extension() string { return "nxs" }

// Encode writes f to w.
func (c *MsgpackCodec) Encode(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	enc := msgpack.NewEncoder(bw)

	wf := wireFile{
		Format:  containerFormat,
		Version: containerVersion,
		Root:    toWire(f.Root()),
	}
	if err := enc.Encode(&wf); err != nil {
		return fmt.Errorf("encode container: %w", err)
	}

	return bw.Flush()
}

// Decode reads a File written by Encode.
func (c *MsgpackCodec) Decode(r io.Reader) (*File, error) {
	var wf wireFile
	if err := msgpack.NewDecoder(bufio.NewReader(r)).Decode(&wf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadFormat, err)
	}
	if wf.Format != containerFormat {
		return nil, fmt.Errorf("%w: format %q", ErrBadFormat, wf.Format)
	}
	if wf.Version > containerVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, wf.Version)
	}

	f := NewFile()
	if err := fromWireAttrs(&f.root.attrs, wf.Root.Attrs); err != nil {
		return nil, err
	}
	if err := fromWireChildren(f.root, wf.Root.Children); err != nil {
		return nil, err
	}

	return f, nil
}

func toWire(n Node) wireNode {
	wn := wireNode{Name: n.Name(), Kind: uint8(n.Kind())}

	attrs := n.Attrs()
	for _, name := range attrs.Names() {
		d, _ := attrs.Get(name)
		wn.Attrs = append(wn.Attrs, wireAttr{Name: name, Data: dataToWire(d)})
	}

	switch node := n.(type) {
	case *Group:
		for _, child := range node.Children() {
			wn.Children = append(wn.Children, toWire(child))
		}
	case *Dataset:
		wd := dataToWire(node.Data())
		wn.Data = &wd
	case *Link:
		wn.Target = node.Target()
	}

	return wn
}

func dataToWire(d Data) wireData {
	return wireData{
		DType:   string(d.dtype),
		Shape:   d.shape,
		Floats:  d.floats,
		Ints:    d.ints,
		Bools:   d.bools,
		Strings: d.strs,
	}
}

func dataFromWire(wd wireData) (Data, error) {
	d := Data{
		dtype:  DType(wd.DType),
		shape:  wd.Shape,
		floats: wd.Floats,
		ints:   wd.Ints,
		bools:  wd.Bools,
		strs:   wd.Strings,
	}
	switch d.dtype {
	case Float64Type, Int64Type, BoolType, StringType:
	default:
		return Data{}, fmt.Errorf("%w: dtype %q", ErrBadFormat, wd.DType)
	}
	if d.Len() != util.Product(d.shape) {
		return Data{}, fmt.Errorf("%w: %d elements for shape %v", ErrBadFormat, d.Len(), d.shape)
	}

	return d, nil
}

func fromWireAttrs(attrs *Attrs, wire []wireAttr) error {
	for _, wa := range wire {
		d, err := dataFromWire(wa.Data)
		if err != nil {
			return fmt.Errorf("attribute %q: %w", wa.Name, err)
		}
		if err := attrs.Set(wa.Name, d); err != nil {
			return err
		}
	}

	return nil
}

func fromWireChildren(parent *Group, children []wireNode) error {
	for _, wn := range children {
		var node Node
		switch Kind(wn.Kind) {
		case GroupKind:
			g, err := parent.CreateGroup(wn.Name, "")
			if err != nil {
				return err
			}
			if err := fromWireChildren(g, wn.Children); err != nil {
				return err
			}
			node = g
		case DatasetKind:
			if wn.Data == nil {
				return fmt.Errorf("%w: dataset %q without data", ErrBadFormat, wn.Name)
			}
			d, err := dataFromWire(*wn.Data)
			if err != nil {
				return fmt.Errorf("dataset %q: %w", wn.Name, err)
			}
			ds, err := parent.CreateDataset(wn.Name, d)
			if err != nil {
				return err
			}
			node = ds
		case LinkKind:
			ln, err := parent.CreateLink(wn.Name, wn.Target)
			if err != nil {
				return err
			}
			node = ln
		default:
			return fmt.Errorf("%w: node %q has kind %d", ErrBadFormat, wn.Name, wn.Kind)
		}

		if err := fromWireAttrs(node.Attrs(), wn.Attrs); err != nil {
			return err
		}
	}

	return nil
}
