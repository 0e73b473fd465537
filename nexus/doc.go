// Package nexus provides an in-memory NeXus-style hierarchy and the codecs that store it.
//
// A File is a tree of Groups, Datasets and Links rooted at "/". Every node carries an
// ordered set of attributes. Groups usually carry an NX_class attribute naming their
// NeXus base class. Links refer to other nodes by absolute path so that data written once
// can appear at several places of the hierarchy without being duplicated.
//
// Dataset and attribute values are Data: a typed scalar or row-major array of F8, I8,
// BOOLEAN or A (string) elements. NewData converts decoded Go values and reports
// ErrUnsupportedType, ErrMixedTypes or ErrRaggedArray for values the container cannot hold.
//
// Codecs:
//   - MsgpackCodec stores the whole tree as one msgpack document (extension "nxs").
//   - TreeEncoder renders an indented text view using SML-style value notation.
//
// Usage Example:
//
//	f := nexus.NewFile()
//	entry, _ := f.Root().CreateGroup("entry", "NXentry")
//	entry.CreateDataset("title", nexus.MustData("scan 12"))
//
//	w, err := nexus.Create("/data/scan12.nxs", &nexus.MsgpackCodec{})
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	return w.Write(f)
package nexus
