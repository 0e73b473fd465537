// Package document defines the acquisition lifecycle documents consumed by the recorder.
//
// A run is described by an ordered sequence of documents:
//
//	start -> descriptor* -> (event | resource | datum)* -> stop
//
// Each document kind is a distinct Go type implementing Document, so consumers dispatch
// with an exhaustive type switch instead of a name lookup. Documents can be built directly,
// converted from the generic (name, map) pairs emitted by a run engine with FromMap, or read
// from JSON and msgpack encoded streams with NewJSONReader and NewMsgpackReader.
//
// Usage Example:
//
//	rd := document.NewJSONReader(os.Stdin)
//	for {
//	    doc, err := rd.Next()
//	    if errors.Is(err, io.EOF) {
//	        break
//	    }
//	    // ... hand doc to a recorder
//	}
package document
