package document

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Reader yields documents from an encoded stream. Next returns io.EOF after the last document.
type Reader interface {
	Next() (Document, error)
}

// Writer encodes documents onto a stream.
type Writer interface {
	Write(doc Document) error
}

// JSONReader reads whitespace separated JSON arrays of the form ["name", {...}].
type JSONReader struct {
	dec *json.Decoder
}

// NewJSONReader creates a JSONReader. Integers in the input keep their integer type.
func NewJSONReader(r io.Reader) *JSONReader {
	dec := json.NewDecoder(bufio.NewReader(r))
	dec.UseNumber()

	return &JSONReader{dec: dec}
}

func (r *JSONReader) Next() (Document, error) {
	var pair []any
	if err := r.dec.Decode(&pair); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return fromPair(pair)
}

// MsgpackReader reads consecutive msgpack encoded [name, {...}] arrays.
type MsgpackReader struct {
	dec *msgpack.Decoder
}

func NewMsgpackReader(r io.Reader) *MsgpackReader {
	dec := msgpack.NewDecoder(bufio.NewReader(r))
	dec.UseLooseInterfaceDecoding(true)

	return &MsgpackReader{dec: dec}
}

func (r *MsgpackReader) Next() (Document, error) {
	var pair []any
	if err := r.dec.Decode(&pair); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return fromPair(pair)
}

func fromPair(pair []any) (Document, error) {
	if len(pair) != 2 {
		return nil, fmt.Errorf("%w: expected [name, document], got %d elements", ErrMalformed, len(pair))
	}

	name, ok := pair[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: document name is %T", ErrMalformed, pair[0])
	}

	payload, ok := Normalize(pair[1]).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s payload is %T", ErrMalformed, name, pair[1])
	}

	return FromName(name, payload)
}

// JSONWriter writes one ["name", {...}] array per line.
type JSONWriter struct {
	enc *json.Encoder
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

func (w *JSONWriter) Write(doc Document) error {
	return w.enc.Encode([]any{doc.Kind().String(), ToMap(doc)})
}

// MsgpackWriter writes consecutive msgpack [name, {...}] arrays.
type MsgpackWriter struct {
	enc *msgpack.Encoder
}

func NewMsgpackWriter(w io.Writer) *MsgpackWriter {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)

	return &MsgpackWriter{enc: enc}
}

func (w *MsgpackWriter) Write(doc Document) error {
	return w.enc.Encode([]any{doc.Kind().String(), ToMap(doc)})
}
