package nexus

import (
	"fmt"
	"os"
)

// Writer is an open output container. It must be closed on every path once created.
type Writer struct {
	path    string
	file    *os.File
	enc     Encoder
	written bool
}

// Create creates or truncates the file at path for writing with enc.
func Create(path string, enc Encoder) (*Writer, error) {
	if enc == nil {
		enc = &MsgpackCodec{}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create container: %w", err)
	}

	return &Writer{path: path, file: f, enc: enc}, nil
}

// Path returns the path of the container file.
func (w *Writer) Path() string {
	return w.path
}

// Write encodes f into the container. A container holds a single File.
func (w *Writer) Write(f *File) error {
	if w.file == nil {
		return ErrWriterClosed
	}
	if w.written {
		return fmt.Errorf("container %s already written", w.path)
	}
	w.written = true

	return w.enc.Encode(w.file, f)
}

// Close syncs and releases the file handle. It is safe to call Close more than once.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}

	f := w.file
	w.file = nil
	syncErr := f.Sync()
	if err := f.Close(); err != nil {
		return err
	}

	return syncErr
}

// Open reads a msgpack container from disk.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return (&MsgpackCodec{}).Decode(fh)
}
