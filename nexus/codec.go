package nexus

import (
	"fmt"
	"io"
	"strings"
)

// Format names a container encoding.
type Format string

const (
	// MsgpackFormat is the binary container written for archival.
	MsgpackFormat Format = "msgpack"
	// TreeFormat is a human readable rendering of the hierarchy.
	TreeFormat Format = "tree"
)

// Encoder serializes a File onto a stream.
type Encoder interface {
	Encode(w io.Writer, f *File) error
	// Format returns the format written by the encoder.
	Format() Format
	// Extension returns the default file extension, without a dot.
	Extension() string
}

// EncoderFor returns the encoder for a format name.
func EncoderFor(format Format) (Encoder, error) {
	switch Format(strings.ToLower(string(format))) {
	case MsgpackFormat, "":
		return &MsgpackCodec{}, nil
	case TreeFormat:
		return &TreeEncoder{MaxValues: DefaultTreeMaxValues}, nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrBadFormat, format)
	}
}
