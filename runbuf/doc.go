// Package runbuf buffers one acquisition run between its start and stop documents.
//
// A Run owns the run identity and metadata, plus a Streams accumulator that groups the
// per-signal Entry time series under their stream and descriptor. The buffer is a small
// state machine:
//
//	Idle --Adopt(start)--> Scanning --Finish(stop)/Reset--> Idle
//
// Only Adopt is accepted while Idle; the recorder drops every other document.
//
// The buffer is not safe for concurrent use. Documents are applied one at a time by the
// recorder that owns it.
package runbuf
