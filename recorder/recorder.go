// Package recorder routes lifecycle documents into a run buffer and exports every
// accepted run when its stop document arrives.
//
// A Recorder is driven by a single dispatcher: Receive must not be called concurrently.
// Its History may be read from other goroutines.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/exporter"
	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/runbuf"
)

// Recorder owns one run buffer and exports it on stop.
type Recorder struct {
	cfg    *Config
	run    *runbuf.Run
	logger logger.Logger
}

// New creates a Recorder.
func New(opts ...Option) (*Recorder, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		cfg:    cfg,
		run:    runbuf.New(),
		logger: cfg.logger,
	}, nil
}

// Run returns the run buffer. It stays readable after a stop until the next start.
func (r *Recorder) Run() *runbuf.Run {
	return r.run
}

// History returns the export history.
func (r *Recorder) History() *History {
	return r.cfg.history
}

// Exporter returns the exporter used on stop.
func (r *Recorder) Exporter() *exporter.Exporter {
	return r.cfg.exporter
}

// Receive applies one document.
//
// start always resets the buffer; the run is adopted only if the plan filter accepts it.
// Other documents are ignored while no run is active. stop exports the run synchronously
// and returns the export error, if any; the buffer is idle afterwards in every case.
func (r *Recorder) Receive(doc document.Document) error {
	if doc != nil {
		r.cfg.observer.DocumentReceived(doc.Kind())
	}

	switch d := doc.(type) {
	case *document.Start:
		return r.start(d)
	case *document.Descriptor:
		return r.descriptor(d)
	case *document.Event:
		return r.event(d)
	case *document.Resource:
		return r.resource(d)
	case *document.Datum:
		return r.datum(d)
	case *document.Stop:
		return r.stop(d)
	default:
		r.logger.Error("unknown document", "type", fmt.Sprintf("%T", doc))
		return fmt.Errorf("%w: %T", ErrUnknownDocument, doc)
	}
}

// ReceiveMap converts a (name, payload) pair and applies it. An unknown name returns
// ErrUnknownDocument without changing state.
func (r *Recorder) ReceiveMap(name string, payload map[string]any) error {
	doc, err := document.FromName(name, payload)
	if err != nil {
		r.logger.Error("unknown document", "name", name, "error", err)
		return fmt.Errorf("%w: %w", ErrUnknownDocument, err)
	}

	return r.Receive(doc)
}

// Replay applies every document of rd until io.EOF, a read error, or the end of ctx.
// Unknown documents are skipped; export errors are collected and returned together
// with the number of documents applied.
func (r *Recorder) Replay(ctx context.Context, rd document.Reader) (int, error) {
	var (
		n    int
		errs []error
	)
	for {
		if err := ctx.Err(); err != nil {
			return n, errors.Join(append(errs, err)...)
		}

		doc, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return n, errors.Join(errs...)
		}
		if err != nil {
			return n, errors.Join(append(errs, err)...)
		}

		if err := r.Receive(doc); err != nil && !errors.Is(err, ErrUnknownDocument) {
			errs = append(errs, err)
		}
		n++
	}
}

func (r *Recorder) start(d *document.Start) error {
	if r.run.IsScanning() {
		r.logger.Warn("run replaced before its stop document", "uid", r.run.UID, "new_uid", d.UID)
	}

	ok, err := r.cfg.filter.Allow(d)
	if err != nil {
		r.logger.Error("plan filter failed", "uid", d.UID, "plan_name", d.PlanName, "error", err)
	}
	if !ok {
		r.run.Reset()
		r.cfg.observer.RunSkipped(d.PlanName)
		r.logger.Info("run not recorded", "uid", d.UID, "plan_name", d.PlanName)

		return nil
	}

	r.run.Adopt(d)
	r.logger.Info("run started", "uid", d.UID, "scan_id", d.ScanID, "plan_name", d.PlanName)

	return nil
}

func (r *Recorder) descriptor(d *document.Descriptor) error {
	if !r.run.IsScanning() {
		r.drop(d)
		return nil
	}

	desc, err := r.run.AddDescriptor(d)
	if err != nil {
		return err
	}
	if ids := r.run.Streams.DescriptorIDs(desc.Stream); len(ids) > 1 {
		r.logger.Warn("stream has more than one descriptor; export will fail",
			"stream", desc.Stream, "descriptors", ids)
	}
	r.logger.Debug("descriptor registered", "uid", d.UID, "stream", desc.Stream, "keys", len(desc.Keys()))

	return nil
}

func (r *Recorder) event(d *document.Event) error {
	if !r.run.IsScanning() {
		r.drop(d)
		return nil
	}

	dropped, err := r.run.AddEvent(d)
	if errors.Is(err, runbuf.ErrUnknownDescriptor) {
		r.logger.Warn("event for unknown descriptor skipped", "descriptor", d.Descriptor, "seq_num", d.SeqNum)
		r.cfg.observer.EventKeysDropped(len(d.Data))

		return nil
	}
	if err != nil {
		return err
	}
	if len(dropped) > 0 {
		r.logger.Warn("event keys not in descriptor skipped", "descriptor", d.Descriptor, "keys", dropped)
		r.cfg.observer.EventKeysDropped(len(dropped))
	}

	return nil
}

func (r *Recorder) resource(d *document.Resource) error {
	if !r.run.IsScanning() {
		r.drop(d)
		return nil
	}

	return r.run.AddResource(d)
}

func (r *Recorder) datum(d *document.Datum) error {
	if !r.run.IsScanning() {
		r.drop(d)
		return nil
	}

	return r.run.AddDatum(d)
}

func (r *Recorder) stop(d *document.Stop) error {
	if !r.run.IsScanning() {
		r.drop(d)
		return nil
	}
	if d.RunStart != "" && d.RunStart != r.run.UID {
		r.logger.Warn("stop document for another run ignored", "uid", r.run.UID, "run_start", d.RunStart)
		r.cfg.observer.DocumentDropped(d.Kind())

		return nil
	}
	defer r.run.Close()

	if err := r.run.Finish(d); err != nil {
		return err
	}

	rec := Record{
		UID:        r.run.UID,
		ScanID:     r.run.ScanID,
		PlanName:   r.run.PlanName,
		ExitStatus: r.run.ExitStatus,
		StoppedAt:  r.cfg.now(),
	}

	res, err := r.cfg.exporter.Export(r.run)
	if res != nil {
		rec.Path = res.Path
		rec.Warnings = len(res.Diagnostics)
		rec.Duration = res.Duration
	}
	if err != nil {
		rec.Error = err.Error()
		r.cfg.history.Add(rec)
		r.cfg.observer.ExportFailed(rec.PlanName)
		r.logger.Error("export failed", "uid", rec.UID, "scan_id", rec.ScanID, "error", err)

		return fmt.Errorf("export run %s: %w", rec.UID, err)
	}

	r.cfg.history.Add(rec)
	r.cfg.observer.RunExported(rec.PlanName, rec.Duration)

	return nil
}

func (r *Recorder) drop(doc document.Document) {
	r.logger.Debug("document ignored while idle", "kind", doc.Kind().String())
	r.cfg.observer.DocumentDropped(doc.Kind())
}
