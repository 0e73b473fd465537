// Command nxrec records document streams into NeXus-structured files.
//
//	nxrec record   -config nxrec.yaml -input run.jsonl
//	nxrec inspect  file.nxs
//	nxrec simulate -out /tmp -points 10
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-nxrec/beamline/saxs"
	"github.com/arloliu/go-nxrec/config"
	"github.com/arloliu/go-nxrec/docsim"
	"github.com/arloliu/go-nxrec/document"
	"github.com/arloliu/go-nxrec/exporter"
	"github.com/arloliu/go-nxrec/logger"
	"github.com/arloliu/go-nxrec/metrics"
	"github.com/arloliu/go-nxrec/nexus"
	"github.com/arloliu/go-nxrec/recorder"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(2)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "record":
		err = recordCommand(os.Args[2:])
	case "inspect":
		err = inspectCommand(os.Args[2:], os.Stdout)
	case "simulate":
		err = simulateCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage(os.Stdout)
		return
	default:
		printUsage(os.Stderr)
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		logger.Fatal("nxrec failed", "command", cmd, "error", err)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `usage: nxrec <command> [flags]

commands:
  record    replay a document stream (JSON lines or msgpack) into the recorder
  inspect   print the hierarchy of written files
  simulate  record a synthetic run, or write its document stream

run "nxrec <command> -h" for the flags of a command`)
}

// setup loads the configuration, applies flag overrides and installs the default logger.
func setup(cfgPath, outDir string) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}

	l, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	logger.SetDefault(l)

	return cfg, l, nil
}

// newRecorder builds the generic or the SAXS beamline recorder from cfg.
func newRecorder(cfg *config.Config, l logger.Logger, beamline bool, extra ...recorder.Option) (*recorder.Recorder, error) {
	opts, err := cfg.RecorderOptions(l)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	if !beamline {
		return recorder.New(opts...)
	}

	// the beamline supplies its own sections and plan list unless the file configures them
	if cfg.Devices == nil {
		opts = append(opts, recorder.WithExportOptions(exporter.WithSections(saxs.NewSections(saxs.DeviceMap()))))
	}
	if len(cfg.Plans.Allow) == 0 && cfg.Plans.Filter == "" {
		opts = append(opts, recorder.WithAllowedPlans(saxs.Plans...))
	}

	return saxs.NewRecorder(opts...)
}

func recordCommand(args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to the YAML configuration file")
	input := fs.String("input", "-", "Document stream to replay, - for stdin")
	format := fs.String("format", "", "Input encoding: json or msgpack (default from the file extension)")
	outDir := fs.String("out", "", "Output directory, overrides the configuration")
	beamline := fs.Bool("saxs", false, "Use the SAXS beamline recorder")
	serve := fs.Bool("serve", false, "Keep the HTTP endpoints up after the input ends, until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, l, err := setup(*cfgPath, *outDir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg, "")
	if err != nil {
		return err
	}
	history := recorder.NewHistory()

	rec, err := newRecorder(cfg, l, *beamline, recorder.WithObserver(m), recorder.WithHistory(history))
	if err != nil {
		return err
	}

	var srv *statusServer
	if cfg.HTTP.Addr != "" {
		srv = newStatusServer(cfg.HTTP.Addr, reg, history, m, l)
		srv.Start()
		defer srv.Shutdown()
	}

	rd, closeInput, err := openInput(*input, *format)
	if err != nil {
		return err
	}
	defer closeInput()

	n, err := rec.Replay(ctx, rd)
	l.Info("input replayed", "documents", n, "runs", history.Len(), "exported", m.Runs.Exported.Load())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if *serve && srv != nil && ctx.Err() == nil {
		l.Info("serving status endpoints until interrupted", "addr", cfg.HTTP.Addr)
		<-ctx.Done()
	}

	return nil
}

func openInput(path, format string) (document.Reader, func(), error) {
	var (
		r       io.Reader = os.Stdin
		closeFn           = func() {}
	)
	if path != "-" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		r = fh
		closeFn = func() { _ = fh.Close() }
	}

	if format == "" {
		format = formatFromExt(path)
	}
	switch format {
	case "json":
		return document.NewJSONReader(r), closeFn, nil
	case "msgpack":
		return document.NewMsgpackReader(r), closeFn, nil
	default:
		closeFn()
		return nil, nil, fmt.Errorf("unknown input format %q", format)
	}
}

func openOutput(path, format string) (document.Writer, func() error, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	if format == "" {
		format = formatFromExt(path)
	}
	switch format {
	case "json":
		return document.NewJSONWriter(fh), fh.Close, nil
	case "msgpack":
		return document.NewMsgpackWriter(fh), fh.Close, nil
	default:
		_ = fh.Close()
		return nil, nil, fmt.Errorf("unknown output format %q", format)
	}
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk", ".mp":
		return "msgpack"
	default:
		return "json"
	}
}

func inspectCommand(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	maxValues := fs.Int("max-values", nexus.DefaultTreeMaxValues, "Values printed per dataset, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no file given")
	}

	enc := &nexus.TreeEncoder{MaxValues: *maxValues}
	var errs []error
	for _, path := range fs.Args() {
		f, err := nexus.Open(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}

		fmt.Fprintf(w, "# %s\n", path)
		if err := enc.Encode(w, f); err != nil {
			errs = append(errs, err)
		}
		for _, link := range f.DanglingLinks() {
			fmt.Fprintf(w, "# dangling link: %s\n", link)
		}
	}

	return errors.Join(errs...)
}

func simulateCommand(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to the YAML configuration file")
	outDir := fs.String("out", "", "Output directory, overrides the configuration")
	docsPath := fs.String("docs", "", "Write the document stream to this file instead of recording it")
	scanID := fs.Int64("scan", 1, "Scan id of the run")
	points := fs.Int("points", 10, "Number of primary events")
	plan := fs.String("plan", "", "Plan name, overrides the preset")
	beamline := fs.Bool("saxs", false, "Simulate a SAXS beamline scan and use the SAXS recorder")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, l, err := setup(*cfgPath, *outDir)
	if err != nil {
		return err
	}

	run := docsim.Default()
	run.ScanID, run.Points = *scanID, *points
	if *beamline {
		run = saxs.SimulatedRun(*scanID, *points)
	}
	if *plan != "" {
		run.PlanName = *plan
	}
	docs := run.Documents()

	if *docsPath != "" {
		w, closeFn, err := openOutput(*docsPath, "")
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if err := w.Write(doc); err != nil {
				_ = closeFn()
				return err
			}
		}
		l.Info("document stream written", "path", *docsPath, "documents", len(docs))

		return closeFn()
	}

	rec, err := newRecorder(cfg, l, *beamline)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := rec.Receive(doc); err != nil {
			return err
		}
	}

	for _, r := range rec.History().Records() {
		fmt.Println(r.Path)
	}
	if rec.History().Len() == 0 {
		l.Warn("run was not recorded", "plan_name", run.PlanName)
	}

	return nil
}
