package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hed1ad/gochangepoint/pkg/detect"
	cpio "github.com/hed1ad/gochangepoint/pkg/io"
	"github.com/hed1ad/gochangepoint/pkg/io/csv"
	"github.com/hed1ad/gochangepoint/pkg/io/pcap"
)

type detectOptions struct {
	method   string
	model    string
	width    int
	nBkps    int
	penalty  float64
	arOrder  int
	gamma    float64
	minSize  int
	jump     int
	noCache  bool
	yOnly    bool
	format   string
	output   string
	metric   string
	bucket   time.Duration
	protocol string
}

func newDetectCmd(root *rootOptions) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect FILE...",
		Short: "Run change point detection on one or more files",
		Long: `Run change point detection on one or more files.

A file with one column is read as Y, with X generated as 1..n. A file with two
columns is read as X then Y. Files with a .pcap or .pcapng extension are
aggregated into a traffic series first. Several files are processed in
parallel.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root.configFile)
			if err != nil {
				return err
			}
			opts.apply(cmd, &cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return runDetect(ctx, cmd, root, opts, cfg, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.method, "method", "m", "", "search method: window, binseg, pelt")
	f.StringVar(&opts.model, "model", "", "cost model: l1, l2, rbf, linear, normal, ar")
	f.IntVarP(&opts.width, "width", "w", 0, "window width (window)")
	f.IntVarP(&opts.nBkps, "n-bkps", "n", 0, "number of breakpoints (window, binseg)")
	f.Float64VarP(&opts.penalty, "penalty", "p", 0, "penalty per breakpoint (pelt)")
	f.IntVar(&opts.arOrder, "ar-order", 0, "lags of the ar model")
	f.Float64Var(&opts.gamma, "gamma", 0, "rbf bandwidth, 0 for the median heuristic")
	f.IntVar(&opts.minSize, "min-size", 0, "minimum segment length, 0 for the model minimum")
	f.IntVar(&opts.jump, "jump", 0, "candidate grid step")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable segment cost memoization")
	f.BoolVar(&opts.yOnly, "y-only", false, "search on Y alone when the input has an X column")
	f.StringVarP(&opts.format, "format", "f", "text", "output format: text, json")
	f.StringVarP(&opts.output, "output", "o", "", "write results to a file instead of stdout")
	f.StringVar(&opts.metric, "metric", string(pcap.Bytes), "capture metric: bytes, packets, payload, interarrival, syn, ttl, dst_ports, src_ports")
	f.DurationVar(&opts.bucket, "bucket", time.Second, "capture aggregation bucket")
	f.StringVar(&opts.protocol, "protocol", "", "keep only tcp, udp or icmp packets of a capture")

	return cmd
}

// apply overlays flags that were set explicitly on top of cfg.
func (o *detectOptions) apply(cmd *cobra.Command, cfg *detect.Config) {
	f := cmd.Flags()
	if f.Changed("method") {
		cfg.Method = o.method
	}
	if f.Changed("model") {
		cfg.Model = o.model
	}
	if f.Changed("width") {
		cfg.Width = o.width
	}
	if f.Changed("n-bkps") {
		cfg.NBkps = o.nBkps
	}
	if f.Changed("penalty") {
		cfg.Penalty = o.penalty
	}
	if f.Changed("ar-order") {
		cfg.AROrder = o.arOrder
	}
	if f.Changed("gamma") {
		cfg.Gamma = o.gamma
	}
	if f.Changed("min-size") {
		cfg.MinSize = o.minSize
	}
	if f.Changed("jump") {
		cfg.Jump = o.jump
	}
	if f.Changed("no-cache") {
		cfg.DisableCache = o.noCache
	}
}

func runDetect(ctx context.Context, cmd *cobra.Command, root *rootOptions, opts *detectOptions, cfg detect.Config, files []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	writer, closeOut, err := openWriter(cmd, opts)
	if err != nil {
		return err
	}
	defer closeOut()

	series := make([]*cpio.Series, len(files))
	reqs := make([]detect.Request, len(files))
	for i, file := range files {
		s, err := readSeries(file, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		series[i] = s
		reqs[i] = detect.Request{Data: s.Signal(opts.yOnly), Config: cfg}

		root.logger.Debugw("Loaded series", "file", file, "samples", s.Len(), "generated_x", s.Generated)
	}

	d := detect.New(detect.WithLogger(root.logger))
	results, err := d.DetectAll(ctx, reqs)
	if err != nil {
		return err
	}

	reports := make([]cpio.Report, len(results))
	for i, res := range results {
		reports[i] = cpio.NewReport(files[i], series[i], res)
	}
	return writer.WriteAll(reports)
}

func readSeries(file string, opts *detectOptions) (*cpio.Series, error) {
	var (
		reader cpio.Reader
		err    error
	)

	switch strings.ToLower(filepath.Ext(file)) {
	case ".pcap", ".pcapng", ".cap":
		metric, perr := pcap.ParseMetric(opts.metric)
		if perr != nil {
			return nil, perr
		}
		reader, err = pcap.NewFileReader(file,
			pcap.WithMetric(metric),
			pcap.WithBucket(opts.bucket),
			pcap.WithProtocol(opts.protocol),
		)
	default:
		reader, err = csv.NewReader(file)
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return cpio.ReadSeries(reader)
}

func openWriter(cmd *cobra.Command, opts *detectOptions) (cpio.Writer, func(), error) {
	out := cmd.OutOrStdout()
	closeOut := func() {}

	if opts.output != "" {
		file, err := os.Create(opts.output)
		if err != nil {
			return nil, nil, err
		}
		out = file
		closeOut = func() { _ = file.Close() }
	}

	switch opts.format {
	case "json":
		return cpio.NewJSONWriter(out, true), closeOut, nil
	case "text":
		return cpio.NewTextWriter(out), closeOut, nil
	default:
		closeOut()
		return nil, nil, fmt.Errorf("unknown output format %q", opts.format)
	}
}
