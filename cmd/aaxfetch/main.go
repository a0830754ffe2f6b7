package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/vertextoedge/aaxfetch/internal/adapter/filesystem"
	"github.com/vertextoedge/aaxfetch/internal/adapter/httpsource"
	"github.com/vertextoedge/aaxfetch/internal/adapter/sqlite"
	"github.com/vertextoedge/aaxfetch/internal/catalog"
	"github.com/vertextoedge/aaxfetch/internal/config"
	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/event"
	"github.com/vertextoedge/aaxfetch/internal/logger"
	"github.com/vertextoedge/aaxfetch/internal/service/transfer"
)

const version = "0.1.0"

// options holds the parsed command line
type options struct {
	configPath string
	customerID string
	sku        string
	url        string
	output     string
	auth       string
	digest     string
	verbose    bool
	quiet      bool
	history    int
	version    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if opts.version {
		fmt.Fprintf(stdout, "aaxfetch %s\n", version)
		return exitOK
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitUsage
	}

	level := cfg.Logging.Level
	if opts.verbose {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitUsage
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()

	var journal *sqlite.Store
	if cfg.Journal.Path != "" {
		journal, err = sqlite.Open(cfg.Journal.Path)
		if err != nil {
			zapLogger.Error("failed to open journal", zap.Error(err), zap.String("path", cfg.Journal.Path))
			return exitFailure
		}
		defer journal.Close()
	}

	if opts.history > 0 {
		if journal == nil {
			fmt.Fprintln(stderr, "Error: journal.path is not configured")
			return exitUsage
		}
		if err := printHistory(stdout, journal, opts.history); err != nil {
			zapLogger.Error("failed to read journal", zap.Error(err))
			return exitFailure
		}
		return exitOK
	}

	req, err := buildRequest(opts, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	zapLogger.Info("starting aaxfetch",
		zap.String("version", version),
		zap.String("source", domain.RedactSource(req.Locator.URL)),
		zap.String("output", req.Dest))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher := event.NewInMemoryDispatcher()
	dispatcher.Subscribe(event.NewLoggingHandler(zapLogger, cfg.Transfer.GetProgressInterval()))

	var bar *progressBar
	if !opts.quiet {
		bar = newProgressBar(ctx, stderr, req.Dest)
		dispatcher.Subscribe(bar)
	}

	fsManager := filesystem.NewManager()
	source := httpsource.NewClient(httpsource.Options{
		UserAgent:             cfg.HTTP.UserAgent,
		ResponseHeaderTimeout: cfg.HTTP.GetResponseHeaderTimeout(),
		ProbeTimeout:          cfg.HTTP.GetProbeTimeout(),
	})

	controllerOpts := []transfer.Option{
		transfer.WithDispatcher(dispatcher),
		transfer.WithSpaceChecker(fsManager),
	}
	if journal != nil {
		controllerOpts = append(controllerOpts, transfer.WithJournal(journal))
	}

	controller := transfer.NewController(source, fsManager, zapLogger, transfer.Config{
		ChunkSize:   cfg.Transfer.GetChunkSize(),
		MaxAttempts: cfg.Transfer.MaxAttempts,
		BaseDelay:   cfg.Transfer.GetBaseDelay(),
		MaxDelay:    cfg.Transfer.GetMaxDelay(),
		Jitter:      cfg.Transfer.Jitter,
	}, controllerOpts...)

	result, err := controller.Fetch(ctx, req)
	if bar != nil {
		bar.Wait()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Download failed: %v\n", err)
		return exitCode(err)
	}

	if result.Skipped {
		fmt.Fprintf(stderr, "Already complete: %s (%s)\n", result.Path, humanize.IBytes(uint64(result.TotalBytes)))
	} else {
		fmt.Fprintf(stderr, "Download complete: %s (%s)\n", result.Path, humanize.IBytes(uint64(result.TotalBytes)))
	}
	return exitOK
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("aaxfetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: aaxfetch [flags] <sku>")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.customerID, "customer-id", "", "Audible customer id")
	fs.StringVar(&opts.sku, "sku", "", "SKU of the book to download")
	fs.StringVar(&opts.url, "url", "", "Download URL, overrides customer id and SKU")
	fs.StringVar(&opts.output, "output", "", "Output file (default <sku>.aax)")
	fs.StringVar(&opts.output, "o", "", "Shorthand for -output")
	fs.StringVar(&opts.auth, "auth", "", "Authorization header value passed to the server")
	fs.StringVar(&opts.digest, "digest", "", "Expected digest of the finished file, e.g. sha256:<hex>")
	fs.BoolVar(&opts.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&opts.verbose, "v", false, "Shorthand for -verbose")
	fs.BoolVar(&opts.quiet, "quiet", false, "Disable the progress bar")
	fs.IntVar(&opts.history, "history", 0, "Print the last N journaled transfers and exit")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	switch fs.NArg() {
	case 0:
	case 1:
		if opts.sku != "" && opts.sku != fs.Arg(0) {
			return nil, fmt.Errorf("sku given twice: %q and %q", opts.sku, fs.Arg(0))
		}
		opts.sku = fs.Arg(0)
	default:
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args()[1:])
	}
	if opts.history < 0 {
		return nil, errors.New("-history must not be negative")
	}

	return opts, nil
}

// buildRequest resolves the locator, destination and digest from flags and config
func buildRequest(opts *options, cfg *config.Config) (transfer.Request, error) {
	auth := opts.auth
	if auth == "" {
		auth = cfg.Audible.Authorization
	}

	var req transfer.Request
	if opts.url != "" {
		req.Locator = domain.Locator{URL: opts.url, Authorization: auth}
		if err := req.Locator.Validate(); err != nil {
			return req, err
		}
	} else {
		customerID := opts.customerID
		if customerID == "" {
			customerID = cfg.Audible.CustomerID
		}
		book := catalog.Book{CustomerID: customerID, SKU: opts.sku, Codec: cfg.Audible.Codec}
		loc, err := book.Locator(auth)
		if err != nil {
			return req, err
		}
		req.Locator = loc
	}

	req.Dest = opts.output
	if req.Dest == "" {
		if opts.sku == "" {
			return req, errors.New("-output is required when no SKU is given")
		}
		req.Dest = catalog.DefaultFilename(opts.sku)
	}

	if opts.digest != "" {
		d, err := domain.ParseDigest(opts.digest)
		if err != nil {
			return req, err
		}
		req.ExpectedDigest = d
	}

	return req, nil
}

func printHistory(w io.Writer, journal *sqlite.Store, limit int) error {
	transfers, err := journal.RecentTransfers(limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tATTEMPTS\tSIZE\tPATH\tERROR")
	for _, t := range transfers {
		size := "-"
		if t.TotalBytes >= 0 {
			size = humanize.IBytes(uint64(t.TotalBytes))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			humanize.Time(t.StartedAt), t.Status, t.Attempts, size, t.Path, t.LastError)
	}
	return tw.Flush()
}
