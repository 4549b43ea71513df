package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/wudi/bookletscan/assemble"
	"github.com/wudi/bookletscan/booklet"
	"github.com/wudi/bookletscan/config"
	"github.com/wudi/bookletscan/diag"
	"github.com/wudi/bookletscan/observability"
	"github.com/wudi/bookletscan/ocr/tesseract"
	"github.com/wudi/bookletscan/regnum"
	"github.com/wudi/bookletscan/scanner"
)

type options struct {
	configPath string
	assetsDir  string
	outDir     string
	logLevel   string
	roi        string
	manual     bool
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "booklet: %v\n", err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "booklet: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("booklet", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: booklet [flags]\n\nCaptures every page in the assets directory and writes <registration number>.pdf.\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.assetsDir, "assets", "", "Directory of captured page images (overrides config)")
	fs.StringVar(&opts.outDir, "out", "", "Directory for the PDF and diagnostic images (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	fs.StringVar(&opts.roi, "roi", "", "Registration number region as x,y,width,height (overrides config)")
	fs.BoolVar(&opts.manual, "manual", false, "Prompt for the registration number when OCR fails")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.assetsDir != "" {
		cfg.AssetsDir = opts.assetsDir
	}
	if opts.outDir != "" {
		cfg.OutputDir = opts.outDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.roi != "" {
		r, err := config.ParseRegion(opts.roi)
		if err != nil {
			return nil, err
		}
		cfg.OCR.Region = r
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	logger, err := observability.NewZapLogger(observability.ZapConfig{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer logger.Close()

	var tessOpts []tesseract.Option
	if len(cfg.OCR.Languages) > 0 {
		tessOpts = append(tessOpts, tesseract.WithLanguage(cfg.OCR.Languages...))
	}
	if cfg.OCR.TessdataPrefix != "" {
		tessOpts = append(tessOpts, tesseract.WithTessdataPrefix(cfg.OCR.TessdataPrefix))
	}
	exOpts, err := cfg.ExtractorOptions()
	if err != nil {
		return err
	}
	exOpts = append(exOpts,
		regnum.WithDiagnostics(diag.FileSink{Dir: cfg.OutputDir, Unique: cfg.OCR.UniqueDiagnostic}),
		regnum.WithLogger(logger),
	)
	extractor, err := regnum.New(tesseract.New(tessOpts...), exOpts...)
	if err != nil {
		return err
	}

	sc, err := scanner.New(cfg.AssetsDir, scanner.Config{})
	if err != nil {
		return err
	}
	sessOpts := booklet.Options{
		Region:    cfg.OCR.Region,
		OutputDir: cfg.OutputDir,
		PDF:       assemble.Options{DPI: cfg.PDF.DPI, Creator: cfg.PDF.Creator},
		MinLength: cfg.OCR.MinLength,
		Logger:    logger,
	}
	if opts.manual {
		sessOpts.Manual = prompt(stdin, stdout)
	}
	sess, err := booklet.NewSession(sc, extractor, sessOpts)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "Booklet scanner")
	n, err := sess.CaptureAll(ctx)
	if err != nil {
		return fmt.Errorf("capture aborted: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("no pages found in %s", cfg.AssetsDir)
	}
	fmt.Fprintf(stdout, "Captured %d pages\n", n)

	out, err := sess.Finish(ctx)
	var exErr *booklet.ExtractionError
	if errors.As(err, &exErr) {
		fmt.Fprintf(stdout, "OCR rejected %q (%s). Inspect %s and check the region %s.\n",
			exErr.Result.RawText, exErr.Result.Reason, exErr.Result.DiagnosticPath, cfg.OCR.Region)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Registration number %s, PDF saved to %s\n", out.RegNumber, out.PDFPath)
	return nil
}

// prompt reads a number typed by the operator.
func prompt(stdin io.Reader, stdout io.Writer) booklet.ManualEntry {
	r := bufio.NewReader(stdin)
	return func(_ context.Context, failed regnum.Result) (string, error) {
		fmt.Fprintf(stdout, "OCR failed (%s, read %q). Diagnostic image: %s\n", failed.Reason, failed.RawText, failed.DiagnosticPath)
		fmt.Fprint(stdout, "Enter the registration number (blank to skip): ")
		line, err := r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return line, nil
	}
}
