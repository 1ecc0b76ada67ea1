// Command pdfdesk converts PDFs from the command line.
//
// Single file:
//
//	go run ./cmd/pdfdesk --in report.pdf --format word
//
// Batch with a JSON report:
//
//	go run ./cmd/pdfdesk \
//	  --in a.pdf --in b.pdf \
//	  --format markdown \
//	  --out ./converted \
//	  --report ./converted/report.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brunobiangulo/pdfdesk"
)

// stringSlice implements flag.Value for multi-value string flags.
type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ", ") }
func (s *stringSlice) Set(val string) error {
	*s = append(*s, val)
	return nil
}

// fileResult is one line of the batch report.
type fileResult struct {
	Input   string  `json:"input"`
	Output  string  `json:"output,omitempty"`
	Pages   int     `json:"pages"`
	Mode    string  `json:"mode,omitempty"`
	Bytes   int     `json:"bytes"`
	Seconds float64 `json:"seconds"`
	Error   string  `json:"error,omitempty"`
}

func main() {
	var inputs stringSlice

	var (
		format     = flag.String("format", "word", "Output format: word, excel, html, markdown, text")
		outDir     = flag.String("out", "", "Output directory (default: next to each input)")
		password   = flag.String("password", "", "Password for encrypted PDFs")
		noHeadings = flag.Bool("no-headings", false, "Disable heading detection")
		pages      = flag.String("pages", "", "Pages to convert, e.g. 1,3-5 (default: all)")
		configPath = flag.String("config", "", "Path to config file (YAML or JSON)")
		reportPath = flag.String("report", "", "Write a JSON report of the batch to this path")
		verbose    = flag.Bool("v", false, "Debug logging")
	)
	flag.Var(&inputs, "in", "Input PDF (repeatable)")
	flag.Parse()
	inputs = append(inputs, flag.Args()...)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if len(inputs) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pdfdesk --in file.pdf [--in more.pdf] [--format word]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := pdfdesk.DefaultConfig()
	if *configPath != "" {
		loaded, err := pdfdesk.LoadConfig(*configPath)
		if err != nil {
			fatal("loading config: %v", err)
		}
		cfg = loaded
	}
	cfg.DisableStore = true

	engine, err := pdfdesk.New(cfg)
	if err != nil {
		fatal("creating engine: %v", err)
	}
	defer engine.Close()

	opts := []pdfdesk.ConvertOption{pdfdesk.WithHeadings(!*noHeadings)}
	if *password != "" {
		opts = append(opts, pdfdesk.WithPassword(*password))
	}
	if *pages != "" {
		list, err := parsePages(*pages)
		if err != nil {
			fatal("%v", err)
		}
		opts = append(opts, pdfdesk.WithPages(list...))
	}

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fatal("creating output dir: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var results []fileResult
	failed := 0
	for _, path := range inputs {
		res := convertFile(ctx, engine, path, *format, *outDir, opts)
		if res.Error != "" {
			failed++
			fmt.Printf("FAIL  %s: %s\n", res.Input, res.Error)
		} else {
			fmt.Printf("OK    %s -> %s (%d pages, %s, %.2fs)\n",
				res.Input, res.Output, res.Pages, res.Mode, res.Seconds)
		}
		results = append(results, res)
		if ctx.Err() != nil {
			break
		}
	}

	if *reportPath != "" {
		data, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(*reportPath, data, 0o644); err != nil {
			fatal("writing report: %v", err)
		}
	}

	fmt.Printf("\n%d converted, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func convertFile(ctx context.Context, engine pdfdesk.Engine, path, format, outDir string, opts []pdfdesk.ConvertOption) (res fileResult) {
	res.Input = path
	start := time.Now()
	defer func() { res.Seconds = time.Since(start).Seconds() }()

	data, err := os.ReadFile(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	out, err := engine.PDFToDocument(ctx, pdfdesk.Input{Filename: filepath.Base(path), Data: data}, format, opts...)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	dir := outDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	res.Output = filepath.Join(dir, out.Filename)
	res.Pages = out.Pages
	res.Mode = out.Mode
	res.Bytes = len(out.Data)
	if err := os.WriteFile(res.Output, out.Data, 0o644); err != nil {
		res.Error = err.Error()
	}
	return res
}

// parsePages parses "1,3-5" into page numbers.
func parsePages(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid page %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(hi); err != nil || to < from {
				return nil, fmt.Errorf("invalid page range %q", part)
			}
		}
		for p := from; p <= to; p++ {
			out = append(out, p)
		}
	}
	return out, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "pdfdesk: "+format+"\n", args...)
	os.Exit(1)
}
