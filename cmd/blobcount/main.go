// Headless blob counter: counts blobs in image files and prints one line per image.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vision-inventory/internal/blobs"
	"vision-inventory/internal/config"
	imgio "vision-inventory/internal/io"
	"vision-inventory/internal/logging"
)

type options struct {
	params  blobs.Params
	workers int
	outDir  string
}

type countResult struct {
	path  string
	count int
	err   error
}

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Optional YAML configuration for default parameters")
	mode := flag.String("mode", "", "Binarization mode: inverse or band")
	threshold := flag.Int("threshold", -1, "Inverse threshold cutoff (0-255)")
	low := flag.Int("low", -1, "Band lower bound (0-255)")
	high := flag.Int("high", -1, "Band upper bound (0-255)")
	workers := flag.Int("workers", runtime.NumCPU(), "Images processed concurrently")
	outDir := flag.String("out", "", "Directory for annotated copies")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] image|dir ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logging.NewWithOutput(os.Stderr, *debugMode)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	opts := options{
		params: blobs.Params{
			Mode:      cfg.Blob.Mode,
			Threshold: cfg.Blob.Threshold,
			Low:       cfg.Blob.BandLow,
			High:      cfg.Blob.BandHigh,
		},
		workers: *workers,
		outDir:  *outDir,
	}
	if *mode != "" {
		opts.params.Mode = *mode
	}
	if *threshold >= 0 {
		opts.params.Threshold = *threshold
	}
	if *low >= 0 {
		opts.params.Low = *low
	}
	if *high >= 0 {
		opts.params.High = *high
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed, err := run(context.Background(), flag.Args(), opts, os.Stdout, logger)
	if err != nil {
		logger.WithError(err).Fatal("Blob count failed")
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// run counts every image under paths and writes "path<TAB>count" lines in
// input order. Images that fail are logged and reported in the returned count.
func run(ctx context.Context, paths []string, opts options, out io.Writer, logger *logrus.Logger) (int, error) {
	files, err := imgio.Expand(paths)
	if err != nil {
		return 0, err
	}
	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0755); err != nil {
			return 0, fmt.Errorf("create output dir: %w", err)
		}
	}

	results := countAll(ctx, files, opts, logger)

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			logger.WithFields(logrus.Fields{"path": r.path, "error": r.err}).Error("Image failed")
			continue
		}
		fmt.Fprintf(out, "%s\t%d\n", r.path, r.count)
	}

	logger.WithFields(logrus.Fields{"images": len(files), "failed": failed}).Info("Blob count finished")
	return failed, ctx.Err()
}

func countAll(ctx context.Context, files []string, opts options, logger *logrus.Logger) []countResult {
	loader := imgio.NewImageLoader(logger)
	detector := blobs.NewDetector(logger)

	workers := opts.workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]countResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = countResult{path: path, err: err}
				return nil
			}
			count, err := countOne(loader, detector, i, path, opts)
			results[i] = countResult{path: path, count: count, err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

func countOne(loader *imgio.ImageLoader, detector *blobs.Detector, index int, path string, opts options) (int, error) {
	mat, err := loader.LoadImage(path)
	if err != nil {
		return 0, err
	}
	defer mat.Close()

	result, err := detector.Detect(mat, opts.params)
	if err != nil {
		return 0, fmt.Errorf("detect %s: %w", path, err)
	}
	defer result.Close()

	if opts.outDir != "" {
		if err := loader.SaveImage(result.Annotated, annotatedPath(opts.outDir, index, path)); err != nil {
			return result.Count, err
		}
	}
	return result.Count, nil
}

// annotatedPath names the annotated copy of the index-th input inside dir. The
// index prefix keeps inputs that share a base name apart.
func annotatedPath(dir string, index int, path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return filepath.Join(dir, fmt.Sprintf("%03d_%s_blobs%s", index, strings.TrimSuffix(base, ext), ext))
}
