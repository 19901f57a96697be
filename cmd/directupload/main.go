// Command directupload uploads local files through an upload session API.
//
// Usage:
//
//	directupload -server https://uploads.example.com model.stl benchy.3mf
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/directupload"
	uperrors "github.com/input-output-hk/catalyst-forge-libs/directupload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/internal/logging"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/transport"
	"github.com/input-output-hk/catalyst-forge-libs/directupload/uploadtypes"
)

func main() {
	os.Exit(run())
}

func run() int {
	serverURL := flag.String("server", "http://localhost:8080", "base URL of the upload session API")
	concurrency := flag.Int("concurrency", uploadtypes.DefaultConcurrency, "parts transferred at once")
	retries := flag.Int("retries", uploadtypes.DefaultMaxRetries, "retries per part after the first attempt")
	retryDelay := flag.Duration("retry-delay", uploadtypes.DefaultRetryDelay, "base delay between part attempts")
	constant := flag.Bool("constant-backoff", false, "use a constant retry delay instead of doubling it")
	prefix := flag.String("prefix", "", "object key prefix")
	completeTimeout := flag.Duration("complete-timeout", 2*time.Minute, "timeout of the final assemble call")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger := logging.New(os.Stderr, *logLevel)
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: directupload [flags] FILE...")
		flag.PrintDefaults()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := transport.NewSessionClient(*serverURL, transport.WithHTTPClient(&http.Client{Timeout: 5 * time.Minute}))
	ctrl := directupload.NewController(client,
		directupload.WithConcurrency(*concurrency),
		directupload.WithMaxRetries(*retries),
		directupload.WithRetryDelay(*retryDelay),
		directupload.WithExponentialBackoff(!*constant),
		directupload.WithKeyPrefix(*prefix),
		directupload.WithCompleteTimeout(*completeTimeout),
		directupload.WithLogger(logger),
		directupload.WithProgress(&progressLogger{logger: logger, last: -1}),
	)

	failed := 0
	for _, path := range flag.Args() {
		outcome, err := ctrl.UploadFile(ctx, path)
		if err != nil {
			logger.Error("upload failed", "file", path, "kind", uperrors.KindOf(err), "error", err)
			failed++
			if uperrors.IsCancelled(err) {
				break
			}
			continue
		}
		fmt.Printf("%s -> %s (%d bytes, %d parts, %s)\n",
			path, outcome.Key, outcome.Size, outcome.Parts, outcome.Duration.Round(time.Millisecond))
	}

	if failed > 0 {
		return 1
	}
	return 0
}

// progressLogger logs each new whole percentage.
type progressLogger struct {
	logger *slog.Logger
	last   int
}

func (p *progressLogger) Update(progress uploadtypes.Progress) {
	if progress.Percent == p.last {
		return
	}
	p.last = progress.Percent
	p.logger.Info("upload progress",
		"percent", progress.Percent,
		"parts", fmt.Sprintf("%d/%d", progress.CompletedParts, progress.TotalParts),
	)
}

func (p *progressLogger) Complete(*uploadtypes.UploadOutcome) {
	p.last = -1
}

func (p *progressLogger) Error(error) {
	p.last = -1
}
