package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"cufetch/pkg/logger"
)

// DefaultChunkSize is the copy buffer used when streaming a body to disk
const DefaultChunkSize = 8192

// Fetcher opens a streamed GET for an attachment URL
type Fetcher interface {
	Open(ctx context.Context, url string) (*http.Response, error)
}

// FileStore writes and removes files in the output tree
type FileStore interface {
	WriteFile(dest string, r io.Reader, buf []byte) (int64, error)
	Remove(dest string) error
}

// Recorder persists download outcomes
type Recorder interface {
	RecordDownload(path, url string, size int64) error
	LogFailedDownload(url, dest, message string) error
}

// Result represents the outcome of a single download
type Result struct {
	URL      string
	Dest     string
	Size     int64
	Duration time.Duration
	Err      error
	// Interrupted is set when ctx was cancelled mid-download. Nothing is
	// recorded as failed and the partial file is removed.
	Interrupted bool
}

// OK reports whether the file was written and recorded
func (r Result) OK() bool {
	return r.Err == nil
}

// Options configures an Engine
type Options struct {
	Fetcher   Fetcher
	Store     FileStore
	Recorder  Recorder
	ChunkSize int
	Logger    logger.Logger
}

// Engine downloads one attachment at a time to its destination path
type Engine struct {
	fetcher   Fetcher
	store     FileStore
	recorder  Recorder
	chunkSize int
	logger    logger.Logger
}

// NewEngine creates a download engine
func NewEngine(opts Options) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Engine{
		fetcher:   opts.Fetcher,
		store:     opts.Store,
		recorder:  opts.Recorder,
		chunkSize: opts.ChunkSize,
		logger:    opts.Logger,
	}
}

// Download streams url into dest and records it in the ledger. Any failure
// is logged to the failure ledger, the partial file is removed and a failed
// Result is returned. A failure caused by cancelling ctx is not logged.
func (e *Engine) Download(ctx context.Context, url, dest string) Result {
	start := time.Now()
	result := Result{URL: url, Dest: dest}

	size, err := e.fetch(ctx, url, dest)
	if err == nil {
		if recErr := e.recorder.RecordDownload(dest, url, size); recErr != nil {
			err = fmt.Errorf("record failed: %w", recErr)
		}
	}
	result.Duration = time.Since(start)

	if err != nil && ctx.Err() != nil {
		result.Err = fmt.Errorf("download interrupted: %w", ctx.Err())
		result.Interrupted = true
		e.discard(dest)
		e.logger.InfoWithFields("Download interrupted", map[string]interface{}{
			"url":  url,
			"dest": dest,
		})
		return result
	}
	if err != nil {
		result.Err = err
		e.fail(url, dest, err)
		return result
	}

	result.Size = size
	logger.LogDownload(e.logger, dest, url, size, nil)
	return result
}

// fetch opens the URL and writes the body to dest
func (e *Engine) fetch(ctx context.Context, url, dest string) (int64, error) {
	resp, err := e.fetcher.Open(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	e.logger.DebugWithFields("Streaming attachment", map[string]interface{}{
		"url":            url,
		"dest":           dest,
		"content_length": resp.ContentLength,
	})

	size, err := e.store.WriteFile(dest, resp.Body, make([]byte, e.chunkSize))
	if err != nil {
		return 0, fmt.Errorf("save failed: %w", err)
	}
	return size, nil
}

// discard removes whatever was written to dest
func (e *Engine) discard(dest string) {
	if err := e.store.Remove(dest); err != nil {
		e.logger.WithError(err).WarnWithFields("Failed to remove partial download", map[string]interface{}{
			"dest": dest,
		})
	}
}

// fail removes whatever was written and logs the failure
func (e *Engine) fail(url, dest string, cause error) {
	e.discard(dest)

	if err := e.recorder.LogFailedDownload(url, dest, cause.Error()); err != nil {
		e.logger.WithError(err).ErrorWithFields("Failed to log failed download", map[string]interface{}{
			"url":  url,
			"dest": dest,
		})
	}

	logger.LogDownload(e.logger, dest, url, 0, cause)
}
