package scraper

import (
	"context"

	"cufetch/internal/downloader"
	"cufetch/pkg/clickup"
	"cufetch/pkg/walker"
)

// API defines the ClickUp operations the scraper needs
type API interface {
	walker.API
	Task(ctx context.Context, taskID string) (*clickup.Task, error)
}

// Downloader fetches one attachment to a destination path
type Downloader interface {
	Download(ctx context.Context, url, dest string) downloader.Result
}

// Ledger is the resume state consulted and updated during a run
type Ledger interface {
	IsDuplicate(path, url string, expectedSize int64) bool
	ProcessedTasks() map[string]struct{}
	MarkTaskProcessed(id string) error
}
