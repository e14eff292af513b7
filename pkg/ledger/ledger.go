package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cufetch/pkg/logger"
)

// Default file names, relative to the output root
const (
	DefaultMetadataFile        = ".download_metadata.json"
	DefaultProcessedTasksFile  = ".processed_tasks.json"
	DefaultFailedDownloadsFile = ".failed_downloads.json"
)

// Record describes a completed download, keyed by its path relative to the output root
type Record struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
	// DownloadedAt is Unix seconds with a fractional part
	DownloadedAt float64 `json:"downloaded_at"`
}

// Failure is one entry of the failed download log
type Failure struct {
	URL string `json:"url"`
	// Dest is relative to the output root
	Dest     string  `json:"dest"`
	Error    string  `json:"error"`
	FailedAt float64 `json:"failed_at"`
}

// Stats summarizes the three stores
type Stats struct {
	Downloads      int
	DownloadBytes  int64
	ProcessedTasks int
	Failures       int
}

// Options configures a Ledger
type Options struct {
	// Root is the output directory that relative keys are computed against
	Root                string
	MetadataFile        string
	ProcessedTasksFile  string
	FailedDownloadsFile string
	// Clock defaults to time.Now
	Clock  func() time.Time
	Logger logger.Logger
}

// Ledger persists download records, processed task ids and failures as
// JSON files under the output root. Every query reloads from disk and
// every mutation rewrites the whole file.
type Ledger struct {
	root          string
	metadataPath  string
	processedPath string
	failedPath    string
	clock         func() time.Time
	logger        logger.Logger
}

// New creates a ledger rooted at opts.Root
func New(opts Options) *Ledger {
	if opts.MetadataFile == "" {
		opts.MetadataFile = DefaultMetadataFile
	}
	if opts.ProcessedTasksFile == "" {
		opts.ProcessedTasksFile = DefaultProcessedTasksFile
	}
	if opts.FailedDownloadsFile == "" {
		opts.FailedDownloadsFile = DefaultFailedDownloadsFile
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &Ledger{
		root:          opts.Root,
		metadataPath:  filepath.Join(opts.Root, opts.MetadataFile),
		processedPath: filepath.Join(opts.Root, opts.ProcessedTasksFile),
		failedPath:    filepath.Join(opts.Root, opts.FailedDownloadsFile),
		clock:         opts.Clock,
		logger:        opts.Logger,
	}
}

// Root returns the output root
func (l *Ledger) Root() string {
	return l.root
}

// Key returns the metadata key for an absolute or root-prefixed path
func (l *Ledger) Key(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (l *Ledger) timestamp() float64 {
	return float64(l.clock().UnixNano()) / float64(time.Second)
}

// IsDuplicate reports whether path already holds the download of url: the
// file exists, matches expectedSize when one is given (> 0), and has a
// metadata record with the same url and the current on-disk size.
func (l *Ledger) IsDuplicate(path, url string, expectedSize int64) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	size := info.Size()
	if expectedSize > 0 && size != expectedSize {
		return false
	}

	record, ok := l.Metadata()[l.Key(path)]
	if !ok {
		return false
	}
	return record.URL == url && record.Size == size
}

// RecordDownload upserts the record for path and persists immediately
func (l *Ledger) RecordDownload(path, url string, size int64) error {
	metadata := l.Metadata()
	metadata[l.Key(path)] = Record{
		URL:          url,
		Size:         size,
		DownloadedAt: l.timestamp(),
	}

	if err := saveJSON(l.metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to save download metadata: %w", err)
	}
	return nil
}

// Metadata loads the download records
func (l *Ledger) Metadata() map[string]Record {
	metadata := make(map[string]Record)
	if !l.load(l.metadataPath, &metadata) || metadata == nil {
		return make(map[string]Record)
	}
	return metadata
}

// ProcessedTasks loads the set of processed task ids
func (l *Ledger) ProcessedTasks() map[string]struct{} {
	var ids []string
	if !l.load(l.processedPath, &ids) {
		ids = nil
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IsTaskProcessed reports whether id is in the processed set
func (l *Ledger) IsTaskProcessed(id string) bool {
	_, ok := l.ProcessedTasks()[id]
	return ok
}

// MarkTaskProcessed adds id to the processed set and persists it. The set
// is written sorted so unchanged content yields identical bytes.
func (l *Ledger) MarkTaskProcessed(id string) error {
	set := l.ProcessedTasks()
	if _, ok := set[id]; ok {
		return nil
	}
	set[id] = struct{}{}

	ids := make([]string, 0, len(set))
	for k := range set {
		ids = append(ids, k)
	}
	sort.Strings(ids)

	if err := saveJSON(l.processedPath, ids); err != nil {
		return fmt.Errorf("failed to save processed tasks: %w", err)
	}
	return nil
}

// LogFailedDownload appends a failure for url and persists the log
func (l *Ledger) LogFailedDownload(url, dest, message string) error {
	failures := l.Failures()
	failures = append(failures, Failure{
		URL:      url,
		Dest:     l.Key(dest),
		Error:    message,
		FailedAt: l.timestamp(),
	})

	if err := saveJSON(l.failedPath, failures); err != nil {
		return fmt.Errorf("failed to save failed downloads: %w", err)
	}
	return nil
}

// Failures loads the failed download log in append order
func (l *Ledger) Failures() []Failure {
	var failures []Failure
	if !l.load(l.failedPath, &failures) || failures == nil {
		return []Failure{}
	}
	return failures
}

// Stats counts the entries of each store
func (l *Ledger) Stats() Stats {
	metadata := l.Metadata()

	stats := Stats{
		Downloads:      len(metadata),
		ProcessedTasks: len(l.ProcessedTasks()),
		Failures:       len(l.Failures()),
	}
	for _, r := range metadata {
		stats.DownloadBytes += r.Size
	}
	return stats
}

// load decodes path into target. A missing file leaves target untouched;
// a corrupt one is logged and reported as not loaded.
func (l *Ledger) load(path string, target interface{}) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.WarnWithFields("Failed to read ledger file, treating as empty", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return false
	}

	if err := json.Unmarshal(data, target); err != nil {
		l.logger.WarnWithFields("Corrupt ledger file, treating as empty", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return false
	}
	return true
}

// saveJSON writes v as indented JSON, replacing path atomically
func saveJSON(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	// Create temporary file next to the target so rename stays on one filesystem
	file, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary ledger file: %w", err)
	}
	tempPath := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	// Ensure data is written to disk
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync ledger file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close ledger file: %w", err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set ledger permissions: %w", err)
	}

	// Atomically replace the old file
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
