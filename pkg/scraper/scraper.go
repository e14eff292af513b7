package scraper

import (
	"context"
	"fmt"
	"time"

	"cufetch/internal/downloader"
	"cufetch/pkg/clickup"
	"cufetch/pkg/config"
	"cufetch/pkg/ledger"
	"cufetch/pkg/logger"
	"cufetch/pkg/ratelimit"
	"cufetch/pkg/storage"
	"cufetch/pkg/ui"
	"cufetch/pkg/walker"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Phase is the stage a run is in
type Phase int

const (
	PhaseInit Phase = iota
	PhaseCounting
	PhaseProcessing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseCounting:
		return "counting"
	case PhaseProcessing:
		return "processing"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// TaskResult is the outcome of processing one task
type TaskResult struct {
	TaskID string
	// Processed is true when the task was marked in the ledger
	Processed  bool
	Downloaded int
	Failed     int
	Skipped    int
	Bytes      int64
	// Err leaves the task unprocessed so the next run retries it
	Err error
}

// Summary is reported at the end of a run
type Summary struct {
	RunID          string
	TotalTasks     int
	RemainingTasks int
	ProcessedTasks int
	Downloaded     int
	Failed         int
	Skipped        int
	TaskErrors     int
	Bytes          int64
	Duration       time.Duration
	// Interrupted is set when the context was cancelled before the run finished
	Interrupted bool
}

// unit is one list with the tasks the counting pass found in it
type unit struct {
	space clickup.Space
	list  clickup.List
	tasks []clickup.Task
}

// Options wires a Scraper's collaborators
type Options struct {
	TeamID     string
	API        API
	Storage    *storage.Manager
	Ledger     Ledger
	Downloader Downloader
	Pacer      ratelimit.Pacer
	Console    *ui.Console
	Logger     logger.Logger
	RunID      string
}

// Scraper orchestrates the walk of a workspace and the download of image attachments
type Scraper struct {
	teamID     string
	api        API
	walker     *walker.Walker
	storage    *storage.Manager
	ledger     Ledger
	downloader Downloader
	pacer      ratelimit.Pacer
	console    *ui.Console
	logger     logger.Logger
	runID      string
	phase      Phase
	start      time.Time
}

// New creates a Scraper from explicit collaborators
func New(opts Options) *Scraper {
	if opts.Pacer == nil {
		opts.Pacer = ratelimit.NoDelay{}
	}
	if opts.Console == nil {
		opts.Console = ui.Discard()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	log := opts.Logger.WithField("run_id", opts.RunID)

	return &Scraper{
		teamID:     opts.TeamID,
		api:        opts.API,
		walker:     walker.New(opts.API, opts.Pacer, log),
		storage:    opts.Storage,
		ledger:     opts.Ledger,
		downloader: opts.Downloader,
		pacer:      opts.Pacer,
		console:    opts.Console,
		logger:     log,
		runID:      opts.RunID,
		phase:      PhaseInit,
	}
}

// NewFromConfig builds the API client, storage, ledger and download engine from configuration
func NewFromConfig(cfg *config.Config, log logger.Logger, console *ui.Console) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	client := NewClient(cfg, log)

	storageManager, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	resume := NewLedger(cfg, log)

	engine := downloader.NewEngine(downloader.Options{
		Fetcher:   client,
		Store:     storageManager,
		Recorder:  resume,
		ChunkSize: cfg.Download.ChunkSize,
		Logger:    log,
	})

	return New(Options{
		TeamID:     cfg.ClickUp.TeamID,
		API:        client,
		Storage:    storageManager,
		Ledger:     resume,
		Downloader: engine,
		Pacer:      ratelimit.NewFixedDelay(cfg.RateLimit.Delay),
		Console:    console,
		Logger:     log,
	}), nil
}

// NewClient creates a ClickUp client from configuration
func NewClient(cfg *config.Config, log logger.Logger) *clickup.Client {
	return clickup.New(clickup.Options{
		Token:           cfg.ClickUp.Token,
		TeamID:          cfg.ClickUp.TeamID,
		BaseURL:         cfg.ClickUp.APIURL,
		Timeout:         cfg.ClickUp.RequestTimeout,
		DownloadTimeout: cfg.Download.Timeout,
		Ceiling:         ratelimit.NewCeiling(cfg.RateLimit.RequestsPerMinute),
		Logger:          log,
	})
}

// NewLedger opens the resume ledger under the configured output directory
func NewLedger(cfg *config.Config, log logger.Logger) *ledger.Ledger {
	return ledger.New(ledger.Options{
		Root:                cfg.Output.BaseDirectory,
		MetadataFile:        cfg.Output.MetadataFile,
		ProcessedTasksFile:  cfg.Output.ProcessedTasksFile,
		FailedDownloadsFile: cfg.Output.FailedDownloadsFile,
		Logger:              log,
	})
}

// RunID identifies this run in logs
func (s *Scraper) RunID() string {
	return s.runID
}

// Phase returns the current stage of the run
func (s *Scraper) Phase() Phase {
	return s.phase
}

func (s *Scraper) enter(p Phase) {
	s.phase = p
	s.logger.DebugWithFields("Entering phase", map[string]interface{}{
		"phase": p.String(),
	})
}

// Run walks the workspace and downloads every image attachment of every
// task not yet processed. Only fatal problems (output directory, space
// listing) are returned as errors; everything else is counted in the Summary.
// Cancelling ctx stops between units of work and still yields a Summary.
func (s *Scraper) Run(ctx context.Context) (summary Summary, err error) {
	s.start = time.Now()
	summary.RunID = s.runID
	defer func() {
		summary.Duration = time.Since(s.start)
	}()

	// Init
	s.enter(PhaseInit)
	if err := s.storage.EnsureOutputDir(); err != nil {
		return summary, err
	}
	processed := s.ledger.ProcessedTasks()

	s.console.PrintBanner()
	s.console.PrintInfo("Output directory", s.storage.GetOutputDir())
	s.console.PrintInfo("Previously processed tasks", fmt.Sprintf("%d", len(processed)))

	s.logger.InfoWithFields("Starting fetch", map[string]interface{}{
		"team_id":         s.teamID,
		"output_dir":      s.storage.GetOutputDir(),
		"processed_tasks": len(processed),
	})

	// Counting
	s.enter(PhaseCounting)
	units, err := s.count(ctx)
	if err != nil {
		if ctx.Err() != nil {
			summary.Interrupted = true
			s.finish(&summary)
			return summary, nil
		}
		return summary, err
	}

	for _, u := range units {
		summary.TotalTasks += len(u.tasks)
		summary.RemainingTasks += len(pending(u.tasks, processed))
	}
	s.console.PrintCheck(fmt.Sprintf("Found %d total tasks (%d remaining to process)", summary.TotalTasks, summary.RemainingTasks))
	if ctx.Err() != nil {
		summary.Interrupted = true
		s.finish(&summary)
		return summary, nil
	}

	// Processing
	s.enter(PhaseProcessing)
	tracker := ui.NewStatusTracker(summary.RemainingTasks)
	summary.Interrupted = !s.process(ctx, units, processed, tracker, &summary)

	s.finish(&summary)
	return summary, nil
}

// count materializes every (space, list, tasks) tuple. Only a failure to
// list spaces is returned; list-level failures are logged and skipped.
func (s *Scraper) count(ctx context.Context) ([]unit, error) {
	s.console.PrintStatus("Fetching spaces...")
	spaces, err := s.walker.Spaces(ctx, s.teamID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list spaces")
		return nil, err
	}
	s.console.PrintCheck(fmt.Sprintf("Found %d space(s)", len(spaces)))

	s.console.PrintStatus("Counting tasks...")
	var units []unit
	for _, space := range spaces {
		lists, err := s.walker.ListListsInSpace(ctx, space.ID)
		if err != nil {
			if ctx.Err() != nil {
				return units, ctx.Err()
			}
			s.logger.WithError(err).WarnWithFields("Skipping space, failed to list its lists", map[string]interface{}{
				"space_id":   space.ID,
				"space_name": space.Name,
			})
			s.console.PrintWarning(fmt.Sprintf("Skipping space %s", space.Name), err)
			continue
		}

		for _, list := range lists {
			tasks, err := s.walker.CollectTasks(ctx, list.ID)
			if err != nil {
				if ctx.Err() != nil {
					return units, ctx.Err()
				}
				s.logger.WithError(err).WarnWithFields("Failed to read all tasks of list", map[string]interface{}{
					"space_name": space.Name,
					"list_id":    list.ID,
					"list_name":  list.Name,
					"read":       len(tasks),
				})
				s.console.PrintWarning(fmt.Sprintf("Could not read all tasks of %s/%s", space.Name, list.Name), err)
			}
			units = append(units, unit{space: space, list: list, tasks: tasks})
		}
	}
	return units, nil
}

// process handles every pending task. It returns false if ctx was cancelled.
func (s *Scraper) process(ctx context.Context, units []unit, processed map[string]struct{}, tracker *ui.StatusTracker, summary *Summary) bool {
	for _, u := range units {
		remaining := pending(u.tasks, processed)
		if len(remaining) == 0 {
			continue
		}

		label := fmt.Sprintf("%s/%s", u.space.Name, u.list.Name)
		s.logger.InfoWithFields("Processing list", map[string]interface{}{
			"space_name": u.space.Name,
			"list_id":    u.list.ID,
			"list_name":  u.list.Name,
			"tasks":      len(remaining),
		})

		for i, task := range remaining {
			if ctx.Err() != nil {
				return false
			}

			tracker.TaskDone()
			s.console.PrintProgress(tracker, fmt.Sprintf("%s - Task %d/%d", label, i+1, len(remaining)))

			result := s.ProcessTask(ctx, u.space, u.list, task)
			tracker.Record(result.Downloaded, result.Failed, result.Skipped)
			summary.Downloaded += result.Downloaded
			summary.Failed += result.Failed
			summary.Skipped += result.Skipped
			summary.Bytes += result.Bytes

			switch {
			case result.Err != nil && ctx.Err() != nil:
				return false
			case result.Err != nil:
				summary.TaskErrors++
				s.console.PrintError(fmt.Sprintf("  Error processing task %s", task.ID), result.Err)
				s.logger.WithError(result.Err).WarnWithFields("Task left unprocessed", map[string]interface{}{
					"task_id": task.ID,
					"list_id": u.list.ID,
				})
			case result.Processed:
				summary.ProcessedTasks++
			}

			if err := s.pacer.Pause(ctx); err != nil {
				return false
			}
		}
	}
	return true
}

// ProcessTask fetches a task's detail and downloads its image attachments
// into <output>/<space>/<list>/. The task is marked processed only if the
// detail fetch and every attachment evaluation completed, even when some
// downloads failed.
func (s *Scraper) ProcessTask(ctx context.Context, space clickup.Space, list clickup.List, task clickup.Task) TaskResult {
	result := TaskResult{TaskID: task.ID}

	detail, err := s.api.Task(ctx, task.ID)
	if err != nil {
		result.Err = fmt.Errorf("failed to fetch task %s: %w", task.ID, err)
		return result
	}

	for _, att := range detail.Attachments {
		if !att.IsImage() {
			continue
		}
		if att.URL == "" {
			result.Err = fmt.Errorf("attachment %q of task %s has no url", att.ID, task.ID)
			return result
		}

		name := att.FileName()
		if name == "" {
			name = att.ID
		}
		dest := s.storage.DestinationPath(space.Name, list.Name, name)

		if s.ledger.IsDuplicate(dest, att.URL, 0) {
			result.Skipped++
			s.console.PrintDetail("Skipping duplicate: " + name)
			continue
		}

		s.console.PrintDetail("Downloading: " + name)
		dl := s.downloader.Download(ctx, att.URL, dest)
		if dl.Interrupted {
			result.Err = dl.Err
			return result
		}
		if dl.OK() {
			result.Downloaded++
			result.Bytes += dl.Size
		} else {
			result.Failed++
			s.console.PrintError("  Failed to download: " + name)
		}

		if err := s.pacer.Pause(ctx); err != nil {
			result.Err = err
			return result
		}
	}

	if err := s.ledger.MarkTaskProcessed(task.ID); err != nil {
		result.Err = fmt.Errorf("failed to mark task %s processed: %w", task.ID, err)
		return result
	}
	result.Processed = true
	return result
}

// finish moves to Done and reports the summary
func (s *Scraper) finish(summary *Summary) {
	s.enter(PhaseDone)
	summary.Duration = time.Since(s.start)

	fields := map[string]interface{}{
		"total_tasks":     summary.TotalTasks,
		"remaining_tasks": summary.RemainingTasks,
		"processed_tasks": summary.ProcessedTasks,
		"downloaded":      summary.Downloaded,
		"failed":          summary.Failed,
		"skipped":         summary.Skipped,
		"task_errors":     summary.TaskErrors,
		"bytes":           summary.Bytes,
		"interrupted":     summary.Interrupted,
		"duration":        summary.Duration,
	}
	s.logger.InfoWithFields("Fetch finished", fields)

	if summary.Interrupted {
		s.console.PrintWarning("Interrupted; progress so far is saved and the next run resumes from here")
	} else {
		s.console.PrintSuccess("✓ Complete!")
	}
	s.console.PrintInfo("Downloaded", fmt.Sprintf("%d images (%s)", summary.Downloaded, humanize.Bytes(uint64(summary.Bytes))))
	if summary.Skipped > 0 {
		s.console.PrintInfo("Skipped duplicates", fmt.Sprintf("%d", summary.Skipped))
	}
	if summary.Failed > 0 {
		s.console.PrintError(fmt.Sprintf("Failed downloads: %d (see %s)", summary.Failed, ledger.DefaultFailedDownloadsFile))
	}
	if summary.TaskErrors > 0 {
		s.console.PrintWarning(fmt.Sprintf("Tasks left for the next run: %d", summary.TaskErrors))
	}
	s.console.PrintInfo("Saved to", s.storage.GetOutputDir())
	s.console.PrintInfo("Elapsed", summary.Duration.Round(time.Second).String())
}

// pending filters out tasks already in the processed set
func pending(tasks []clickup.Task, processed map[string]struct{}) []clickup.Task {
	var out []clickup.Task
	for _, t := range tasks {
		if _, done := processed[t.ID]; !done {
			out = append(out, t)
		}
	}
	return out
}
