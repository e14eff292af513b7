package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"cufetch/internal/clickuptest"
	"cufetch/internal/downloader"
	"cufetch/pkg/clickup"
	"cufetch/pkg/ledger"
	"cufetch/pkg/logger"
	"cufetch/pkg/ratelimit"
	"cufetch/pkg/storage"
	"cufetch/pkg/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teamID = "900"

type harness struct {
	server *clickuptest.Server
	root   string
	ledger *ledger.Ledger
	pacer  *ratelimit.Counter
	out    *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		server: clickuptest.NewServer(t),
		root:   filepath.Join(t.TempDir(), "images_download"),
		pacer:  &ratelimit.Counter{},
		out:    &bytes.Buffer{},
	}
}

// scraper builds a fresh scraper over the same server and output directory
func (h *harness) scraper(t *testing.T) *Scraper {
	t.Helper()
	store, err := storage.NewManager(h.root)
	require.NoError(t, err)

	h.ledger = ledger.New(ledger.Options{Root: h.root, Logger: logger.NewNopLogger()})
	client := h.server.Client(teamID)

	return New(Options{
		TeamID:  teamID,
		API:     client,
		Storage: store,
		Ledger:  h.ledger,
		Downloader: downloader.NewEngine(downloader.Options{
			Fetcher:  client,
			Store:    store,
			Recorder: h.ledger,
			Logger:   logger.NewNopLogger(),
		}),
		Pacer:   h.pacer,
		Console: ui.NewConsole(h.out),
		Logger:  logger.NewNopLogger(),
		RunID:   "test-run",
	})
}

func image(h *harness, id, title string, body string) clickup.Attachment {
	return clickup.Attachment{
		ID:       id,
		Title:    title,
		MimeType: "image/png",
		URL:      h.server.AddFile(id+".png", []byte(body)),
		Size:     clickup.Size(len(body)),
	}
}

// twoSpaces sets up: space A with list L1 holding T1 (one PNG) and T2 (one
// PDF); space B with list L2 holding T3 (one JPEG)
func twoSpaces(h *harness) {
	h.server.AddSpace(teamID, clickup.Space{ID: "A", Name: "Alpha"})
	h.server.AddSpace(teamID, clickup.Space{ID: "B", Name: "Beta"})
	h.server.AddList("A", clickup.List{ID: "L1", Name: "Inbox"})
	h.server.AddFolder("B", clickup.Folder{ID: "F1", Name: "Q1", Lists: []clickup.List{{ID: "L2", Name: "Designs"}}})

	h.server.SetTaskPages("L1", []clickup.Task{{ID: "T1"}, {ID: "T2"}})
	h.server.SetTaskPages("L2", []clickup.Task{{ID: "T3"}})

	h.server.SetTask(clickup.Task{ID: "T1", Attachments: []clickup.Attachment{image(h, "a1", "x.png", "PNGBYTES")}})
	h.server.SetTask(clickup.Task{ID: "T2", Attachments: []clickup.Attachment{{
		ID: "a2", Title: "brief.pdf", MimeType: "application/pdf", URL: h.server.AddFile("a2.pdf", []byte("PDF")),
	}}})
	jpeg := image(h, "a3", "", "JPEGBYTES")
	jpeg.Filename = "y.jpg"
	jpeg.MimeType = "image/jpeg"
	h.server.SetTask(clickup.Task{ID: "T3", Attachments: []clickup.Attachment{jpeg}})
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestRunTwoSpaces(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTasks)
	assert.Equal(t, 3, summary.RemainingTasks)
	assert.Equal(t, 3, summary.ProcessedTasks)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.TaskErrors)
	assert.Equal(t, int64(len("PNGBYTES")+len("JPEGBYTES")), summary.Bytes)
	assert.False(t, summary.Interrupted)
	assert.Equal(t, "test-run", summary.RunID)

	assert.Equal(t, "PNGBYTES", string(readFile(t, filepath.Join(h.root, "Alpha", "Inbox", "x.png"))))
	assert.Equal(t, "JPEGBYTES", string(readFile(t, filepath.Join(h.root, "Beta", "Designs", "y.jpg"))))
	_, err = os.Stat(filepath.Join(h.root, "Alpha", "Inbox", "brief.pdf"))
	assert.True(t, os.IsNotExist(err), "non-images are not downloaded")

	assert.Len(t, h.ledger.ProcessedTasks(), 3)
	metadata := h.ledger.Metadata()
	assert.Len(t, metadata, 2)
	assert.Contains(t, metadata, "Alpha/Inbox/x.png")
	assert.Contains(t, metadata, "Beta/Designs/y.jpg")
	assert.Empty(t, h.ledger.Failures())

	assert.Contains(t, h.out.String(), "Found 3 total tasks (3 remaining to process)")
	// The progress line before T3 carries the outcomes of T1 and T2
	assert.Contains(t, h.out.String(), "3/3 Beta/Designs - Task 1/1 (1 downloaded, 0 failed, 0 skipped")
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	_, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	ledgerFiles := []string{ledger.DefaultMetadataFile, ledger.DefaultProcessedTasksFile}
	before := map[string][]byte{}
	for _, name := range ledgerFiles {
		before[name] = readFile(t, filepath.Join(h.root, name))
	}
	h.server.ResetRequests()

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTasks)
	assert.Equal(t, 0, summary.RemainingTasks)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, 0, summary.ProcessedTasks)
	assert.Equal(t, 0, h.server.CountRequests("/task/"), "no task detail is fetched for processed tasks")
	assert.Equal(t, 0, h.server.CountRequests("/files/"))

	for _, name := range ledgerFiles {
		assert.Equal(t, before[name], readFile(t, filepath.Join(h.root, name)), name)
	}
	_, err = os.Stat(filepath.Join(h.root, ledger.DefaultFailedDownloadsFile))
	assert.True(t, os.IsNotExist(err))
}

func TestRunResumesAfterPartialProgress(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	s := h.scraper(t)
	require.NoError(t, h.ledger.MarkTaskProcessed("T1"))

	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.RemainingTasks)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 0, h.server.CountRequests("/task/T1"))
	assert.Equal(t, 1, h.server.CountRequests("/task/T3"))
	_, err = os.Stat(filepath.Join(h.root, "Alpha", "Inbox", "x.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSkipsDuplicatesOfUnprocessedTasks(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	_, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	// Forget the processed set but keep files and metadata
	require.NoError(t, os.Remove(filepath.Join(h.root, ledger.DefaultProcessedTasksFile)))
	h.server.ResetRequests()

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 3, summary.ProcessedTasks)
	assert.Equal(t, 0, h.server.CountRequests("/files/"))
}

func TestRunPartialFailureIsolation(t *testing.T) {
	h := newHarness(t)
	h.server.AddSpace(teamID, clickup.Space{ID: "A", Name: "Alpha"})
	h.server.AddList("A", clickup.List{ID: "L1", Name: "Inbox"})
	h.server.SetTaskPages("L1", []clickup.Task{{ID: "T1"}})

	good := image(h, "good", "good.png", "GOOD")
	bad := clickup.Attachment{ID: "bad", Title: "bad.png", MimeType: "image/png", URL: h.server.FileURL("missing.png")}
	h.server.SetTask(clickup.Task{ID: "T1", Attachments: []clickup.Attachment{bad, good}})

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.ProcessedTasks, "the task is processed even though one download failed")
	assert.True(t, h.ledger.IsTaskProcessed("T1"))

	failures := h.ledger.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "Alpha/Inbox/bad.png", failures[0].Dest)
	_, err = os.Stat(filepath.Join(h.root, "Alpha", "Inbox", "bad.png"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, "GOOD", string(readFile(t, filepath.Join(h.root, "Alpha", "Inbox", "good.png"))))
}

func TestRunTaskDetailErrorLeavesTaskUnprocessed(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)
	h.server.Fail("/task/T1", http.StatusInternalServerError)

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TaskErrors)
	assert.Equal(t, 2, summary.ProcessedTasks)
	assert.Equal(t, 1, summary.Downloaded)
	assert.False(t, h.ledger.IsTaskProcessed("T1"))
	assert.True(t, h.ledger.IsTaskProcessed("T3"))

	// The next run retries only T1
	h.server.Fail("/task/T1", 0)
	h.server.ResetRequests()
	summary, err = h.scraper(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.RemainingTasks)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, 1, h.server.CountRequests("/task/"))
}

func TestRunSpaceListingFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.server.Fail("/team/"+teamID+"/space", http.StatusUnauthorized)

	s := h.scraper(t)
	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list spaces")
	assert.Equal(t, PhaseCounting, s.Phase())
}

func TestRunListCountingFailureContinues(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)
	h.server.Fail("/list/L1/task", http.StatusBadGateway)

	s := h.scraper(t)
	summary, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalTasks)
	assert.Equal(t, 1, summary.Downloaded)
	assert.True(t, h.ledger.IsTaskProcessed("T3"))
	assert.Equal(t, PhaseDone, s.Phase())
}

func TestRunCollisionLastWriteWins(t *testing.T) {
	h := newHarness(t)
	h.server.AddSpace(teamID, clickup.Space{ID: "A", Name: "Alpha"})
	h.server.AddList("A", clickup.List{ID: "L1", Name: "Inbox"})
	h.server.SetTaskPages("L1", []clickup.Task{{ID: "T1"}, {ID: "T2"}})

	first := image(h, "first", "shot.png", "FIRST")
	second := image(h, "second", "shot.png", "SECOND!")
	h.server.SetTask(clickup.Task{ID: "T1", Attachments: []clickup.Attachment{first}})
	h.server.SetTask(clickup.Task{ID: "T2", Attachments: []clickup.Attachment{second}})

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, "SECOND!", string(readFile(t, filepath.Join(h.root, "Alpha", "Inbox", "shot.png"))))
	assert.Equal(t, second.URL, h.ledger.Metadata()["Alpha/Inbox/shot.png"].URL)
}

func TestRunPacesDownloadsAndTasks(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	_, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)

	// 2 download attempts and 3 tasks; single-page lists never pause between pages
	assert.Equal(t, 5, h.pacer.Pauses)
}

func TestRunPaginatedList(t *testing.T) {
	h := newHarness(t)
	h.server.AddSpace(teamID, clickup.Space{ID: "A", Name: "Alpha"})
	h.server.AddList("A", clickup.List{ID: "L1", Name: "Inbox"})
	h.server.SetTaskPages("L1",
		[]clickup.Task{{ID: "T1"}, {ID: "T2"}},
		[]clickup.Task{{ID: "T3"}},
	)
	for _, id := range []string{"T1", "T2", "T3"} {
		h.server.SetTask(clickup.Task{ID: id})
	}

	summary, err := h.scraper(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalTasks)
	assert.Equal(t, 3, summary.ProcessedTasks)
}

type cancellingPacer struct {
	cancel context.CancelFunc
}

func (p cancellingPacer) Pause(ctx context.Context) error {
	p.cancel()
	return ctx.Err()
}

func TestRunCancellationStopsBetweenUnits(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := h.scraper(t)
	s.pacer = cancellingPacer{cancel: cancel}

	summary, err := s.Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Downloaded)
	assert.Equal(t, PhaseDone, s.Phase())

	// T1 was interrupted after its download, before being marked
	assert.False(t, h.ledger.IsTaskProcessed("T1"))
	assert.Contains(t, h.out.String(), "Interrupted")
}

func TestProcessTaskMissingURL(t *testing.T) {
	h := newHarness(t)
	h.server.SetTask(clickup.Task{ID: "T1", Attachments: []clickup.Attachment{{ID: "x", Title: "x.png", MimeType: "image/png"}}})

	result := h.scraper(t).ProcessTask(context.Background(), clickup.Space{Name: "S"}, clickup.List{Name: "L"}, clickup.Task{ID: "T1"})
	require.Error(t, result.Err)
	assert.False(t, result.Processed)
	assert.False(t, h.ledger.IsTaskProcessed("T1"))
}

func TestProcessTaskIgnoresMalformedAttachmentSize(t *testing.T) {
	h := newHarness(t)
	url := h.server.AddFile("a1.png", []byte("PNGBYTES"))
	h.server.SetTaskJSON("T1", fmt.Sprintf(`{"id":"T1","attachments":[
		{"id":"n1","title":"notes.txt","mimetype":"text/plain","url":%q,"size":"unknown"},
		{"id":"a1","title":"x.png","mimetype":"image/png","url":%q,"size":{"value":8}}
	]}`, h.server.FileURL("notes.txt"), url))

	result := h.scraper(t).ProcessTask(context.Background(), clickup.Space{Name: "S"}, clickup.List{Name: "L"}, clickup.Task{ID: "T1"})
	require.NoError(t, result.Err)
	assert.True(t, result.Processed)
	assert.Equal(t, 1, result.Downloaded)
	assert.Equal(t, []byte("PNGBYTES"), readFile(t, filepath.Join(h.root, "S", "L", "x.png")))
	assert.True(t, h.ledger.IsTaskProcessed("T1"))
}

// cancellingFetcher cancels the run as soon as a download starts
type cancellingFetcher struct {
	downloader.Fetcher
	cancel context.CancelFunc
}

func (f cancellingFetcher) Open(ctx context.Context, url string) (*http.Response, error) {
	f.cancel()
	return f.Fetcher.Open(ctx, url)
}

func TestRunInterruptedDownloadIsNotAFailure(t *testing.T) {
	h := newHarness(t)
	twoSpaces(h)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := h.scraper(t)
	s.downloader = downloader.NewEngine(downloader.Options{
		Fetcher:  cancellingFetcher{Fetcher: h.server.Client(teamID), cancel: cancel},
		Store:    s.storage,
		Recorder: h.ledger,
		Logger:   logger.NewNopLogger(),
	})

	summary, err := s.Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Downloaded)
	assert.Zero(t, summary.TaskErrors)

	assert.Empty(t, h.ledger.Failures())
	assert.False(t, h.ledger.IsTaskProcessed("T1"))
	assert.NoFileExists(t, filepath.Join(h.root, "Alpha", "Inbox", "x.png"))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "init", PhaseInit.String())
	assert.Equal(t, "counting", PhaseCounting.String())
	assert.Equal(t, "processing", PhaseProcessing.String())
	assert.Equal(t, "done", PhaseDone.String())
}
