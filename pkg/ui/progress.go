package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// StatusTracker keeps track of task progress across a run
type StatusTracker struct {
	Total      int
	Done       int
	Downloaded int
	Failed     int
	Skipped    int
	StartTime  time.Time
}

// NewStatusTracker creates a tracker for total tasks
func NewStatusTracker(total int) *StatusTracker {
	return &StatusTracker{
		Total:     total,
		StartTime: time.Now(),
	}
}

// TaskDone advances the task counter
func (st *StatusTracker) TaskDone() {
	st.Done++
}

// Record adds the attachment outcomes of one task
func (st *StatusTracker) Record(downloaded, failed, skipped int) {
	st.Downloaded += downloaded
	st.Failed += failed
	st.Skipped += skipped
}

// Counts returns the attachment totals so far
func (st *StatusTracker) Counts() string {
	return fmt.Sprintf("%d downloaded, %d failed, %d skipped", st.Downloaded, st.Failed, st.Skipped)
}

// Bar returns a formatted progress bar
func (st *StatusTracker) Bar() string {
	filled := 0
	if st.Total > 0 {
		filled = st.Done * barWidth / st.Total
	}
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, barWidth-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.Done, st.Total)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetTaskRate returns the average number of tasks per minute
func (st *StatusTracker) GetTaskRate() float64 {
	elapsed := st.GetElapsedTime().Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Done) / elapsed
}

// PrintProgress prints the current progress line for a list
func (c *Console) PrintProgress(st *StatusTracker, label string) {
	fmt.Fprintf(c.out, "%s %s %s %s\n",
		c.Green("[TASKS]"),
		st.Bar(),
		c.Yellow(label),
		c.Dim(fmt.Sprintf("(%s, %.1f tasks/min)", st.Counts(), st.GetTaskRate())))
}
