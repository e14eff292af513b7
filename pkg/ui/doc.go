// Package ui prints run progress for humans.
//
// Console writes plain lines with optional ANSI colors; colors switch off
// automatically when output is not a terminal or NO_COLOR is set.
// StatusTracker counts tasks and downloads for the progress line and the
// end-of-run summary.
package ui
