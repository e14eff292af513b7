// Package scraper drives a fetch run.
//
// A run moves through four phases. Init makes sure the output directory
// exists and loads the processed task set. Counting walks every space and
// list to count total and remaining tasks. Processing visits each list
// with unprocessed tasks, fetches every task's detail and downloads its
// image attachments unless the ledger says they are already on disk.
// Done reports a Summary.
//
// Errors are recovered at the smallest unit: a failed download is counted
// and logged to the failure ledger, a failed task detail leaves the task
// for the next run, and a list whose tasks cannot be read is skipped. Only
// a failure to list the workspace's spaces ends the run early.
//
// Usage:
//
//	s, err := scraper.NewFromConfig(cfg, log, ui.NewConsole(os.Stdout))
//	if err != nil {
//	    return err
//	}
//	summary, err := s.Run(ctx)
package scraper
