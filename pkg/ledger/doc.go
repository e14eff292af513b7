// Package ledger provides the resume state of a fetch run.
//
// Three JSON files live under the output root:
//   - .download_metadata.json maps a file's path relative to the root to
//     the URL it came from, its size and when it was written
//   - .processed_tasks.json lists task ids whose attachments were all
//     evaluated; membership only grows
//   - .failed_downloads.json is an append-only log of failed downloads,
//     kept for humans and never consulted when deciding what to skip
//
// A missing or unreadable file behaves as an empty store. Files are
// rewritten in full through a temporary file and rename. There is no
// atomicity across the three files.
package ledger
