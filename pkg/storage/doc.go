// Package storage lays out downloaded attachments on disk.
//
// Files are stored as <output>/<space>/<list>/<title or filename>. Path
// separators inside any of those names are replaced with "_" so a name
// can never climb out of, or add levels to, its directory. Two attachments
// that map to the same path overwrite each other; the last write wins.
package storage
