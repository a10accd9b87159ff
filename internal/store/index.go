package store

import "sync"

// Index maps a content checksum to one on-disk path known to hold those
// bytes. It is derived state: rebuilt from the catalog at the start of each
// run and never persisted. Inserts are first-writer-wins so that a file is
// never "being copied for the first time" twice within one run.
type Index struct {
	mu    sync.Mutex
	paths map[string]string
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{paths: make(map[string]string)}
}

// Lookup returns the stored path for a checksum, if any.
func (ix *Index) Lookup(sum string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	path, ok := ix.paths[sum]
	return path, ok
}

// InsertIfAbsent records path as the holder of sum unless another path won
// first. It returns the winning path and whether this call inserted it.
func (ix *Index) InsertIfAbsent(sum, path string) (string, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if existing, ok := ix.paths[sum]; ok {
		return existing, false
	}
	ix.paths[sum] = path
	return path, true
}

// Drop removes the entry for sum if it points at path. Used when a stored
// path is discovered to be gone so later lookups don't chase it.
func (ix *Index) Drop(sum, path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.paths[sum] == path {
		delete(ix.paths, sum)
	}
}

// Len returns the number of distinct checksums known to the index.
func (ix *Index) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.paths)
}
