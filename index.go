// index.go: Shared credential index with lock-free snapshot reads
//
// The index has exactly one writer, the aggregation unit of a Session.
// Writers serialize on a mutex and publish an immutable slice header
// through an atomic pointer, so readers never take a lock and never
// observe a partially appended entry.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// Index is an ordered collection of entries shared between the session
// writer and any number of readers. Only read methods are exported.
type Index struct {
	mu       sync.Mutex
	entries  []Entry // writer-owned, may carry spare capacity
	snapshot atomic.Pointer[[]Entry]
	version  atomic.Uint64
}

// newIndex returns an empty index ready for publication.
func newIndex() *Index {
	idx := &Index{}
	empty := make([]Entry, 0)
	idx.snapshot.Store(&empty)
	return idx
}

// NewIndex returns a read-only index holding entries, for one-shot use
// with the search functions outside a Session.
func NewIndex(entries []Entry) *Index {
	idx := &Index{entries: append([]Entry(nil), entries...)}
	n := len(idx.entries)
	published := idx.entries[:n:n]
	idx.snapshot.Store(&published)
	return idx
}

// view returns the current published slice. It must not be modified.
func (idx *Index) view() []Entry {
	if idx == nil {
		return nil
	}
	return *idx.snapshot.Load()
}

// Len returns the number of entries in the current snapshot.
func (idx *Index) Len() int {
	return len(idx.view())
}

// Version increases by one on every change to the index.
func (idx *Index) Version() uint64 {
	if idx == nil {
		return 0
	}
	return idx.version.Load()
}

// Snapshot returns a copy of the entries in index order.
func (idx *Index) Snapshot() []Entry {
	view := idx.view()
	out := make([]Entry, len(view))
	copy(out, view)
	return out
}

// Lookup returns the first entry whose name equals name exactly.
func (idx *Index) Lookup(name string) (Entry, bool) {
	for _, e := range idx.view() {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Search returns the entries whose name contains query, ignoring case.
func (idx *Index) Search(query string) []Entry {
	return Search(idx, query)
}

// append adds e at the end of the index and publishes the new snapshot.
// Published snapshots are capped at their length, so writing into the
// spare capacity never touches memory a reader can see.
func (idx *Index) append(e Entry) {
	idx.mu.Lock()
	idx.entries = append(idx.entries, e)
	n := len(idx.entries)
	published := idx.entries[:n:n]
	idx.snapshot.Store(&published)
	idx.version.Add(1)
	idx.mu.Unlock()
}

// remove drops every entry stored at location or below it when location
// is a directory. It reports whether anything was removed.
func (idx *Index) remove(location string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	dirPrefix := strings.TrimSuffix(location, string(os.PathSeparator)) + string(os.PathSeparator)
	kept := make([]Entry, 0, cap(idx.entries))
	for _, e := range idx.entries {
		if e.Location != location && !strings.HasPrefix(e.Location, dirPrefix) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(idx.entries) {
		return false
	}

	// Fresh backing array: old snapshots stay valid for their readers.
	idx.entries = kept
	n := len(kept)
	published := kept[:n:n]
	idx.snapshot.Store(&published)
	idx.version.Add(1)
	return true
}
