// aggregator.go: Sole writer of the shared index
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arcanum

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/agilira/go-errors"
)

type itemKind uint8

const (
	itemEntry itemKind = iota
	itemRemoval
	itemScanDone
)

// intakeItem travels from the scanner and the watcher to the aggregator.
type intakeItem struct {
	kind  itemKind
	entry Entry
}

// Signal is a payload-free notice that the index changed. Signals are
// level-triggered: a slow consumer may see one signal for several changes
// and must re-read the index to learn what happened.
type Signal uint8

const (
	// SignalNewEntry reports that at least one entry was appended.
	SignalNewEntry Signal = iota + 1
	// SignalEntryRemoved reports that entries were removed. Only sent when
	// removal tracking is enabled.
	SignalEntryRemoved
)

func (s Signal) String() string {
	switch s {
	case SignalNewEntry:
		return "NewEntry"
	case SignalEntryRemoved:
		return "EntryRemoved"
	default:
		return "Unknown"
	}
}

// aggregator drains the intake in FIFO order and applies each item to the
// index, then offers a signal without ever blocking on the consumer.
type aggregator struct {
	idx     *Index
	signals chan Signal // capacity 1, a queued signal already covers later changes
	ready   chan struct{}
	once    sync.Once
	audit   *AuditLogger

	indexed  atomic.Int64
	removed  atomic.Int64
	sent     atomic.Int64
	dropped  atomic.Int64
	scanDone atomic.Bool
}

func newAggregator(idx *Index, audit *AuditLogger) *aggregator {
	return &aggregator{
		idx:     idx,
		signals: make(chan Signal, 1),
		ready:   make(chan struct{}),
		audit:   audit,
	}
}

// run consumes the intake until ctx is cancelled. A closed intake while
// ctx is still live means every producer is gone, which ends the session.
func (a *aggregator) run(ctx context.Context, intake <-chan intakeItem) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-intake:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New(ErrCodeIntakeClosed, "all index producers stopped while the session was active")
			}
			a.apply(item)
		}
	}
}

func (a *aggregator) apply(item intakeItem) {
	switch item.kind {
	case itemEntry:
		a.idx.append(item.entry)
		a.indexed.Add(1)
		a.audit.Log(AuditInfo, "entry_indexed", "aggregator", item.entry.Location, nil, item.entry.Name, nil)
		a.signal(SignalNewEntry)

	case itemRemoval:
		if a.idx.remove(item.entry.Location) {
			a.removed.Add(1)
			a.audit.Log(AuditInfo, "entry_removed", "aggregator", item.entry.Location, nil, nil, nil)
			a.signal(SignalEntryRemoved)
		}

	case itemScanDone:
		a.once.Do(func() {
			a.scanDone.Store(true)
			close(a.ready)
		})
	}
}

// signal offers s to the consumer. A full buffer or an absent listener
// drops the signal.
func (a *aggregator) signal(s Signal) {
	select {
	case a.signals <- s:
		a.sent.Add(1)
	default:
		a.dropped.Add(1)
	}
}
