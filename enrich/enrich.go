// Package enrich drives the per-record pipeline, identify, fetch, merge,
// write back, over a set of selected items. Items are processed in
// fixed-size batches: everything within one batch runs concurrently and the
// next batch starts only after the previous one finished, which caps the
// number of outstanding network calls at the batch width.
package enrich

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bzuer/zoteroEhancer/fetch"
	"github.com/bzuer/zoteroEhancer/merge"
	"github.com/bzuer/zoteroEhancer/record"
)

// DefaultBatchSize is the batch width used when none is configured.
const DefaultBatchSize = 12

// Source is one external metadata source keyed by one identifier kind.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Eligible reports whether an item should be considered at all.
	Eligible(it record.Item) bool
	// Identify derives the lookup key, false when none can be derived.
	Identify(it record.Item) (string, bool)
	// Fetch performs one lookup; a nil payload means no data.
	Fetch(ctx context.Context, id string) (*fetch.Payload, error)
}

// RawSink receives every non-empty payload, e.g. for an audit log. Write
// must be safe for concurrent use.
type RawSink interface {
	Write(source, id string, p *fetch.Payload) error
}

// Result summarizes one enrichment run.
type Result struct {
	Selected int // items handed in
	Eligible int // items passing the source filter
	Updated  int // items actually modified and written back
	Failed   int // items whose write-back failed
}

// Summary renders the user-facing outcome of a run.
func (r *Result) Summary() string {
	if r.Eligible == 0 {
		return "No eligible items selected."
	}
	return fmt.Sprintf("It's ready. %d updated items.", r.Updated)
}

// Enricher runs the enrichment pipeline for one source.
type Enricher struct {
	Source    Source
	BatchSize int     // DefaultBatchSize when < 1
	Sink      RawSink // optional
}

// Run enriches the selected items. All per-item failures are contained
// within that item's pipeline; failed write-backs are surfaced through
// Result.Failed and the only error returned is context cancellation
// between batches.
func (e *Enricher) Run(ctx context.Context, items []record.Item) (*Result, error) {
	batchSize := e.BatchSize
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	res := &Result{Selected: len(items)}
	var eligible []record.Item
	for _, it := range items {
		if e.Source.Eligible(it) {
			eligible = append(eligible, it)
		}
	}
	res.Eligible = len(eligible)
	if len(eligible) == 0 {
		return res, nil
	}
	logger := log.WithFields(log.Fields{
		"source": e.Source.Name(),
		"run":    uuid.NewString(),
	})
	logger.Infof("enriching %d of %d selected items", len(eligible), len(items))
	var updated, failed atomic.Int64
	for _, batch := range partition(eligible, batchSize) {
		if err := ctx.Err(); err != nil {
			res.Updated, res.Failed = int(updated.Load()), int(failed.Load())
			return res, err
		}
		var wg sync.WaitGroup
		for _, it := range batch {
			wg.Add(1)
			go func(it record.Item) {
				defer wg.Done()
				switch e.process(ctx, logger, it) {
				case itemUpdated:
					updated.Add(1)
				case itemFailed:
					failed.Add(1)
				}
			}(it)
		}
		wg.Wait()
	}
	res.Updated, res.Failed = int(updated.Load()), int(failed.Load())
	return res, nil
}

// Per-item pipeline outcomes.
const (
	itemSkipped = iota
	itemUpdated
	itemFailed
)

// process runs one item through the pipeline. Fetch failures and empty
// results count as skipped; only a failed write-back counts as failed.
func (e *Enricher) process(ctx context.Context, logger *log.Entry, it record.Item) int {
	id, ok := e.Source.Identify(it)
	if !ok {
		// no derivable key, skipped silently
		return itemSkipped
	}
	p, err := e.Source.Fetch(ctx, id)
	if err != nil {
		logger.WithField("id", id).Warnf("fetch failed: %v", err)
		return itemSkipped
	}
	if p == nil {
		return itemSkipped
	}
	if e.Sink != nil {
		if err := e.Sink.Write(e.Source.Name(), id, p); err != nil {
			logger.WithField("id", id).Warnf("sink: %v", err)
		}
	}
	d := merge.Merge(it, p, id)
	if !d.Changed() {
		return itemSkipped
	}
	d.Apply(it)
	if err := it.SaveTx(); err != nil {
		logger.WithField("id", id).Errorf("save failed: %v", err)
		return itemFailed
	}
	return itemUpdated
}

// partition splits items into consecutive groups of at most size, preserving
// order within and across groups.
func partition(items []record.Item, size int) [][]record.Item {
	var groups [][]record.Item
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		groups = append(groups, items[start:end])
	}
	return groups
}
