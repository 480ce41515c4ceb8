// Copyright 2025 The canon Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sync applies a plan against a target directory: it resolves
// bytes through the content cache, writes files atomically, and advances
// the baseline manifest.
package sync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/cache"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/plan"
	"github.com/canondev/canon/internal/printer"
	"github.com/canondev/canon/internal/types"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// DefaultWorkers bounds the fetch-and-write pool when the caller does not.
const DefaultWorkers = 4

// Command applies a plan. Fetch-and-write for distinct paths runs on a
// bounded worker pool since the paths are independent given the plan; all
// baseline mutations are serialized and committed as a single atomic save
// at the end of the run.
type Command struct {
	// TargetDir is the absolute path of the consumer directory.
	TargetDir string

	// SourceRef is the upstream ref being synced, recorded in baseline
	// entries.
	SourceRef string

	// Plan is the action plan to apply.
	Plan *plan.Plan

	// Cache is the shared content-addressed blob store.
	Cache *cache.Store

	// Fetcher provides bytes on cache miss.
	Fetcher manifest.BlobFetcher

	// Baseline is the loaded baseline manifest. It is mutated in memory
	// and saved once on completion.
	Baseline *baseline.Manifest

	// Workers bounds the worker pool. Zero means DefaultWorkers.
	Workers int
}

// Run applies the plan and returns the report. Per-path fetch and write
// failures are accumulated in the report without aborting the remaining
// paths; only fatal conditions (dry-run plan handed to the executor,
// context cancellation, failed baseline save) return an error.
func (c Command) Run(ctx context.Context) (*Report, error) {
	const op errors.Op = "sync.Run"
	if c.Plan.Options.DryRun {
		return nil, errors.E(op, errors.Internal,
			fmt.Errorf("refusing to execute a dry-run plan"))
	}
	pr := printer.FromContextOrDie(ctx)

	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	report := NewReport()
	var mu gosync.Mutex

	// Skip, conflict and pending-removal outcomes are known up front; record
	// them before any worker can touch the report. Delete items are recorded
	// by the deletion pass below.
	for _, item := range c.Plan.Items {
		if item.Action == plan.Write || item.Action == plan.Delete {
			continue
		}
		report.add(item)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, item := range c.Plan.Items {
		if item.Action != plan.Write {
			continue
		}
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			err := c.write(gctx, item)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.addError(item, err)
				return nil
			}
			c.Baseline.Upsert(item.Path, item.Result.Remote, c.SourceRef, item.Result.Category)
			report.addWritten(item)
			return nil
		})
	}

	// Deletions run after all writes complete; they only occur under
	// force and are few.
	if err := g.Wait(); err != nil {
		return nil, errors.E(op, types.UniquePath(c.TargetDir), err)
	}

	for _, item := range c.Plan.Items {
		if item.Action != plan.Delete {
			continue
		}
		if err := c.delete(item); err != nil {
			report.addError(item, err)
			continue
		}
		c.Baseline.Remove(item.Path)
		report.addDeleted(item)
	}

	if err := ctx.Err(); err != nil {
		// Leave the previous baseline in place; re-running converges.
		return nil, errors.E(op, types.UniquePath(c.TargetDir), err)
	}

	if err := baseline.Save(c.TargetDir, c.Baseline); err != nil {
		return nil, errors.E(op, err)
	}

	report.CacheStats = c.Cache.Stats()
	pr.OptPrintf(printer.NewOpt().Target(types.UniquePath(c.TargetDir)),
		"wrote %d, skipped %d, conflicts %d, deleted %d, errors %d\n",
		report.Counts.Written, report.Counts.Skipped, report.Counts.Conflicted,
		report.Counts.Deleted, len(report.Errors))
	return report, nil
}

// write resolves the bytes for one path through the cache and writes them
// atomically below the target directory.
func (c Command) write(ctx context.Context, item plan.Item) error {
	const op errors.Op = "sync.write"
	digest := item.Result.Remote

	// The on-disk bytes already match the remote content; only the baseline
	// needs to advance, no fetch or write required.
	if item.Result.Local == digest {
		return nil
	}

	data, ok, err := c.Cache.Get(digest)
	if err != nil {
		return errors.E(op, err)
	}
	if !ok {
		data, err = c.Fetcher.Fetch(ctx, c.SourceRef, item.Path)
		if err != nil {
			return errors.E(op, err)
		}
		if got := manifest.Sum(data); got != digest {
			return errors.E(op, errors.Fetch, fmt.Errorf(
				"digest mismatch for %s: manifest says %s, fetched %s",
				item.Path, digest.Short(), got.Short()))
		}
		// A failed cache write degrades to a pass-through: the bytes are
		// still usable for this write, so the failure is logged, not fatal.
		if err := c.Cache.Put(digest, data); err != nil {
			klog.Warningf("cache write for %s failed: %v", digest.Short(), err)
		}
	}

	dst := filepath.Join(c.TargetDir, filepath.FromSlash(item.Path))
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return errors.E(op, errors.IO, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".canon-*")
	if err != nil {
		return errors.E(op, errors.IO, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.E(op, errors.IO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.E(op, errors.IO, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return errors.E(op, errors.IO, err)
	}
	klog.V(2).Infof("wrote %s (%s)", item.Path, digest.Short())
	return nil
}

// delete removes one path from disk. A file already absent at delete time
// is not an error.
func (c Command) delete(item plan.Item) error {
	const op errors.Op = "sync.delete"
	dst := filepath.Join(c.TargetDir, filepath.FromSlash(item.Path))
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return errors.E(op, errors.IO, err)
	}
	return nil
}
