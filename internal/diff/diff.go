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

// Package diff classifies every tracked path by a three-way comparison of
// the local file digest, the baseline digest and the remote manifest
// digest. This is a byte-hash analogue of a three-way merge base
// comparison; there is no line-level merging, classification operates at
// whole-file granularity only.
package diff

import (
	"os"
	"path/filepath"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/manifest"
	"github.com/canondev/canon/internal/types"
)

// Classification is the outcome of the three-way comparison for one path.
type Classification string

const (
	// Unmodified means local, baseline and remote all agree, or the local
	// edit happens to match the new remote content exactly (the baseline is
	// advanced in that case).
	Unmodified Classification = "Unmodified"

	// LocallyModified means the local copy diverged from the baseline while
	// the remote did not. Never overwritten without force.
	LocallyModified Classification = "LocallyModified"

	// RemoteUpdated means the remote changed and no local edits exist.
	// Safe to overwrite.
	RemoteUpdated Classification = "RemoteUpdated"

	// Conflicted means both sides changed divergently since the baseline.
	Conflicted Classification = "Conflicted"

	// New means the remote offers a path that was never synced before.
	New Classification = "New"

	// Removed means the path has a baseline but the remote no longer offers
	// it under the requested categories. Deletion is never automatic.
	Removed Classification = "Removed"

	// Untracked means a file exists locally with no baseline and no remote
	// entry. Such paths are invisible to the planner; the local scan only
	// considers paths named by the baseline or the remote manifest, so this
	// only surfaces when a local tree is handed to Classify explicitly.
	Untracked Classification = "Untracked"
)

// Result is the classification of one path together with the three digests
// that produced it. An empty digest means absent.
type Result struct {
	Class    Classification
	Local    manifest.Digest
	Baseline manifest.Digest
	Remote   manifest.Digest
	Category string
}

// LocalTree maps paths to the digest of the on-disk bytes at scan time.
// Derived, never stored; recomputed every run.
type LocalTree map[string]manifest.Digest

// ScanLocal hashes the on-disk bytes for every provided path below
// targetDir. Paths that do not exist on disk are simply absent from the
// returned tree.
func ScanLocal(targetDir string, paths []string) (LocalTree, error) {
	const op errors.Op = "diff.ScanLocal"
	tree := make(LocalTree, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(targetDir, filepath.FromSlash(p)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.E(op, errors.IO, types.UniquePath(targetDir), err)
		}
		tree[p] = manifest.Sum(data)
	}
	return tree, nil
}

// Classify performs the three-way comparison for the union of all paths
// seen in the local tree, the baseline manifest and the remote manifest,
// and produces exactly one Result per path.
func Classify(local LocalTree, base *baseline.Manifest, remote manifest.Manifest) map[string]Result {
	union := make(map[string]struct{})
	for p := range local {
		union[p] = struct{}{}
	}
	for _, p := range base.Paths() {
		union[p] = struct{}{}
	}
	for p := range remote {
		union[p] = struct{}{}
	}

	results := make(map[string]Result, len(union))
	for p := range union {
		l := local[p]
		b := base.Digest(p)
		entry, inRemote := remote[p]
		var r manifest.Digest
		category := entry.Category
		if inRemote {
			r = entry.Digest
		} else if be, ok := base.Get(p); ok {
			// The remote dropped the path; the baseline still knows which
			// category it was synced from.
			category = be.Category
		}
		results[p] = Result{
			Class:    classify(l, b, r),
			Local:    l,
			Baseline: b,
			Remote:   r,
			Category: category,
		}
	}
	return results
}

// classify applies the rule table. An absent digest is empty and compares
// unequal to every present digest.
func classify(l, b, r manifest.Digest) Classification {
	switch {
	case b.Empty() && r.Empty():
		// Only reachable for local-only paths.
		return Untracked
	case r.Empty():
		// Remote dropped the file; local copy, modified or not, is flagged
		// for a removal decision.
		return Removed
	case b.Empty():
		// Never seen before; a write is always safe, no conflict possible.
		return New
	case l == b && b == r:
		return Unmodified
	case l == b:
		return RemoteUpdated
	case r == b:
		return LocallyModified
	case l == r:
		// The local edit matches the new remote content exactly; treated as
		// already synced, the baseline is advanced.
		return Unmodified
	default:
		return Conflicted
	}
}
