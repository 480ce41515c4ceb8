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

// Package plan turns the per-path classifications of a diff into a concrete
// ordered action plan honoring the force and dry-run flags.
package plan

import (
	"sort"

	"github.com/canondev/canon/internal/diff"
)

// Action is the planned operation for one path.
type Action string

const (
	// Write replaces (or creates) the file with the remote content and
	// advances the baseline.
	Write Action = "Write"

	// Skip leaves the file untouched. Skips are still reported so a sync
	// never silently hides a locally modified or removal-pending path.
	Skip Action = "Skip"

	// ReportConflict leaves the file untouched and surfaces the conflict
	// for explicit user action.
	ReportConflict Action = "ReportConflict"

	// Delete removes the file and its baseline entry. Only planned under
	// force; upstream retractions are never acted on automatically.
	Delete Action = "Delete"
)

// Options control plan construction.
type Options struct {
	// Force overwrites local edits, lets the remote win conflicts and
	// performs deletions for upstream-retracted paths. Destructive.
	Force bool

	// DryRun marks the plan as compute-only. The planner produces the same
	// plan either way; not handing it to the executor is the caller's
	// responsibility.
	DryRun bool
}

// Item is one planned action.
type Item struct {
	Path   string
	Action Action
	Result diff.Result
}

// Plan is an ordered list of actions, sorted by path for deterministic
// output and execution.
type Plan struct {
	Items   []Item
	Options Options
}

// Build constructs the plan for the provided classifications.
func Build(results map[string]diff.Result, opts Options) *Plan {
	paths := make([]string, 0, len(results))
	for p := range results {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	p := &Plan{Options: opts}
	for _, path := range paths {
		res := results[path]
		p.Items = append(p.Items, Item{
			Path:   path,
			Action: actionFor(res, opts),
			Result: res,
		})
	}
	return p
}

func actionFor(res diff.Result, opts Options) Action {
	switch res.Class {
	case diff.New, diff.RemoteUpdated:
		return Write
	case diff.Unmodified:
		if res.Baseline != res.Remote {
			// Local bytes already match the new remote content; the write
			// only advances the baseline.
			return Write
		}
		return Skip
	case diff.LocallyModified:
		if opts.Force {
			return Write
		}
		return Skip
	case diff.Conflicted:
		if opts.Force {
			// Remote wins.
			return Write
		}
		return ReportConflict
	case diff.Removed:
		if opts.Force {
			return Delete
		}
		// Reported for visibility; the file stays on disk.
		return Skip
	default:
		return Skip
	}
}

// Writes returns the number of planned Write actions.
func (p *Plan) Writes() int {
	n := 0
	for _, it := range p.Items {
		if it.Action == Write {
			n++
		}
	}
	return n
}

// Conflicts returns the number of planned ReportConflict actions.
func (p *Plan) Conflicts() int {
	n := 0
	for _, it := range p.Items {
		if it.Action == ReportConflict {
			n++
		}
	}
	return n
}
