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

package sync

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/canondev/canon/internal/cache"
	"github.com/canondev/canon/internal/diff"
	"github.com/canondev/canon/internal/plan"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Counts aggregates the outcome of a run.
type Counts struct {
	Written        int `json:"written"`
	Unmodified     int `json:"unmodified"`
	Skipped        int `json:"skipped"`
	Conflicted     int `json:"conflicted"`
	RemovedPending int `json:"removedPending"`
	Deleted        int `json:"deleted"`
}

// PathResult is the outcome for a single path, sufficient for the
// presentation layer to render without re-deriving any diff logic.
type PathResult struct {
	Path           string              `json:"path"`
	Category       string              `json:"category,omitempty"`
	Classification diff.Classification `json:"classification"`
	Action         plan.Action         `json:"action"`
	Error          string              `json:"error,omitempty"`
}

// Report is the sole output surface of a sync run.
type Report struct {
	Counts     Counts       `json:"counts"`
	Paths      []PathResult `json:"paths"`
	Errors     []PathResult `json:"errors,omitempty"`
	CacheStats cache.Stats  `json:"cacheStats"`
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{}
}

func (r *Report) addWritten(item plan.Item) {
	r.Counts.Written++
	r.appendPath(item, "")
}

func (r *Report) addDeleted(item plan.Item) {
	r.Counts.Deleted++
	r.appendPath(item, "")
}

func (r *Report) addError(item plan.Item, err error) {
	res := r.appendPath(item, err.Error())
	r.Errors = append(r.Errors, res)
}

// add records an item the executor will not touch.
func (r *Report) add(item plan.Item) {
	switch {
	case item.Action == plan.ReportConflict:
		r.Counts.Conflicted++
	case item.Result.Class == diff.Removed:
		r.Counts.RemovedPending++
	case item.Result.Class == diff.LocallyModified:
		r.Counts.Skipped++
	case item.Result.Class == diff.Unmodified:
		r.Counts.Unmodified++
	default:
		// Untracked paths are invisible to the report.
		return
	}
	r.appendPath(item, "")
}

func (r *Report) appendPath(item plan.Item, errMsg string) PathResult {
	res := PathResult{
		Path:           item.Path,
		Category:       item.Result.Category,
		Classification: item.Result.Class,
		Action:         item.Action,
		Error:          errMsg,
	}
	r.Paths = append(r.Paths, res)
	return res
}

// Preview builds the report a plan would produce without executing it.
// Write and Delete items are counted as if they had succeeded; used for
// dry runs and the plan command.
func Preview(p *plan.Plan) *Report {
	r := NewReport()
	for _, item := range p.Items {
		switch item.Action {
		case plan.Write:
			r.addWritten(item)
		case plan.Delete:
			r.addDeleted(item)
		default:
			r.add(item)
		}
	}
	return r
}

// HasErrors returns true if any per-path error was recorded.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasConflicts returns true if any path was left in conflict.
func (r *Report) HasConflicts() bool {
	return r.Counts.Conflicted > 0
}

// ExitCode maps the report to the process exit code. A run that
// encountered conflicts or per-path errors never reports success.
func (r *Report) ExitCode() int {
	if r.HasErrors() {
		return 2
	}
	if r.HasConflicts() {
		return 3
	}
	return 0
}

// sorted returns the path results ordered by path.
func (r *Report) sorted() []PathResult {
	paths := make([]PathResult, len(r.Paths))
	copy(paths, r.Paths)
	sort.Slice(paths, func(i, j int) bool { return paths[i].Path < paths[j].Path })
	return paths
}

// RenderTable writes the report as a human-readable table. Unmodified
// paths are elided unless verbose is set; a sync must surface what it
// changed, skipped or refused, not drown it.
func (r *Report) RenderTable(w io.Writer, verbose bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"PATH", "CATEGORY", "STATUS", "ACTION", "DETAIL"})
	for _, p := range r.sorted() {
		if !verbose && p.Classification == diff.Unmodified && p.Error == "" && p.Action == plan.Skip {
			continue
		}
		t.AppendRow(table.Row{p.Path, p.Category, p.Classification, p.Action, p.Error})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf(
		"%d written, %d unmodified, %d skipped, %d conflicts, %d removal pending, %d deleted",
		r.Counts.Written, r.Counts.Unmodified, r.Counts.Skipped,
		r.Counts.Conflicted, r.Counts.RemovedPending, r.Counts.Deleted)})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// RenderJSON writes the full report as machine-readable JSON.
func (r *Report) RenderJSON(w io.Writer) error {
	cp := *r
	cp.Paths = r.sorted()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&cp)
}
