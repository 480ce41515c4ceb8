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

// Package cmdplan contains the plan command.
package cmdplan

import (
	"context"
	"fmt"

	"github.com/canondev/canon/internal/config"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/printer"
	"github.com/canondev/canon/internal/remote"
	"github.com/canondev/canon/internal/sync"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/canondev/canon/internal/util/pathutil"
	"github.com/spf13/cobra"
)

const shortDocs = "Show what a sync would do without writing anything"
const longDocs = `canon plan [TARGET_DIR] [flags]

Resolves the upstream manifest, compares it against the local files and the
baseline, and prints the resulting per-path actions. Nothing is written; the
baseline is not advanced. The exit code is 3 when the plan contains
conflicts so CI jobs can gate on a clean state.

Args:
  TARGET_DIR:
    The consumer directory to inspect. Defaults to the current directory.
`
const examples = `  # show the pending changes for the current directory
  canon plan

  # show what a forced sync would do, as machine-readable JSON
  canon plan --force --output json
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent, version string) *Runner {
	r := &Runner{
		ctx:     ctx,
		version: version,
	}
	c := &cobra.Command{
		Use:        "plan [TARGET_DIR]",
		Args:       cobra.MaximumNArgs(1),
		Short:      shortDocs,
		Long:       longDocs,
		Example:    examples,
		RunE:       r.runE,
		PreRunE:    r.preRunE,
		SuggestFor: []string{"status", "diff", "preview"},
	}
	cmdutil.FixDocs("canon", parent, c)
	r.Command = c
	c.Flags().StringVar(&r.repo, "repo", "",
		"uri of the upstream collection repository; overrides the configured value")
	c.Flags().StringVar(&r.ref, "ref", "",
		"upstream ref (tag, branch or commit) to plan against; overrides the configured value")
	c.Flags().StringSliceVar(&r.categories, "category", nil,
		"binding category to include in addition to tenets and core bindings; repeatable")
	c.Flags().BoolVar(&r.force, "force", false,
		"plan as a forced sync would: conflicts become writes and retractions become deletions")
	c.Flags().StringVar(&r.output, "output", "table",
		"output format, one of: table, json")
	c.Flags().BoolVarP(&r.verbose, "verbose", "v", false,
		"also list unmodified paths in the output")
	return r
}

func NewCommand(ctx context.Context, parent, version string) *cobra.Command {
	return NewRunner(ctx, parent, version).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
	version string

	repo       string
	ref        string
	categories []string
	force      bool
	output     string
	verbose    bool

	cfg *config.Sync
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdplan.preRunE"
	if r.output != "table" && r.output != "json" {
		return errors.E(op, errors.InvalidParam,
			fmt.Errorf("invalid output format %q, must be table or json", r.output))
	}

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	absPath, _, err := pathutil.ResolveAbsAndRelPaths(dir)
	if err != nil {
		return errors.E(op, err)
	}

	file, err := config.Load(absPath)
	if err != nil {
		return errors.E(op, err)
	}
	cfg, err := config.Resolve(absPath, file, r.repo, r.ref, r.categories,
		r.force, true, 0)
	if err != nil {
		return errors.E(op, err)
	}
	r.cfg = cfg
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdplan.runE"

	src := remote.NewGitSource(r.cfg.Repo, r.version)
	defer src.Close()

	p, _, err := sync.Planner{Config: r.cfg, Resolver: src}.BuildPlan(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}
	report := sync.Preview(p)

	pr := printer.FromContextOrDie(r.ctx)
	if r.output == "json" {
		if err := report.RenderJSON(pr.OutStream()); err != nil {
			return errors.E(op, err)
		}
	} else {
		report.RenderTable(pr.OutStream(), r.verbose)
	}

	if report.HasConflicts() {
		return &cmdutil.ExitError{Code: 3, Err: fmt.Errorf(
			"%d paths are in conflict", report.Counts.Conflicted)}
	}
	return nil
}
