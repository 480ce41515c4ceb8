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

// Package cmdsync contains the sync command.
package cmdsync

import (
	"context"
	"fmt"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/cache"
	"github.com/canondev/canon/internal/config"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/printer"
	"github.com/canondev/canon/internal/remote"
	"github.com/canondev/canon/internal/sync"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/canondev/canon/internal/util/pathutil"
	"github.com/spf13/cobra"
)

const shortDocs = "Fetch the collection at the configured ref and update the target directory"
const longDocs = `canon sync [TARGET_DIR] [flags]

Fetches the tenets and bindings offered by the upstream collection at the
configured ref and writes them into the target directory. Files without
local modifications are created or updated; locally modified files are
preserved and reported. A path where both sides changed is reported as a
conflict and left untouched unless --force is given, in which case the
remote content wins.

Args:
  TARGET_DIR:
    The consumer directory to sync into. Defaults to the current directory.
`
const examples = `  # sync the current directory against the configured upstream
  canon sync

  # sync a specific directory at a pinned tag with an extra category
  canon sync ./docs/canon --ref v2.1.0 --category go

  # let the remote win all conflicts and apply upstream deletions
  canon sync --force
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent, version string) *Runner {
	r := &Runner{
		ctx:     ctx,
		version: version,
	}
	c := &cobra.Command{
		Use:        "sync [TARGET_DIR]",
		Args:       cobra.MaximumNArgs(1),
		Short:      shortDocs,
		Long:       longDocs,
		Example:    examples,
		RunE:       r.runE,
		PreRunE:    r.preRunE,
		SuggestFor: []string{"update", "pull", "fetch"},
	}
	cmdutil.FixDocs("canon", parent, c)
	r.Command = c
	c.Flags().StringVar(&r.repo, "repo", "",
		"uri of the upstream collection repository; overrides the configured value")
	c.Flags().StringVar(&r.ref, "ref", "",
		"upstream ref (tag, branch or commit) to sync against; overrides the configured value")
	c.Flags().StringSliceVar(&r.categories, "category", nil,
		"binding category to sync in addition to tenets and core bindings; repeatable")
	c.Flags().BoolVar(&r.force, "force", false,
		"overwrite local modifications, resolve conflicts in favor of the remote "+
			"and delete files the upstream retracted")
	c.Flags().BoolVar(&r.dryRun, "dry-run", false,
		"compute and print the plan without writing anything")
	c.Flags().IntVar(&r.workers, "workers", 0,
		"number of concurrent fetch-and-write workers; 0 picks a default")
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
	dryRun     bool
	workers    int
	output     string
	verbose    bool

	cfg *config.Sync
}

func (r *Runner) preRunE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdsync.preRunE"
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
		r.force, r.dryRun, r.workers)
	if err != nil {
		return errors.E(op, err)
	}
	r.cfg = cfg
	return nil
}

func (r *Runner) runE(c *cobra.Command, _ []string) error {
	const op errors.Op = "cmdsync.runE"

	if !r.cfg.DryRun {
		lock, err := baseline.Acquire(r.cfg.TargetDir)
		if err != nil {
			return errors.E(op, err)
		}
		defer lock.Release()
	}

	src := remote.NewGitSource(r.cfg.Repo, r.version)
	defer src.Close()

	p, base, err := sync.Planner{Config: r.cfg, Resolver: src}.BuildPlan(r.ctx)
	if err != nil {
		return errors.E(op, err)
	}

	var report *sync.Report
	if r.cfg.DryRun {
		report = sync.Preview(p)
	} else {
		store, err := cache.NewDefaultStore()
		if err != nil {
			return errors.E(op, err)
		}
		report, err = sync.Command{
			TargetDir: r.cfg.TargetDir,
			SourceRef: r.cfg.Ref,
			Plan:      p,
			Cache:     store,
			Fetcher:   src,
			Baseline:  base,
			Workers:   r.cfg.Workers,
		}.Run(r.ctx)
		if err != nil {
			return errors.E(op, err)
		}
	}

	pr := printer.FromContextOrDie(r.ctx)
	if r.output == "json" {
		if err := report.RenderJSON(pr.OutStream()); err != nil {
			return errors.E(op, err)
		}
	} else {
		report.RenderTable(pr.OutStream(), r.verbose)
	}

	if code := report.ExitCode(); code != 0 {
		return &cmdutil.ExitError{Code: code, Err: fmt.Errorf(
			"sync finished with %d conflicts and %d errors",
			report.Counts.Conflicted, len(report.Errors))}
	}
	return nil
}
