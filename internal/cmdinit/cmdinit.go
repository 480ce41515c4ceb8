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

// Package cmdinit contains the init command.
package cmdinit

import (
	"context"
	"fmt"
	"os"

	"github.com/canondev/canon/internal/config"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/printer"
	"github.com/canondev/canon/internal/types"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/canondev/canon/internal/util/pathutil"
	"github.com/spf13/cobra"
)

const shortDocs = "Configure a directory as a consumer of an upstream collection"
const longDocs = `canon init [TARGET_DIR] --repo REPO_URI [flags]

Writes the sync configuration for the target directory so later sync and
plan invocations do not need flags. Nothing is fetched; run canon sync to
pull the collection.

Args:
  TARGET_DIR:
    The directory to configure. Defaults to the current directory.
`
const examples = `  # configure the current directory to track the main branch
  canon init --repo https://github.com/example/canon-docs.git

  # pin a tag and opt into the go bindings
  canon init ./docs/canon --repo https://github.com/example/canon-docs.git \
    --ref v2.1.0 --category go
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:     "init [TARGET_DIR] --repo REPO_URI",
		Args:    cobra.MaximumNArgs(1),
		Short:   shortDocs,
		Long:    longDocs,
		Example: examples,
		RunE:    r.runE,
	}
	cmdutil.FixDocs("canon", parent, c)
	r.Command = c
	c.Flags().StringVar(&r.repo, "repo", "",
		"uri of the upstream collection repository (required)")
	c.Flags().StringVar(&r.ref, "ref", "main",
		"upstream ref (tag, branch or commit) to sync against")
	c.Flags().StringSliceVar(&r.categories, "category", nil,
		"binding category to sync in addition to tenets and core bindings; repeatable")
	_ = c.MarkFlagRequired("repo")
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command

	repo       string
	ref        string
	categories []string
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdinit.runE"

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	absPath, _, err := pathutil.ResolveAbsAndRelPaths(dir)
	if err != nil {
		return errors.E(op, err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return errors.E(op, errors.Config, types.UniquePath(absPath),
			fmt.Errorf("target directory does not exist: %w", err))
	}
	if _, err := os.Stat(config.Path(absPath)); err == nil {
		return errors.E(op, errors.Exist, types.UniquePath(absPath),
			fmt.Errorf("directory is already configured, edit %s instead", config.Path(absPath)))
	}

	if err := config.Save(absPath, &config.File{
		Repo:       r.repo,
		Ref:        r.ref,
		Categories: r.categories,
	}); err != nil {
		return errors.E(op, types.UniquePath(absPath), err)
	}

	pr := printer.FromContextOrDie(r.ctx)
	pr.OptPrintf(printer.NewOpt().Target(types.UniquePath(absPath)),
		"configured to sync %s at %s, run \"canon sync\" to fetch the collection\n",
		r.repo, r.ref)
	return nil
}
