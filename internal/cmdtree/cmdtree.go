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

// Package cmdtree contains the tree command.
package cmdtree

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/diff"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/printer"
	"github.com/canondev/canon/internal/types"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/canondev/canon/internal/util/pathutil"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
)

const shortDocs = "Display the tracked files of a target directory as a tree"
const longDocs = `canon tree [TARGET_DIR]

Prints the files tracked by the baseline manifest as a tree. Files whose
on-disk bytes no longer match the baseline are marked as modified, files
that were deleted locally as missing. The upstream is not contacted.

Args:
  TARGET_DIR:
    The consumer directory to display. Defaults to the current directory.
`

// NewRunner returns a command runner.
func NewRunner(ctx context.Context, parent string) *Runner {
	r := &Runner{ctx: ctx}
	c := &cobra.Command{
		Use:        "tree [TARGET_DIR]",
		Args:       cobra.MaximumNArgs(1),
		Short:      shortDocs,
		Long:       longDocs,
		RunE:       r.runE,
		SuggestFor: []string{"ls", "list"},
	}
	cmdutil.FixDocs("canon", parent, c)
	r.Command = c
	return r
}

func NewCommand(ctx context.Context, parent string) *cobra.Command {
	return NewRunner(ctx, parent).Command
}

// Runner contains the run function.
type Runner struct {
	ctx     context.Context
	Command *cobra.Command
}

func (r *Runner) runE(_ *cobra.Command, args []string) error {
	const op errors.Op = "cmdtree.runE"

	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	absPath, relPath, err := pathutil.ResolveAbsAndRelPaths(dir)
	if err != nil {
		return errors.E(op, err)
	}

	base, err := baseline.Load(absPath)
	if err != nil {
		return errors.E(op, err)
	}

	local, err := diff.ScanLocal(absPath, base.Paths())
	if err != nil {
		return errors.E(op, types.UniquePath(absPath), err)
	}

	tree := treeprint.New()
	tree.SetValue(relPath)
	branches := map[string]treeprint.Tree{"": tree}

	for _, p := range base.Paths() {
		parent := branch(tree, branches, path.Dir(p))
		entry, _ := base.Get(p)
		label := fmt.Sprintf("%s @%s", path.Base(p), entry.SourceRef)
		switch d, onDisk := local[p]; {
		case !onDisk:
			label += " (missing)"
		case string(d) != entry.Digest:
			label += " (modified)"
		}
		parent.AddNode(label)
	}

	pr := printer.FromContextOrDie(r.ctx)
	fmt.Fprint(pr.OutStream(), tree.String())
	if base.Len() == 0 {
		pr.Printf("no tracked files, run \"canon sync\" first\n")
	}
	return nil
}

// branch returns the tree node for a directory, creating ancestors as
// needed. Directories are added in sorted path order since the caller
// iterates sorted paths.
func branch(root treeprint.Tree, branches map[string]treeprint.Tree, dir string) treeprint.Tree {
	if dir == "." {
		dir = ""
	}
	if b, ok := branches[dir]; ok {
		return b
	}
	parent := branch(root, branches, parentDir(dir))
	b := parent.AddBranch(path.Base(dir))
	branches[dir] = b
	return b
}

func parentDir(dir string) string {
	idx := strings.LastIndex(dir, "/")
	if idx < 0 {
		return ""
	}
	return dir[:idx]
}
