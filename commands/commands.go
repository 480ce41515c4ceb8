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

package commands

import (
	"context"

	"github.com/canondev/canon/internal/cmdinit"
	"github.com/canondev/canon/internal/cmdplan"
	"github.com/canondev/canon/internal/cmdsync"
	"github.com/canondev/canon/internal/cmdtree"
	goerrors "github.com/go-errors/errors"
	"github.com/spf13/cobra"
)

// GetCanonCommands returns the set of canon commands to be registered.
func GetCanonCommands(ctx context.Context, name, version string) []*cobra.Command {
	c := []*cobra.Command{
		cmdinit.NewCommand(ctx, name),
		cmdsync.NewCommand(ctx, name, version),
		cmdplan.NewCommand(ctx, name, version),
		cmdtree.NewCommand(ctx, name),
	}

	// apply cross-cutting issues to commands
	NormalizeCommand(c...)
	return c
}

// NormalizeCommand will modify commands to be consistent, e.g. silencing
// errors so main can print the resolved message once, and annotating
// returned errors with a stack trace for --stack-trace.
func NormalizeCommand(c ...*cobra.Command) {
	for i := range c {
		cmd := c[i]
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		if runE := cmd.RunE; runE != nil {
			cmd.RunE = func(c *cobra.Command, args []string) error {
				if err := runE(c, args); err != nil {
					return goerrors.Wrap(err, 0)
				}
				return nil
			}
		}
		NormalizeCommand(cmd.Commands()...)
	}
}
