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

// Package run assembles the canon root command.
package run

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/canondev/canon/commands"
	"github.com/canondev/canon/internal/printer"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// Version is set at build time via -ldflags.
var Version = "unknown"

const cliShort = "canon distributes shared tenets and bindings into consumer repositories"
const cliLong = `canon keeps a directory in sync with a versioned collection of tenets and
binding documents published in an upstream git repository. It tracks what it
wrote so local modifications are detected and never silently overwritten.
`

// GetMain returns the canon root command.
func GetMain(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "canon",
		Short:        cliShort,
		Long:         cliLong,
		SilenceUsage: true,
		// We handle all errors in main after return from cobra so we can
		// adjust the error message coming from libraries
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cmd.Flags().GetBool("help")
			if err != nil {
				return err
			}
			if h {
				return cmd.Help()
			}
			return cmd.Usage()
		},
	}

	// expose the klog flags (-v in particular) on the root command
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	cmd.PersistentFlags().AddGoFlagSet(fs)

	// wire the global printer
	pr := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx = printer.WithContext(ctx, pr)

	cmd.InitDefaultHelpCmd()
	cmd.AddCommand(commands.GetCanonCommands(ctx, "canon", Version)...)

	// enable stack traces
	cmd.PersistentFlags().BoolVar(&cmdutil.StackOnError, "stack-trace", false,
		"Print a stack-trace on failure")

	if _, err := exec.LookPath("git"); err != nil {
		fmt.Fprintln(os.Stderr, "canon requires that `git` is installed and on the PATH")
		os.Exit(1)
	}

	cmd.AddCommand(versionCmd)
	hideFlags(cmd)
	return cmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of canon",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", Version)
	},
}

// hideFlags hides any cobra flags that are unlikely to be used by end
// users. The klog flag set stays available for debugging but only -v is
// worth advertising.
func hideFlags(cmd *cobra.Command) {
	hidden := map[string]bool{
		"stack-trace": true,
	}
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if hidden[f.Name] || (isKlogFlag(f.Name) && f.Name != "v") {
			f.Hidden = true
		}
	})
}

func isKlogFlag(name string) bool {
	switch name {
	case "add_dir_header", "alsologtostderr", "log_backtrace_at", "log_dir",
		"log_file", "log_file_max_size", "logtostderr", "one_output",
		"skip_headers", "skip_log_headers", "stderrthreshold", "vmodule":
		return true
	}
	return false
}
