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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/errors/resolver"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/canondev/canon/run"
	goerrors "github.com/go-errors/errors"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(runMain())
}

// runMain does the real work, but returns an exit code rather than
// calling os.Exit directly so deferred functions run.
func runMain() int {
	ctx := context.Background()

	cmd := run.GetMain(ctx)
	err := cmd.Execute()
	if err != nil {
		return handleErr(cmd, err)
	}
	return 0
}

// handleErr takes care of printing an error message for a given error.
func handleErr(cmd *cobra.Command, err error) int {
	// A completed run that must not report success carries its exit code.
	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", exitErr.Error())
		return exitErr.Code
	}

	if cmdutil.PrintErrorStacktrace() {
		var wrapped *goerrors.Error
		if errors.As(err, &wrapped) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s", wrapped.Stack())
		}
	}

	// Use one of the error resolvers to provide a comprehensible message.
	if re, resolved := resolver.ResolveError(err); resolved {
		if re.Message != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", re.Message)
		}
		return re.ExitCode
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	return 1
}
