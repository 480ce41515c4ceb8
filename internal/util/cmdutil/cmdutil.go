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

// Package cmdutil contains helpers shared by the canon commands.
package cmdutil

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const StackTraceOnErrors = "CANON_STACK_TRACE_ON_ERRORS"

// StackOnError if true, will print a stack trace on failure.
var StackOnError bool

// FixDocs replaces instances of old with new in the docs for c.
func FixDocs(old, new string, c *cobra.Command) {
	c.Use = strings.ReplaceAll(c.Use, old, new)
	c.Short = strings.ReplaceAll(c.Short, old, new)
	c.Long = strings.ReplaceAll(c.Long, old, new)
	c.Example = strings.ReplaceAll(c.Example, old, new)
}

// PrintErrorStacktrace returns true if a stack trace should be printed
// alongside error messages.
func PrintErrorStacktrace() bool {
	e := os.Getenv(StackTraceOnErrors)
	return StackOnError || e == "true" || e == "1"
}

// ExitError carries a non-zero process exit code through cobra. Used when a
// run completes but must not report success, for example a sync that hit
// conflicts or per-path errors.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
