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

// Package printer defines utilities to display canon CLI output.
package printer

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/canondev/canon/internal/types"
)

// Printer defines capabilities to display content in the canon CLI.
// It abstracts away printing output in the CLI so the UX can evolve
// independently of the sync machinery.
type Printer interface {
	Printf(format string, args ...interface{})
	OptPrintf(opt *Options, format string, args ...interface{})
	OutStream() io.Writer
	ErrStream() io.Writer
}

// Options are optional options for printer
type Options struct {
	// TargetPath is the unique path to the target directory.
	TargetPath types.UniquePath
}

// NewOpt returns a pointer to new options
func NewOpt() *Options {
	return &Options{}
}

// Target sets the target directory unique path in options.
func (opt *Options) Target(p types.UniquePath) *Options {
	opt.TargetPath = p
	return opt
}

// New returns an instance of Printer.
func New(outStream, errStream io.Writer) Printer {
	if outStream == nil {
		outStream = os.Stdout
	}
	if errStream == nil {
		errStream = os.Stderr
	}
	return &printer{
		outStream: outStream,
		errStream: errStream,
	}
}

// printer implements the default Printer used in the canon codebase.
type printer struct {
	outStream io.Writer
	errStream io.Writer
}

// The key type is unexported to prevent collisions with context keys defined
// in other packages.
type contextKey int

// printerKey is the context key for the printer. Its value of zero is
// arbitrary.
const printerKey contextKey = 0

// OutStream returns the stdout stream. Callers print command output here,
// never error/debug logs.
func (pr *printer) OutStream() io.Writer {
	return pr.outStream
}

// ErrStream returns the stderr stream. Callers print progress and
// error/debug output here.
func (pr *printer) ErrStream() io.Writer {
	return pr.errStream
}

// Printf is the wrapper over fmt.Printf that prints to the stderr stream.
func (pr *printer) Printf(format string, args ...interface{}) {
	fmt.Fprintf(pr.errStream, format, args...)
}

// OptPrintf is the wrapper over fmt.Printf that decorates the output
// according to opt, printed to the stderr stream.
func (pr *printer) OptPrintf(opt *Options, format string, args ...interface{}) {
	if opt == nil {
		fmt.Fprintf(pr.errStream, format, args...)
		return
	}
	if !opt.TargetPath.Empty() {
		// try to print the relative path of the target if we can,
		// else use the abs path
		relPath, err := opt.TargetPath.RelativePath()
		if err != nil {
			relPath = string(opt.TargetPath)
		}
		format = fmt.Sprintf("Target %q: ", relPath) + format
	}
	fmt.Fprintf(pr.errStream, format, args...)
}

// FromContextOrDie returns the printer instance associated with the context.
func FromContextOrDie(ctx context.Context) Printer {
	pr, ok := ctx.Value(printerKey).(Printer)
	if ok {
		return pr
	}
	panic("printer missing in context")
}

// WithContext creates a new context from the given parent context
// by setting the printer instance.
func WithContext(ctx context.Context, pr Printer) context.Context {
	return context.WithValue(ctx, printerKey, pr)
}
