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

package fake

import (
	"context"
	"io"

	"github.com/canondev/canon/internal/printer"
)

// NilPrinter implements the printer.Printer interface and just ignores
// all print calls.
type NilPrinter struct{}

func (np *NilPrinter) OptPrintf(*printer.Options, string, ...interface{}) {}

func (np *NilPrinter) Printf(string, ...interface{}) {}

func (np *NilPrinter) OutStream() io.Writer { return io.Discard }

func (np *NilPrinter) ErrStream() io.Writer { return io.Discard }

// CtxWithNilPrinter returns a new context with the NilPrinter added.
func CtxWithNilPrinter() context.Context {
	return printer.WithContext(context.Background(), &NilPrinter{})
}

// CtxWithPrinter returns a new context with a real printer writing to the
// provided streams.
func CtxWithPrinter(out, err io.Writer) context.Context {
	return printer.WithContext(context.Background(), printer.New(out, err))
}
