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

package resolver_test

import (
	"fmt"
	"testing"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/errors/resolver"
	"github.com/canondev/canon/internal/gitutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveError_GitExec(t *testing.T) {
	err := errors.E(errors.Op("gitutil.run"), errors.Git, &gitutil.GitExecError{
		Type: gitutil.UnknownReference,
		Args: []string{"fetch", "origin", "v9.9.9"},
		Repo: "https://example.com/docs.git",
		Ref:  "v9.9.9",
		Err:  fmt.Errorf("exit status 128"),
	})

	res, ok := resolver.ResolveError(err)
	require.True(t, ok)
	assert.Contains(t, res.Message, "v9.9.9")
	assert.Contains(t, res.Message, "https://example.com/docs.git")
	assert.Equal(t, 1, res.ExitCode)
}

func TestResolveError_CorruptBaseline(t *testing.T) {
	err := errors.E(errors.Op("baseline.Load"), errors.Config,
		&baseline.CorruptManifestError{Path: "/repo/.canon/baseline.yaml", Err: fmt.Errorf("bad yaml")})

	res, ok := resolver.ResolveError(err)
	require.True(t, ok)
	assert.Contains(t, res.Message, "/repo/.canon/baseline.yaml")
	assert.Contains(t, res.Message, "local edits")
}

func TestResolveError_LockHeld(t *testing.T) {
	err := errors.E(errors.Op("baseline.Acquire"), errors.Config,
		&baseline.LockHeldError{TargetDir: "/repo", LockPath: "/repo/.canon/baseline.lock"})

	res, ok := resolver.ResolveError(err)
	require.True(t, ok)
	assert.Contains(t, res.Message, "/repo/.canon/baseline.lock")
}

func TestResolveError_ConfigKind(t *testing.T) {
	err := errors.E(errors.Op("config.Resolve"), errors.Config,
		fmt.Errorf("no upstream repo configured"))

	res, ok := resolver.ResolveError(err)
	require.True(t, ok)
	assert.Contains(t, res.Message, "no upstream repo configured")
}

func TestResolveError_UnknownErrorNotResolved(t *testing.T) {
	_, ok := resolver.ResolveError(fmt.Errorf("some random error"))
	assert.False(t, ok)
}
