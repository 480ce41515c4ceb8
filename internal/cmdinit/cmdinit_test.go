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

package cmdinit_test

import (
	"testing"

	"github.com/canondev/canon/internal/cmdinit"
	"github.com/canondev/canon/internal/config"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/printer/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesConfig(t *testing.T) {
	dir := t.TempDir()

	cmd := cmdinit.NewCommand(fake.CtxWithNilPrinter(), "canon")
	cmd.SetArgs([]string{dir,
		"--repo", "https://github.com/example/canon-docs.git",
		"--ref", "v1.0.0",
		"--category", "go",
		"--category", "security",
	})
	require.NoError(t, cmd.Execute())

	f, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/example/canon-docs.git", f.Repo)
	assert.Equal(t, "v1.0.0", f.Ref)
	assert.Equal(t, []string{"go", "security"}, f.Categories)
}

func TestInit_DefaultRef(t *testing.T) {
	dir := t.TempDir()

	cmd := cmdinit.NewCommand(fake.CtxWithNilPrinter(), "canon")
	cmd.SetArgs([]string{dir, "--repo", "https://example.com/r.git"})
	require.NoError(t, cmd.Execute())

	f, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "main", f.Ref)
}

func TestInit_FailsWhenAlreadyConfigured(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, config.Save(dir, &config.File{Repo: "r", Ref: "main"}))

	cmd := cmdinit.NewCommand(fake.CtxWithNilPrinter(), "canon")
	cmd.SetArgs([]string{dir, "--repo", "https://example.com/r.git"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, errors.Exist, errors.UnwrapKind(err))
}

func TestInit_RequiresRepoFlag(t *testing.T) {
	cmd := cmdinit.NewCommand(fake.CtxWithNilPrinter(), "canon")
	cmd.SetArgs([]string{t.TempDir()})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	assert.Error(t, cmd.Execute())
}
