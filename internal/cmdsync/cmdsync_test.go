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

package cmdsync_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/cmdsync"
	"github.com/canondev/canon/internal/config"
	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/printer/fake"
	"github.com/canondev/canon/internal/testutil"
	"github.com/canondev/canon/internal/util/cmdutil"
	"github.com/canondev/canon/internal/util/pathutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*testutil.UpstreamRepo, string) {
	t.Helper()
	t.Setenv(pathutil.CacheDirEnv, t.TempDir())
	repo := testutil.NewUpstreamRepo(t, map[string]string{
		"tenets/simplicity.md":        "# Simplicity\n",
		"bindings/core/no-secrets.md": "# No secrets\n",
	})
	target := t.TempDir()
	require.NoError(t, config.Save(target, &config.File{
		Repo: repo.URI(),
		Ref:  "main",
	}))
	return repo, target
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cmdsync.NewCommand(fake.CtxWithPrinter(&out, &out), "canon", "1.0.0")
	cmd.SetArgs(args)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()
	return out.String(), err
}

func TestSync_EndToEnd(t *testing.T) {
	_, target := setup(t)

	out, err := execute(t, target)
	require.NoError(t, err)
	assert.Contains(t, out, "tenets/simplicity.md")

	data, err := os.ReadFile(filepath.Join(target, "tenets", "simplicity.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Simplicity\n", string(data))

	m, err := baseline.Load(target)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	// A second run changes nothing.
	_, err = execute(t, target)
	require.NoError(t, err)
}

func TestSync_ConflictExitCode(t *testing.T) {
	repo, target := setup(t)

	_, err := execute(t, target)
	require.NoError(t, err)

	testutil.WriteFiles(t, target, map[string]string{
		"tenets/simplicity.md": "my local take\n",
	})
	repo.UpdateDocs(map[string]string{
		"tenets/simplicity.md": "# Simplicity v2\n",
	}, "update tenet")

	_, err = execute(t, target)
	require.Error(t, err)
	var exitErr *cmdutil.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)

	// The local file is untouched.
	data, err := os.ReadFile(filepath.Join(target, "tenets", "simplicity.md"))
	require.NoError(t, err)
	assert.Equal(t, "my local take\n", string(data))
}

func TestSync_ForceResolvesConflict(t *testing.T) {
	repo, target := setup(t)

	_, err := execute(t, target)
	require.NoError(t, err)

	testutil.WriteFiles(t, target, map[string]string{
		"tenets/simplicity.md": "my local take\n",
	})
	repo.UpdateDocs(map[string]string{
		"tenets/simplicity.md": "# Simplicity v2\n",
	}, "update tenet")

	_, err = execute(t, target, "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(target, "tenets", "simplicity.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Simplicity v2\n", string(data))
}

func TestSync_DryRunWritesNothing(t *testing.T) {
	_, target := setup(t)

	out, err := execute(t, target, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "tenets/simplicity.md")

	_, err = os.Stat(filepath.Join(target, "tenets"))
	assert.True(t, os.IsNotExist(err))

	m, err := baseline.Load(target)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}

func TestSync_JSONOutput(t *testing.T) {
	_, target := setup(t)

	out, err := execute(t, target, "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"written": 2`)
}

func TestSync_InvalidOutputFormat(t *testing.T) {
	_, target := setup(t)
	_, err := execute(t, target, "--output", "xml")
	require.Error(t, err)
	assert.Equal(t, errors.InvalidParam, errors.UnwrapKind(err))
}

func TestSync_UnconfiguredDirectory(t *testing.T) {
	t.Setenv(pathutil.CacheDirEnv, t.TempDir())
	_, err := execute(t, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.Config, errors.UnwrapKind(err))
}
