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

package remote_test

import (
	"testing"

	"github.com/canondev/canon/internal/remote"
	"github.com/canondev/canon/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_MissingFileIsEmpty(t *testing.T) {
	c, err := remote.LoadCatalog(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, c.Categories)
	assert.NoError(t, c.Validate([]string{"anything"}, "0.1.0"))
}

func TestLoadCatalog_ParsesCategories(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		remote.CatalogFileName: `
categories:
- id: go
  description: Go-specific bindings
- id: security
minToolVersion: 0.2.0
`,
	})

	c, err := remote.LoadCatalog(dir)
	require.NoError(t, err)
	require.Len(t, c.Categories, 2)
	assert.Equal(t, "go", c.Categories[0].ID)
	assert.Equal(t, "0.2.0", c.MinToolVersion)
}

func TestLoadCatalog_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		remote.CatalogFileName: "categorys:\n- id: go\n",
	})

	_, err := remote.LoadCatalog(dir)
	assert.Error(t, err)
}

func TestValidate_UnknownCategory(t *testing.T) {
	c := &remote.Catalog{Categories: []remote.CatalogCategory{{ID: "go"}, {ID: "rust"}}}

	assert.NoError(t, c.Validate([]string{"go"}, "1.0.0"))
	assert.NoError(t, c.Validate(nil, "1.0.0"))

	err := c.Validate([]string{"go", "python"}, "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "python")
}

func TestValidate_MinToolVersion(t *testing.T) {
	c := &remote.Catalog{MinToolVersion: "1.2.0"}

	assert.NoError(t, c.Validate(nil, "1.2.0"))
	assert.NoError(t, c.Validate(nil, "2.0.0"))
	assert.Error(t, c.Validate(nil, "1.1.9"))

	// Dev builds and unversioned binaries skip the check.
	assert.NoError(t, c.Validate(nil, ""))
	assert.NoError(t, c.Validate(nil, "unknown"))
	assert.NoError(t, c.Validate(nil, "dev-build"))
}

func TestValidate_InvalidDeclaredMinimum(t *testing.T) {
	c := &remote.Catalog{MinToolVersion: "not-a-version"}
	assert.Error(t, c.Validate(nil, "1.0.0"))
}
