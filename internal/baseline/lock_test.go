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

package baseline_test

import (
	"testing"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := baseline.Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// Reacquirable after release.
	l2, err := baseline.Acquire(dir)
	require.NoError(t, err)
	assert.NoError(t, l2.Release())
}

// Two flocks on the same path conflict even within one process, so a
// second writer can be simulated without forking.
func TestAcquire_HeldLockFailsFast(t *testing.T) {
	dir := t.TempDir()

	l, err := baseline.Acquire(dir)
	require.NoError(t, err)

	_, err = baseline.Acquire(dir)
	require.Error(t, err)
	var held *baseline.LockHeldError
	assert.True(t, errors.As(err, &held))
	assert.Equal(t, errors.Config, errors.UnwrapKind(err))

	// Releasing the first writer unblocks the directory again.
	require.NoError(t, l.Release())
	l2, err := baseline.Acquire(dir)
	require.NoError(t, err)
	assert.NoError(t, l2.Release())
}

func TestRelease_NilLockIsSafe(t *testing.T) {
	var l *baseline.Lock
	assert.NoError(t, l.Release())
}
