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

package baseline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/canondev/canon/internal/errors"
	"github.com/canondev/canon/internal/types"
	"github.com/gofrs/flock"
)

// LockFileName is the name of the lock file inside the meta dir.
const LockFileName = "baseline.lock"

// LockHeldError is returned when another process holds the baseline lock
// for the target directory.
type LockHeldError struct {
	TargetDir string
	LockPath  string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("baseline for %s is locked by another process (%s)", e.TargetDir, e.LockPath)
}

// Lock guards a target directory's baseline against concurrent writers.
// The baseline is scoped per target directory and is not designed for
// concurrent access; syncs fail fast instead of risking silent corruption.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the baseline lock for the target directory without
// blocking. It returns a LockHeldError (wrapped as a Config-kind fatal
// error) when the lock is already held.
func Acquire(targetDir string) (*Lock, error) {
	const op errors.Op = "baseline.Acquire"
	dir := filepath.Join(targetDir, types.MetaDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	lockPath := filepath.Join(dir, LockFileName)
	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.E(op, errors.IO, types.UniquePath(targetDir), err)
	}
	if !locked {
		return nil, errors.E(op, errors.Config, types.UniquePath(targetDir),
			&LockHeldError{TargetDir: targetDir, LockPath: lockPath})
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call on a nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
