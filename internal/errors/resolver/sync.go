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

package resolver

import (
	"fmt"

	"github.com/canondev/canon/internal/baseline"
	"github.com/canondev/canon/internal/errors"
)

//nolint:gochecknoinits
func init() {
	AddErrorResolver(&syncErrorResolver{})
}

// syncErrorResolver produces user-facing messages for the fatal error
// classes of a sync run. Per-path errors never reach the resolver; they are
// accumulated in the sync report instead.
type syncErrorResolver struct{}

func (*syncErrorResolver) Resolve(err error) (ResolvedResult, bool) {
	var corruptErr *baseline.CorruptManifestError
	if errors.As(err, &corruptErr) {
		msg := fmt.Sprintf("Error: The baseline manifest %q can not be parsed and canon will not "+
			"guess which files carry local edits. Restore the file from version control or remove "+
			"it to start tracking from scratch.", corruptErr.Path)
		return ResolvedResult{Message: msg}, true
	}

	var lockedErr *baseline.LockHeldError
	if errors.As(err, &lockedErr) {
		msg := fmt.Sprintf("Error: Another canon process is syncing %q (lock file %q is held). "+
			"Wait for it to finish, or remove the lock file if the process is gone.",
			lockedErr.TargetDir, lockedErr.LockPath)
		return ResolvedResult{Message: msg}, true
	}

	var canonErr *errors.Error
	if !errors.As(err, &canonErr) {
		return ResolvedResult{}, false
	}

	switch errors.UnwrapKind(canonErr) {
	case errors.Config:
		return ResolvedResult{
			Message: fmt.Sprintf("Error: %v", err),
		}, true
	case errors.Resolution:
		return ResolvedResult{
			Message: fmt.Sprintf("Error: %v", err),
		}, true
	}
	return ResolvedResult{}, false
}
