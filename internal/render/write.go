package render

import (
	"fmt"
	"time"

	"github.com/imamik/vpsgate/internal/state"
)

// Result reports what Write did.
type Result struct {
	Written   []string
	Unchanged []string
	// BackupDir holds copies of the replaced files, empty if none existed.
	BackupDir string
}

// Changed reports whether any file was written.
func (r *Result) Changed() bool {
	return len(r.Written) > 0
}

// Write persists every file of set whose content or mode differs from
// disk. Existing files about to be replaced are first copied to a
// timestamped directory under installDir.
func Write(set Set, installDir string, now time.Time) (*Result, error) {
	result := &Result{}
	var pending Set
	for _, f := range set {
		if state.Unchanged(f.Path, f.Content, f.Mode) {
			result.Unchanged = append(result.Unchanged, f.Path)
			continue
		}
		pending = append(pending, f)
	}

	if len(pending) == 0 {
		return result, nil
	}

	dir, err := state.Backup(installDir, pending.Paths(), now)
	if err != nil {
		return nil, err
	}
	result.BackupDir = dir

	for _, f := range pending {
		if err := state.WriteFileAtomic(f.Path, f.Content, f.Mode); err != nil {
			return result, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		result.Written = append(result.Written, f.Path)
	}
	return result, nil
}
