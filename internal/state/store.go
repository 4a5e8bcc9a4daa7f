package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotInstalled is returned by Load when the install directory holds no state.
var ErrNotInstalled = errors.New("no existing installation")

// Load reads the persisted .env of installDir. It returns ErrNotInstalled
// when the directory holds no state yet.
func Load(installDir string) (*Snapshot, error) {
	path := filepath.Join(installDir, EnvFileName)

	// #nosec G304 -- path is inside the install directory
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotInstalled
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	values, err := ParseEnv(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return &Snapshot{
		Path:     path,
		Values:   values,
		LoadedAt: time.Now(),
	}, nil
}
