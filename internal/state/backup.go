package state

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// BackupDirName is the directory under the install directory holding backups.
const BackupDirName = "backups"

// Backup copies every existing file of paths into
// <installDir>/backups/<timestamp>/, keeping their path relative to the
// install directory. Files outside the install directory keep their
// absolute path below a "root" folder. Missing files are skipped. It
// returns the backup directory, or "" when nothing existed to copy.
func Backup(installDir string, paths []string, now time.Time) (string, error) {
	dir := filepath.Join(installDir, BackupDirName, now.UTC().Format("20060102-150405"))

	copied := 0
	for _, p := range paths {
		if !Exists(p) {
			continue
		}
		if err := copyFile(p, filepath.Join(dir, backupName(installDir, p))); err != nil {
			return "", fmt.Errorf("failed to back up %s: %w", p, err)
		}
		copied++
	}

	if copied == 0 {
		return "", nil
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to restrict backup directory: %w", err)
	}
	return dir, nil
}

func backupName(installDir, p string) string {
	rel, err := filepath.Rel(installDir, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Join("root", strings.TrimPrefix(filepath.Clean(p), string(filepath.Separator)))
	}
	return rel
}
