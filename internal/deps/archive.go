package deps

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/imamik/vpsgate/internal/state"
)

const maxBinarySize = 256 << 20

// extractBinaries pulls the named files out of a .tar.gz stream, matching
// on base name, and installs them into dir with mode 0755. Nothing is
// written unless every name was found.
func extractBinaries(r io.Reader, dir string, names ...string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer gz.Close()

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	found := make(map[string][]byte, len(names))

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		base := path.Base(hdr.Name)
		if hdr.Typeflag != tar.TypeReg || !wanted[base] {
			continue
		}
		if hdr.Size > maxBinarySize {
			return fmt.Errorf("%s in archive is too large (%d bytes)", base, hdr.Size)
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxBinarySize))
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", base, err)
		}
		found[base] = data
	}

	for _, n := range names {
		if _, ok := found[n]; !ok {
			return fmt.Errorf("archive does not contain %s", n)
		}
	}
	for _, n := range names {
		if err := state.WriteFileAtomic(filepath.Join(dir, n), found[n], 0755); err != nil {
			return err
		}
	}
	return nil
}
