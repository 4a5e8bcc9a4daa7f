package report

import (
	"fmt"
	"path/filepath"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/render"
	"github.com/imamik/vpsgate/internal/state"
)

// Artifacts are the report files of a run.
type Artifacts struct {
	ConnectionInfo string
	Secret         string
	// Written lists the artifacts whose content changed.
	Written []string
}

// Write persists connection-info.txt and the peer Secret manifest next
// to the rendered configuration. clusterFile is the rendered
// cluster-side configuration file.
func Write(st *state.ProvisioningState, cfg *config.Config, clusterFile *render.File) (*Artifacts, error) {
	if clusterFile == nil {
		return nil, fmt.Errorf("no cluster-side configuration for variant %q", st.Variant)
	}

	secret, err := PeerSecret(st, cfg, clusterFile.Path, clusterFile.Content)
	if err != nil {
		return nil, err
	}

	a := &Artifacts{
		ConnectionInfo: st.Path(ConnectionInfoFile),
		Secret:         st.Path(SecretFile),
	}
	files := []struct {
		path    string
		content []byte
	}{
		{a.ConnectionInfo, FormatEntries(ConnectionInfo(st, cfg))},
		{a.Secret, secret},
	}
	for _, f := range files {
		if state.Unchanged(f.path, f.content, 0o600) {
			continue
		}
		if err := state.WriteFileAtomic(f.path, f.content, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
		a.Written = append(a.Written, f.path)
	}
	return a, nil
}
