package render

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/template"

	"github.com/imamik/vpsgate/internal/config"
	"github.com/imamik/vpsgate/internal/state"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var templates = template.Must(
	template.New("").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		ParseFS(templatesFS, "templates/*.tmpl"),
)

// File is one rendered artifact.
type File struct {
	// Path is absolute.
	Path    string
	Content []byte
	Mode    os.FileMode
	// ClusterSide marks files meant to be copied to the cluster.
	ClusterSide bool
}

// Set is the output of a render, ordered by path.
type Set []File

// Get returns the file at path.
func (s Set) Get(path string) (File, bool) {
	for _, f := range s {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Paths returns the paths of all files.
func (s Set) Paths() []string {
	paths := make([]string, len(s))
	for i, f := range s {
		paths[i] = f.Path
	}
	return paths
}

// ClusterFile returns the file meant for the cluster side, if any.
func (s Set) ClusterFile() (File, bool) {
	for _, f := range s {
		if f.ClusterSide {
			return f, true
		}
	}
	return File{}, false
}

// Render produces every file of the configured variant.
func Render(st *state.ProvisioningState, cfg *config.Config) (Set, error) {
	var (
		files Set
		err   error
	)
	switch st.Variant {
	case config.VariantFRP:
		files, err = renderFRP(st, cfg)
	case config.VariantWireGuard:
		files, err = renderWireGuard(st, cfg)
	default:
		return nil, fmt.Errorf("unknown variant %q", st.Variant)
	}
	if err != nil {
		return nil, err
	}

	files = append(files, File{
		Path:    st.EnvPath(),
		Content: state.FormatEnv(st.EnvValues()),
		Mode:    0600,
	})
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
