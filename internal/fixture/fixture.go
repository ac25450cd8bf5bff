// Package fixture builds in-memory file trees for tests, grounded on
// analyzer.AnalyzeDir/analyzePackages's afs-backed directory walk
// (_examples/viant-linager/analyzer/package.go), so package/project tests
// can construct multi-file inputs without touching the real filesystem.
package fixture

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/corelens/tracecore/project"
)

// Set is an in-memory file tree rooted at a fresh mem:// location, unique
// per Set so parallel tests never collide.
type Set struct {
	fs   afs.Service
	root string
}

var counter atomic.Int64

// New creates an empty fixture set. name only needs to be unique within a
// single test binary run.
func New(name string) *Set {
	n := counter.Add(1)
	return &Set{fs: afs.New(), root: fmt.Sprintf("mem://fixture-%d-%s", n, name)}
}

// Add writes content at relPath under the fixture's root.
func (s *Set) Add(ctx context.Context, relPath, content string) error {
	return s.fs.Upload(ctx, url.Join(s.root, relPath), os.FileMode(0644), strings.NewReader(content))
}

// Files walks the fixture tree and returns every file as a project.File,
// with Path relative to the fixture root, sorted for determinism.
func (s *Set) Files(ctx context.Context) ([]project.File, error) {
	var out []project.File
	visitor := func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return true, nil
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return false, err
		}
		rel := strings.TrimPrefix(url.Join(parent, info.Name()), "/")
		out = append(out, project.File{Path: rel, Bytes: data})
		return true, nil
	}
	if err := s.fs.Walk(ctx, s.root, visitor); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
