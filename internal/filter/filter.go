// Package filter holds the include/exclude rules deciding which source files
// are eligible for coverage recording.
package filter

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zjy-dev/speccov/internal/logger"
)

// Rules is a snapshot of a Filter's rule set.
type Rules struct {
	IncludedDirectories []string
	ExcludedDirectories []string
	IncludedFiles       []string
	ExcludedFiles       []string
}

// Filter is the rule set. Exclusion always takes precedence over inclusion:
// a file under an excluded directory is never eligible, even when it is
// listed as an included file. With no include rules every non-excluded path
// is eligible.
type Filter struct {
	mu      sync.RWMutex
	inDirs  map[string]bool
	exDirs  map[string]bool
	inFiles map[string]bool
	exFiles map[string]bool
	frozen  bool
}

// New returns an empty filter.
func New() *Filter {
	return &Filter{
		inDirs:  make(map[string]bool),
		exDirs:  make(map[string]bool),
		inFiles: make(map[string]bool),
		exFiles: make(map[string]bool),
	}
}

// IncludeDirectory adds a directory whose descendants are eligible.
func (f *Filter) IncludeDirectory(path string) { f.add(f.inDirs, "include directory", path) }

// ExcludeDirectory adds a directory whose descendants are never eligible.
func (f *Filter) ExcludeDirectory(path string) { f.add(f.exDirs, "exclude directory", path) }

// IncludeFile adds a file (or filepath.Match pattern) that is eligible.
func (f *Filter) IncludeFile(path string) { f.add(f.inFiles, "include file", path) }

// ExcludeFile adds a file (or filepath.Match pattern) that is never eligible.
func (f *Filter) ExcludeFile(path string) { f.add(f.exFiles, "exclude file", path) }

func (f *Filter) add(set map[string]bool, kind, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.frozen {
		logger.Warn("filter: ignoring %s %q registered after recording started", kind, path)
		return
	}
	p := clean(path)
	if p == "" {
		return
	}
	set[p] = true
}

// Freeze makes the rule set immutable. It is called when the first session
// starts.
func (f *Filter) Freeze() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frozen = true
}

// Allows reports whether path is eligible for recording.
func (f *Filter) Allows(path string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	p := clean(path)
	if matchFile(f.exFiles, p) || matchDir(f.exDirs, p) {
		return false
	}
	if len(f.inDirs) == 0 && len(f.inFiles) == 0 {
		return true
	}
	return matchFile(f.inFiles, p) || matchDir(f.inDirs, p)
}

// Rules returns a sorted copy of the rule set.
func (f *Filter) Rules() Rules {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return Rules{
		IncludedDirectories: keys(f.inDirs),
		ExcludedDirectories: keys(f.exDirs),
		IncludedFiles:       keys(f.inFiles),
		ExcludedFiles:       keys(f.exFiles),
	}
}

func clean(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// matchDir matches dir itself or any path below it, segment-aware.
func matchDir(dirs map[string]bool, p string) bool {
	for dir := range dirs {
		if dir == "." || p == dir || strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}

func matchFile(files map[string]bool, p string) bool {
	if files[p] {
		return true
	}
	for pattern := range files {
		if ok, err := filepath.Match(pattern, p); err == nil && ok {
			return true
		}
	}
	return false
}

func keys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
