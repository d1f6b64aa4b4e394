package coverage

import (
	"fmt"
	"strings"

	"golang.org/x/tools/cover"

	"github.com/zjy-dev/speccov/internal/logger"
)

// ProfileResolver maps a session name to the cover profile written for it.
type ProfileResolver func(session string) (string, error)

// ProfileDriver is a Driver backed by Go cover profiles
// (go test -coverprofile). The external probe writes one profile per
// session; Stop parses it and reports every statement block as executable,
// marking the lines of blocks with a positive count as executed.
type ProfileDriver struct {
	resolve ProfileResolver
	prefix  string
	name    string
	active  bool
}

// NewProfileDriver creates a driver. prefix is stripped from the profile's
// file names (usually the module import path) so filter rules can be
// written against repository-relative paths.
func NewProfileDriver(resolve ProfileResolver, prefix string) *ProfileDriver {
	return &ProfileDriver{
		resolve: resolve,
		prefix:  strings.TrimSuffix(prefix, "/"),
	}
}

// Start implements Driver.
func (d *ProfileDriver) Start(name string) error {
	if d.active {
		return fmt.Errorf("profile driver already collecting for %q", d.name)
	}
	d.name = name
	d.active = true
	return nil
}

// Stop implements Driver.
func (d *ProfileDriver) Stop() (*Hits, error) {
	if !d.active {
		return nil, fmt.Errorf("profile driver is not collecting")
	}
	name := d.name
	d.active = false
	d.name = ""

	path, err := d.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile for %q: %w", name, err)
	}
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cover profile %s: %w", path, err)
	}
	logger.Debug("coverage: parsed %d profile entries from %s", len(profiles), path)
	return d.hits(profiles), nil
}

func (d *ProfileDriver) hits(profiles []*cover.Profile) *Hits {
	hits := NewHits()
	for _, p := range profiles {
		file := d.trim(p.FileName)
		for _, b := range p.Blocks {
			if b.NumStmt == 0 {
				continue
			}
			for l := b.StartLine; l <= b.EndLine; l++ {
				if b.Count > 0 {
					hits.Hit(file, l)
				} else {
					hits.Declare(file, l)
				}
			}
		}
	}
	return hits
}

func (d *ProfileDriver) trim(file string) string {
	if d.prefix != "" && strings.HasPrefix(file, d.prefix+"/") {
		return file[len(d.prefix)+1:]
	}
	return file
}
