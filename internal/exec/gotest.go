package exec

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zjy-dev/speccov/internal/logger"
)

var testNamePattern = regexp.MustCompile(`^(Test|Example)\w*$`)

// GoTest lists and runs the tests of one Go package individually, writing a
// cover profile per test.
type GoTest struct {
	Exec    Executor
	Dir     string
	Package string
	// GoBin is the go command; defaults to "go".
	GoBin string
	// CoverPkg is passed as -coverpkg when set.
	CoverPkg string
}

func (g *GoTest) bin() string {
	if g.GoBin == "" {
		return "go"
	}
	return g.GoBin
}

func (g *GoTest) pkg() string {
	if g.Package == "" {
		return "."
	}
	return g.Package
}

// List returns the package's test and example function names in the order
// go test reports them.
func (g *GoTest) List(ctx context.Context) ([]string, error) {
	res, err := g.Exec.Run(ctx, g.Dir, g.bin(), "test", "-list", ".", g.pkg())
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("failed to list tests (exit %d): %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	var names []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if testNamePattern.MatchString(line) {
			names = append(names, line)
		}
	}
	return names, nil
}

// Run executes a single test, writing its cover profile to profile. A
// failing test is not an error: the result carries its exit code.
func (g *GoTest) Run(ctx context.Context, name, profile string) (*ExecutionResult, error) {
	args := []string{"test", "-count=1", "-covermode=set", "-coverprofile=" + profile, "-run", "^" + regexp.QuoteMeta(name) + "$"}
	if g.CoverPkg != "" {
		args = append(args, "-coverpkg="+g.CoverPkg)
	}
	args = append(args, g.pkg())

	logger.Debug("exec: %s %s", g.bin(), strings.Join(args, " "))
	res, err := g.Exec.Run(ctx, g.Dir, g.bin(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return res, nil
}
