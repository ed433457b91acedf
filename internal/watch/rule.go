package watch

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/vango-dev/livedev/internal/errors"
)

// Rule is a glob pattern with an optional command to run when a matching file
// changes. Rules are immutable once created.
type Rule struct {
	// Pattern is the glob as configured.
	Pattern string

	// Command is the shell command to run; empty means notify only.
	Command string

	// Silent rules run their command but never notify browsers of
	// the outcome.
	Silent bool

	// Dir is the absolute directory relative patterns were resolved
	// against. Commands run with it as their working directory.
	Dir string

	base string
	glob string
}

// NewRule validates pattern and resolves its base directory against dir.
// Relative patterns are interpreted relative to dir; absolute patterns are
// used as is.
func NewRule(pattern, command string, silent bool, dir string) (*Rule, error) {
	slashed := filepath.ToSlash(strings.TrimSpace(pattern))
	if slashed == "" {
		return nil, errors.New("E200").WithDetail("empty pattern")
	}
	if !doublestar.ValidatePattern(slashed) {
		return nil, errors.New("E200").WithDetail("pattern " + quote(pattern))
	}

	base, glob := doublestar.SplitPattern(slashed)
	if !hasWildcard(glob) {
		return nil, errors.New("E201").WithDetail("pattern " + quote(pattern) + " has no wildcard")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.New("E200").WithDetail("pattern " + quote(pattern)).Wrap(err)
	}

	baseDir := filepath.FromSlash(base)
	if !filepath.IsAbs(baseDir) {
		baseDir = filepath.Join(absDir, baseDir)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.New("E200").WithDetail("pattern " + quote(pattern)).Wrap(err)
	}

	return &Rule{
		Pattern: pattern,
		Command: strings.TrimSpace(command),
		Silent:  silent,
		Dir:     absDir,
		base:    filepath.Clean(abs),
		glob:    glob,
	}, nil
}

// Base returns the absolute directory that must be watched for this rule.
func (r *Rule) Base() string {
	return r.base
}

// HasCommand reports whether the rule runs a command on change.
func (r *Rule) HasCommand() bool {
	return r.Command != ""
}

// Match reports whether the absolute path matches the rule's pattern.
func (r *Rule) Match(path string) bool {
	rel, err := filepath.Rel(r.base, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	matched, err := doublestar.Match(r.glob, rel)
	return err == nil && matched
}

// String returns the rule in PATTERN=COMMAND form.
func (r *Rule) String() string {
	if r.Command == "" {
		return r.Pattern
	}
	return r.Pattern + "=" + r.Command
}

// Bases returns the distinct base directories of rules, dropping any that are
// nested inside another base.
func Bases(rules []*Rule) []string {
	var roots []string
	for _, rule := range rules {
		roots = append(roots, rule.Base())
	}
	return collapseRoots(roots)
}

func collapseRoots(roots []string) []string {
	unique := make([]string, 0, len(roots))
	seen := make(map[string]struct{}, len(roots))
	for _, root := range roots {
		clean := filepath.Clean(root)
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		unique = append(unique, clean)
	}

	result := make([]string, 0, len(unique))
	for i, root := range unique {
		nested := false
		for j, other := range unique {
			if i != j && isWithinDir(root, other) {
				nested = true
				break
			}
		}
		if !nested {
			result = append(result, root)
		}
	}
	return result
}

func hasWildcard(glob string) bool {
	return strings.ContainsAny(glob, "*?[{")
}

func quote(s string) string {
	return `"` + s + `"`
}
