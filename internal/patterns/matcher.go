package patterns

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// TempArtifactPatterns are producer-side scratch names that are never final
// content: anything ending in .tmp and anything starting with "~".
var TempArtifactPatterns = []string{"*.tmp", "~*"}

// Matcher decides whether a base name should be left alone.
// Patterns are matched against the lower-cased base name only.
type Matcher struct {
	builtin []glob.Glob
	user    []glob.Glob
}

// NewMatcher compiles the temp-artifact rules plus any extra ignore patterns.
// Blank lines and lines starting with "#" are skipped.
func NewMatcher(extra []string) (*Matcher, error) {
	builtin, err := compile(TempArtifactPatterns)
	if err != nil {
		return nil, err
	}
	user, err := compile(extra)
	if err != nil {
		return nil, err
	}
	return &Matcher{builtin: builtin, user: user}, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}

		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// IsTempArtifact reports whether path names a scratch file
func (m *Matcher) IsTempArtifact(path string) bool {
	return matchAny(m.builtin, path)
}

// IsIgnored reports whether path is a temp artifact or matches a user pattern
func (m *Matcher) IsIgnored(path string) bool {
	return matchAny(m.builtin, path) || matchAny(m.user, path)
}

func matchAny(globs []glob.Glob, path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, g := range globs {
		if g.Match(base) {
			return true
		}
	}
	return false
}
