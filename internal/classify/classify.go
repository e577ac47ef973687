// Package classify maps file names to destination categories by extension.
package classify

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Fallback is the category used when no other category claims an extension.
const Fallback = "Other"

// Category is a destination folder name and the extensions routed to it
type Category struct {
	Name       string
	Extensions []string
}

// CategoryMap is an ordered, immutable extension table.
// Lookup walks categories in declaration order and the first match wins.
type CategoryMap struct {
	categories []category
}

type category struct {
	name       string
	extensions map[string]struct{}
}

// NewCategoryMap builds a CategoryMap from categories in configuration order.
// Extensions are trimmed, lower-cased and given a leading dot. The fallback
// category is appended when missing; extensions listed under it are dropped.
func NewCategoryMap(categories []Category) (CategoryMap, error) {
	seen := make(map[string]bool, len(categories))
	out := make([]category, 0, len(categories)+1)
	hasFallback := false

	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return CategoryMap{}, errors.New("category with empty name")
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return CategoryMap{}, fmt.Errorf("category %q is not a plain folder name", name)
		}
		if seen[name] {
			return CategoryMap{}, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = true

		if name == Fallback {
			hasFallback = true
			out = append(out, category{name: name, extensions: map[string]struct{}{}})
			continue
		}

		exts := make(map[string]struct{}, len(c.Extensions))
		for _, raw := range c.Extensions {
			ext, err := normalizeExtension(raw)
			if err != nil {
				return CategoryMap{}, fmt.Errorf("category %q: %w", name, err)
			}
			exts[ext] = struct{}{}
		}
		out = append(out, category{name: name, extensions: exts})
	}

	if !hasFallback {
		out = append(out, category{name: Fallback, extensions: map[string]struct{}{}})
	}

	return CategoryMap{categories: out}, nil
}

func normalizeExtension(raw string) (string, error) {
	ext := strings.ToLower(strings.TrimSpace(raw))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", fmt.Errorf("empty extension %q", raw)
	}
	if strings.ContainsAny(ext, `/\`) {
		return "", fmt.Errorf("invalid extension %q", raw)
	}
	return "." + ext, nil
}

// Categories returns the map contents in lookup order, fallback included.
func (m CategoryMap) Categories() []Category {
	out := make([]Category, 0, len(m.categories))
	for _, c := range m.categories {
		exts := make([]string, 0, len(c.extensions))
		for ext := range c.extensions {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		out = append(out, Category{Name: c.name, Extensions: exts})
	}
	return out
}

// Names returns category names in lookup order
func (m CategoryMap) Names() []string {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = c.name
	}
	return names
}

// Extension returns the lower-cased extension of the base name, dot included.
// Names without a dot, or ending in one, have no extension.
func Extension(name string) string {
	ext := filepath.Ext(filepath.Base(name))
	if ext == "." {
		return ""
	}
	return strings.ToLower(ext)
}

// Classify returns the category for filename. It never fails: anything
// unmatched, including a zero CategoryMap, resolves to Fallback.
func Classify(filename string, m CategoryMap) string {
	ext := Extension(filename)
	if ext == "" {
		return Fallback
	}
	for _, c := range m.categories {
		if _, ok := c.extensions[ext]; ok {
			return c.name
		}
	}
	return Fallback
}
