// Package discovery locates test plan files.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PlansDir is the directory searched when no plans are named explicitly.
const PlansDir = "plans"

// ErrNoPlans indicates that no plan files were found during discovery.
var ErrNoPlans = errors.New("no test plans discovered")

// Plans returns plan file paths relative to root where possible. Explicit
// entries are kept in the order given; a directory entry expands to the
// YAML files directly inside it. Without explicit entries the plans
// directory under root is searched and the results are sorted.
func Plans(root string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return resolveExplicit(root, explicit)
	}

	paths, err := yamlFiles(filepath.Join(root, PlansDir))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrNoPlans
	}
	for i, p := range paths {
		paths[i] = relOrClean(root, p)
	}
	return paths, nil
}

func yamlFiles(dir string) ([]string, error) {
	matches := make(map[string]struct{})
	for _, ext := range []string{"*.yml", "*.yaml"} {
		pattern := filepath.Join(dir, ext)
		found, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range found {
			matches[m] = struct{}{}
		}
	}
	paths := make([]string, 0, len(matches))
	for p := range matches {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func resolveExplicit(root string, explicit []string) ([]string, error) {
	seen := make(map[string]struct{})
	resolved := make([]string, 0, len(explicit))
	add := func(full string) {
		rel := relOrClean(root, full)
		if _, ok := seen[rel]; ok {
			return
		}
		seen[rel] = struct{}{}
		resolved = append(resolved, rel)
	}

	for _, input := range explicit {
		full := input
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, full)
		}
		info, err := os.Stat(full)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("plan %q not found", input)
			}
			return nil, fmt.Errorf("stat %q: %w", input, err)
		}
		if !info.IsDir() {
			add(full)
			continue
		}
		files, err := yamlFiles(full)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("plan directory %q holds no YAML files", input)
		}
		for _, f := range files {
			add(f)
		}
	}
	if len(resolved) == 0 {
		return nil, ErrNoPlans
	}
	return resolved, nil
}

func relOrClean(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.Clean(path)
	}
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") {
		return filepath.Clean(path)
	}
	return rel
}
