package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/getmockd/mocknet/pkg/config"
	"github.com/getmockd/mocknet/pkg/mock"
	"github.com/getmockd/mocknet/pkg/util"
	"gopkg.in/yaml.v3"
)

// ErrUnsafePath is returned for file entries that escape the base
// directory.
var ErrUnsafePath = errors.New("unsafe mock file path")

// Parse decodes mock definitions from YAML or JSON.
func Parse(data []byte) ([]Definition, error) {
	var content Content
	if err := yaml.Unmarshal([]byte(config.ExpandEnvVars(string(data))), &content); err != nil {
		return nil, fmt.Errorf("parsing mocks: %w", err)
	}
	return content.Mocks, nil
}

// Build turns definitions into mocks, stopping at the first invalid one.
func Build(defs []Definition) ([]*mock.Mock, error) {
	mocks := make([]*mock.Mock, 0, len(defs))
	for i := range defs {
		m, err := defs[i].Build()
		if err != nil {
			return nil, fmt.Errorf("mocks[%d]: %w", i, err)
		}
		mocks = append(mocks, m)
	}
	return mocks, nil
}

// LoadFile reads the mocks declared in one file.
func LoadFile(path string) ([]*mock.Mock, error) {
	data, err := config.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%s: %w: no mocks declared", path, ErrInvalidDefinition)
	}
	mocks, err := Build(defs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mocks, nil
}

// LoadFiles loads every entry in order. Relative entries are resolved
// against baseDir and may not escape it. Glob entries expand to their
// matches in lexical order; a glob matching nothing is not an error.
func LoadFiles(baseDir string, entries ...string) ([]*mock.Mock, error) {
	var result []*mock.Mock
	for i, entry := range entries {
		paths, err := expand(baseDir, entry)
		if err != nil {
			return nil, fmt.Errorf("mocks[%d] (files: %s): %w", i, entry, err)
		}
		for _, p := range paths {
			mocks, err := LoadFile(p)
			if err != nil {
				return nil, fmt.Errorf("mocks[%d] (file: %s): %w", i, entry, err)
			}
			result = append(result, mocks...)
		}
	}
	return result, nil
}

// Files returns the paths LoadFiles would read, in order.
func Files(baseDir string, entries ...string) ([]string, error) {
	var result []string
	for _, entry := range entries {
		paths, err := expand(baseDir, entry)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry, err)
		}
		result = append(result, paths...)
	}
	return result, nil
}

func expand(baseDir, entry string) ([]string, error) {
	cleaned, ok := util.SafeFilePathAllowAbsolute(entry)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsafePath, entry)
	}
	resolved := config.ResolvePath(baseDir, cleaned)

	if !isGlob(resolved) {
		return []string{resolved}, nil
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(resolved)) {
		return nil, fmt.Errorf("invalid glob pattern: %s", entry)
	}
	matches, err := doublestar.FilepathGlob(resolved, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("expanding glob pattern: %w", err)
	}
	sort.Strings(matches)
	return matches, nil
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
