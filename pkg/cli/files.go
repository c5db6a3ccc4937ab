package cli

import (
	"errors"

	"github.com/getmockd/mocknet/pkg/config"
	"github.com/getmockd/mocknet/pkg/loader"
)

var errNoMockFiles = errors.New("no mock files given: pass files or globs, or set mocks in the config")

// mockFiles expands the config's mock entries, relative to the config
// file, followed by args, relative to the working directory.
func mockFiles(cfg *config.Config, args []string) ([]string, error) {
	var paths []string
	if len(cfg.MockFiles) > 0 {
		p, err := loader.Files(cfg.BaseDir, cfg.MockFiles...)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p...)
	}
	if len(args) > 0 {
		p, err := loader.Files("", args...)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p...)
	}
	if len(paths) == 0 {
		return nil, errNoMockFiles
	}
	return paths, nil
}
