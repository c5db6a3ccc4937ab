package cli

import (
	"fmt"

	"github.com/getmockd/mocknet/pkg/loader"
	"github.com/spf13/cobra"
)

type validateResult struct {
	File  string `json:"file"`
	Mocks int    `json:"mocks"`
	Error string `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [files or globs...]",
	Short: "Check that mock files parse and declare valid mocks",
	Long: `Check that mock files parse and declare valid mocks.

Every file is loaded the way the engine loads it: YAML is decoded, ${VAR}
references are expanded and each definition is built into a mock. Quote
** globs so the shell leaves them alone.`,
	Example: `  # Validate two files
  mocknet validate mocks/users.yaml mocks/orders.yaml

  # Validate every mock file under a directory
  mocknet validate 'mocks/**/*.yaml'

  # Validate the files listed in a config
  mocknet validate --config mocknet.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := mockFiles(cfg, args)
	if err != nil {
		return err
	}

	results := make([]validateResult, 0, len(paths))
	failed := 0
	for _, path := range paths {
		res := validateResult{File: path}
		mocks, err := loader.LoadFile(path)
		if err != nil {
			res.Error = err.Error()
			failed++
		}
		res.Mocks = len(mocks)
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Error != "" {
				fmt.Fprintf(out, "FAIL %s: %s\n", res.File, res.Error)
				continue
			}
			fmt.Fprintf(out, "ok   %s (%d mocks)\n", res.File, res.Mocks)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files invalid", failed, len(paths))
	}
	return nil
}
