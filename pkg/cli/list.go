package cli

import (
	"fmt"
	"strconv"

	"github.com/getmockd/mocknet/pkg/loader"
	"github.com/getmockd/mocknet/pkg/mock"
	"github.com/spf13/cobra"
)

type listItem struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Mock     string   `json:"mock"`
	File     string   `json:"file"`
	Times    int      `json:"times,omitempty"`
	Persist  bool     `json:"persist,omitempty"`
	Status   int      `json:"status"`
	Chunked  bool     `json:"chunked,omitempty"`
	Matchers []string `json:"matchers"`
}

var listCmd = &cobra.Command{
	Use:   "list [files or globs...]",
	Short: "List the mocks declared in mock files",
	Example: `  # List mocks in priority order
  mocknet list 'mocks/**/*.yaml'

  # List as JSON, including every matcher
  mocknet list --json mocks/users.yaml`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	paths, err := mockFiles(cfg, args)
	if err != nil {
		return err
	}

	var items []listItem
	for _, path := range paths {
		mocks, err := loader.LoadFile(path)
		if err != nil {
			return err
		}
		for _, m := range mocks {
			items = append(items, newListItem(path, m))
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if items == nil {
			items = []listItem{}
		}
		return printJSON(out, items)
	}

	w := table(out)
	fmt.Fprintln(w, "MOCK\tUSES\tSTATUS\tFILE")
	for _, it := range items {
		uses := strconv.Itoa(it.Times)
		if it.Persist {
			uses = "persist"
		}
		status := strconv.Itoa(it.Status)
		if it.Chunked {
			status += " chunked"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.Mock, uses, status, it.File)
	}
	return w.Flush()
}

func newListItem(path string, m *mock.Mock) listItem {
	resp := m.Response()
	item := listItem{
		ID:      m.ID(),
		Name:    m.Name(),
		Mock:    m.String(),
		File:    path,
		Persist: m.Persistent(),
		Status:  resp.Status,
		Chunked: resp.IsChunked(),
	}
	if !item.Persist {
		item.Times = m.Remaining()
	}
	for _, matcher := range m.Matchers() {
		item.Matchers = append(item.Matchers, matcher.String())
	}
	return item
}
