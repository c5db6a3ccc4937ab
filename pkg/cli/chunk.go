package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/getmockd/mocknet/pkg/chunked"
	"github.com/spf13/cobra"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Encode or decode chunked transfer framing",
}

var chunkEncodeCmd = &cobra.Command{
	Use:   "encode [pieces...]",
	Short: "Frame each argument as one chunk and write the wire bytes",
	Example: `  mocknet chunk encode a b c
  # 1\r\na\r\n1\r\nb\r\n1\r\nc\r\n0\r\n\r\n`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pieces := make([][]byte, len(args))
		for i, a := range args {
			pieces[i] = []byte(a)
		}
		_, err := cmd.OutOrStdout().Write(chunked.Encode(pieces))
		return err
	},
}

var chunkDecodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Parse chunked wire bytes from a file or stdin and print each chunk",
	Long: `Parse chunked wire bytes from a file or stdin and print each chunk.

Chunks are printed one per line as quoted Go strings, so CR and LF bytes
inside a chunk stay visible. With --json the chunks are printed as a JSON
array of strings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunkDecode,
}

func init() {
	chunkCmd.AddCommand(chunkEncodeCmd, chunkDecodeCmd)
	rootCmd.AddCommand(chunkCmd)
}

func runChunkDecode(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	wire, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	pieces, err := chunked.Decode(wire)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		strs := make([]string, len(pieces))
		for i, p := range pieces {
			strs[i] = string(p)
		}
		return printJSON(out, strs)
	}
	for _, p := range pieces {
		fmt.Fprintf(out, "%q\n", p)
	}
	return nil
}
