package cli

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/getmockd/mocknet/pkg/config"
	"github.com/getmockd/mocknet/pkg/engine"
	"github.com/getmockd/mocknet/pkg/interceptor/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr     string
	serveUpstream string
)

var serveCmd = &cobra.Command{
	Use:   "serve [files or globs...]",
	Short: "Serve mock files from a local HTTP listener",
	Long: `Serve mock files from a local HTTP listener.

Requests are matched against the declared mocks in order. Mocks keep their
declared use counts, so declare persist: true for endpoints that should
answer indefinitely. With --upstream the listener stands in for that
service: mocks are matched against upstream URLs, and unmatched requests
are forwarded there when network mode is enabled in the config. Requests
that match nothing get a 501 with diagnostics.`,
	Example: `  # Serve a directory of mocks on a fixed port
  mocknet serve --addr 127.0.0.1:4280 'mocks/**/*.yaml'

  # Stand in for a real API, forwarding what is not mocked
  MOCKNET_NETWORK=1 mocknet serve --upstream https://api.example.com mocks/api.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "Listen address")
	serveCmd.Flags().StringVar(&serveUpstream, "upstream", "", "Base URL of the service the listener stands in for")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	e, ic, err := newServeEngine(cfg, serveAddr, serveUpstream)
	if err != nil {
		return err
	}

	files, err := absPaths(args)
	if err != nil {
		return err
	}
	scope, err := e.Activate(engine.AllowPendingMocks(), engine.WithMockFiles(files...))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "serving %d mocks on %s\n", len(e.Mocks()), ic.URL())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	e.Logger().Info("shutting down", "requests", len(e.History()), "unmatched", len(e.Unmatched()))
	return scope.Close()
}

// newServeEngine wires an engine to a server interceptor.
func newServeEngine(cfg *config.Config, addr, upstream string) (*engine.Engine, *server.Interceptor, error) {
	log := newLogger(cfg)

	opts := []server.Option{server.WithAddr(addr), server.WithLogger(log)}
	if upstream != "" {
		u, err := url.Parse(upstream)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid upstream: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, nil, fmt.Errorf("invalid upstream %q: scheme and host are required", upstream)
		}
		opts = append(opts, server.WithUpstream(u))
	}

	ic := server.New(opts...)
	e := engine.New(engine.WithConfig(cfg), engine.WithLogger(log), engine.WithInterceptors(ic))
	return e, ic, nil
}

// absPaths makes command-line entries independent of the config's base
// directory.
func absPaths(args []string) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		p, err := filepath.Abs(a)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
