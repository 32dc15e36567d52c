package cli

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/internal/metrics"
	"github.com/matzehuels/graphanneal/internal/server"
	"github.com/matzehuels/graphanneal/pkg/cache"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
)

// serviceKeyPrefix scopes service cache keys away from CLI entries when both
// share one Redis.
const serviceKeyPrefix = "svc:"

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr     string
	timeout  time.Duration
	maxNodes int
	metrics  bool
	cache    cacheOpts
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: ":8080", timeout: server.DefaultTimeout, maxNodes: server.DefaultMaxNodes, metrics: true}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout service",
		Long: `Run the HTTP layout service.

Routes:
  GET  /healthz      liveness probe
  GET  /metrics      Prometheus metrics (disable with --metrics=false)
  POST /v1/layout    anneal a graph, optionally rendering artifacts
  POST /v1/analyze   score a stored layout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "upper bound for one layout run")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", opts.maxNodes, "largest graph accepted")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", opts.metrics, "expose Prometheus metrics on /metrics")
	opts.cache.register(cmd)

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOpts) error {
	ctx := cmd.Context()

	cc, err := c.newCache(ctx, opts.cache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}
	var keyer cache.Keyer
	if opts.cache.redis != "" {
		keyer = cache.NewScopedKeyer(nil, serviceKeyPrefix)
	}
	runner := pipeline.NewRunner(cc, keyer, c.Logger)
	defer runner.Close()

	srvOpts := server.Options{
		Runner:   runner,
		Logger:   c.Logger,
		Timeout:  opts.timeout,
		MaxNodes: opts.maxNodes,
	}
	if opts.metrics {
		srvOpts.Metrics = metrics.Install().Handler()
	}

	printInfo("Serving on %s", opts.addr)
	err = server.New(srvOpts).ListenAndServe(ctx, opts.addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	printSuccess("Server stopped")
	return nil
}
