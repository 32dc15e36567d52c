package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphanneal/pkg/buildinfo"
	"github.com/matzehuels/graphanneal/pkg/cache"
	"github.com/matzehuels/graphanneal/pkg/config"
	"github.com/matzehuels/graphanneal/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "graphanneal"

	// envRedis names a Redis server to use as the layout cache.
	envRedis = "GRAPHANNEAL_REDIS"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "graphanneal lays out graphs by simulated annealing",
		Long: `graphanneal places the nodes of a graph on a lattice by simulated annealing,
minimizing overlaps, edge crossings, nodes sitting on edges, rank violations,
total edge length and bounding-box area.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.SetOut(output)

	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.watchCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// cacheOpts selects the cache backend of a command.
type cacheOpts struct {
	noCache bool
	dir     string // file cache directory; empty uses cacheDir()
	redis   string // Redis address; takes precedence over the file cache
}

func (o *cacheOpts) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&o.dir, "cache-dir", "", "cache directory (default: user cache dir)")
	cmd.Flags().StringVar(&o.redis, "redis", os.Getenv(envRedis), "Redis address for a shared cache (env "+envRedis+")")
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, opts cacheOpts) (*pipeline.Runner, error) {
	cc, err := c.newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cc, nil, c.Logger), nil
}

func (c *CLI) newCache(ctx context.Context, opts cacheOpts) (cache.Cache, error) {
	switch {
	case opts.noCache:
		return cache.NewNullCache(), nil
	case opts.redis != "":
		return cache.NewRedisCache(ctx, opts.redis, "", 0, cache.WithDefaultTTL(cache.TTLLayout))
	}
	dir := opts.dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			c.Logger.Warn("no cache directory, caching disabled", "error", err)
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the per-user cache directory (~/.cache/graphanneal on
// Linux, honoring XDG_CACHE_HOME).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}

// outputPath derives "<input without extension><suffix>" when explicit is
// empty. A second extension such as "g.layout.json" is stripped too.
func outputPath(explicit, input, suffix string) string {
	if explicit != "" {
		return explicit
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	base = strings.TrimSuffix(base, ".layout")
	return base + suffix
}

// =============================================================================
// Config Helpers
// =============================================================================

// configFlags are the layout settings that override the configuration file.
type configFlags struct {
	path     string
	variant  string
	seed     uint64
	steps    int
	maxTemp  float64
	minTemp  float64
	restarts int
}

func (f *configFlags) register(cmd *cobra.Command) {
	def := config.Default()
	cmd.Flags().StringVarP(&f.path, "config", "c", "", "configuration file (default: ./"+config.FileName+" if present)")
	cmd.Flags().StringVar(&f.variant, "variant", "", "preset: "+strings.Join(config.Variants, ", "))
	cmd.Flags().Uint64Var(&f.seed, "seed", def.Seed, "random seed")
	cmd.Flags().IntVar(&f.steps, "steps", def.Schedule.Steps, "annealing steps")
	cmd.Flags().Float64Var(&f.maxTemp, "max-temp", def.Schedule.MaxTemp, "starting temperature")
	cmd.Flags().Float64Var(&f.minTemp, "min-temp", def.Schedule.MinTemp, "final temperature")
	cmd.Flags().IntVar(&f.restarts, "restarts", def.Restarts, "random-restart trials before annealing")
	_ = cmd.RegisterFlagCompletionFunc("variant", completeVariants)
}

// resolve loads the configuration file and applies the flags the user set.
// --variant swaps the preset but keeps the file's schedule and seed.
func (f *configFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.LoadOrDefault(f.path)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("variant") {
		preset, err := config.ForVariant(f.variant)
		if err != nil {
			return config.Config{}, err
		}
		preset.Seed, preset.Restarts, preset.Schedule = cfg.Seed, cfg.Restarts, cfg.Schedule
		cfg = preset
	}
	if flags.Changed("seed") {
		cfg.Seed = f.seed
	}
	if flags.Changed("steps") {
		cfg.Schedule.Steps = f.steps
	}
	if flags.Changed("max-temp") {
		cfg.Schedule.MaxTemp = f.maxTemp
	}
	if flags.Changed("min-temp") {
		cfg.Schedule.MinTemp = f.minTemp
	}
	if flags.Changed("restarts") {
		cfg.Restarts = f.restarts
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid settings: %w", err)
	}
	return cfg, nil
}
