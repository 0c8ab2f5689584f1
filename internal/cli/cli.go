package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/svg2avd/internal/config"
	"github.com/matzehuels/svg2avd/pkg/buildinfo"
	"github.com/matzehuels/svg2avd/pkg/cache"
	"github.com/matzehuels/svg2avd/pkg/converter"
	"github.com/matzehuels/svg2avd/pkg/pipeline"
	"github.com/matzehuels/svg2avd/pkg/render"
	"github.com/matzehuels/svg2avd/pkg/render/chrome"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "svg2avd"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the --config flag.
	configPath string

	// newBrowser creates the render engine; tests replace it.
	newBrowser func(cfg *config.Config, logger *log.Logger) render.Browser
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		newBrowser: chromeBrowser,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "svg2avd converts SVG files to Android vector drawables",
		Long:         `svg2avd converts SVG files to Android Vector Drawable XML by driving a converter page in headless Chrome. It runs as a batch CLI or as an HTTP service, with an optional artifact cache.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/svg2avd/config.toml)")

	root.AddCommand(c.convertCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Session
// =============================================================================

// loadConfig reads the configuration and warns about unknown keys.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, unknown, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	for _, key := range unknown {
		c.Logger.Warn("unknown config key", "key", key)
	}
	c.Logger.Debug("loaded config", cfg.Summary()...)
	return cfg, nil
}

func chromeBrowser(cfg *config.Config, logger *log.Logger) render.Browser {
	return chrome.New(chrome.Options{
		ExecPath:  cfg.Session.Chrome,
		Headful:   cfg.Session.Headful,
		NoSandbox: cfg.Session.NoSandbox,
		Logger:    logger,
	})
}

// openSession starts a render session, retrying failed starts.
func (c *CLI) openSession(ctx context.Context, cfg *config.Config) (*converter.Converter, error) {
	entry, err := cfg.EntryURL()
	if err != nil {
		return nil, err
	}

	if d := cfg.Session.StartTimeout.Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	prog := newProgress(c.Logger)
	conv, err := pipeline.Open(ctx, func() *converter.Converter {
		return converter.New(c.newBrowser(cfg, c.Logger), converter.Options{
			EntryURL:       entry,
			RequestTimeout: cfg.Session.RequestTimeout.Duration,
			Logger:         c.Logger,
		})
	})
	if err != nil {
		return nil, err
	}
	prog.done("render session started")
	return conv, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for session.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, session pipeline.Session, noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(session, store, nil, c.Logger)
	r.KeyOpts.Converter = cfg.Session.Entry
	if ttl := cfg.Cache.TTL.Duration; ttl > 0 {
		r.TTL = ttl
	}
	return r, nil
}

func (c *CLI) newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil && cfg.Cache.Dir == "" && cfg.Cache.Backend == cache.BackendFile {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return cache.Open(connectCtx, cfg.CacheOptions(dir))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/svg2avd/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
