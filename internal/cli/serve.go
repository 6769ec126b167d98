package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vibetiles/pkg/cache"
	"github.com/matzehuels/vibetiles/pkg/observability"
	"github.com/matzehuels/vibetiles/pkg/proxy"
	"github.com/matzehuels/vibetiles/pkg/server"
	"github.com/matzehuels/vibetiles/pkg/style"
	"github.com/matzehuels/vibetiles/pkg/transform"
	"github.com/matzehuels/vibetiles/pkg/upstream"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// services is the wired object graph behind the server.
type services struct {
	registry *vibe.Registry
	upstream *upstream.Client
	cache    cache.Cache
	styles   *style.Deriver
	tiles    *proxy.Proxy
}

// newServices wires the style and tile paths from cfg. The caller closes
// the returned cache.
func newServices(ctx context.Context, cfg *config, logger *log.Logger) (*services, error) {
	reg, err := cfg.registry()
	if err != nil {
		return nil, err
	}
	remoteVibes, err := cfg.remoteVibes(reg)
	if err != nil {
		return nil, err
	}

	up := upstream.NewClient(upstream.Config{
		StyleURL:     cfg.StyleURL,
		TileTemplate: cfg.TileTemplate,
		StyleTimeout: cfg.StyleTimeout,
		TileTimeout:  cfg.TileTimeout,
	})

	store, err := newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	remote := transform.NewRemote(transform.RemoteConfig{
		URL:     cfg.AIURL,
		Key:     cfg.AIKey,
		Vibes:   remoteVibes,
		Timeout: cfg.AITimeout,
	})
	if remote != nil {
		logger.Info("remote transform enabled", "url", cfg.AIURL, "vibes", remoteVibes)
	}

	return &services{
		registry: reg,
		upstream: up,
		cache:    store,
		styles: style.NewDeriver(up, reg, style.Options{
			PublicBase: cfg.PublicBase,
			RasterID:   cfg.RasterID,
		}, logger),
		tiles: proxy.New(store, up, transform.NewTransformer(remote, logger), reg, logger, proxy.Options{
			DisableSingleFlight: cfg.NoSingleFlight,
		}),
	}, nil
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the style and raster tile server",
		Long: `Run the HTTP server.

Every flag can also be set through the environment as VIBETILES_<FLAG>
(e.g. VIBETILES_CACHE_DIR), or in a TOML file passed with --config.
PORT, TILE_CACHE_DIR, AI_SERVICE_URL, AI_SERVICE_KEY and AI_VIBES are
honored as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}
	addConfigFlags(cmd)
	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg *config) error {
	logger := loggerFromContext(ctx)

	metrics, err := observability.NewPrometheus()
	if err != nil {
		return err
	}
	defer func() { _ = metrics.Shutdown(context.WithoutCancel(ctx)) }()
	observability.Install(metrics.Hooks)

	svc, err := newServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.cache.Close()

	srv := server.New(server.Config{
		Addr:        cfg.Addr(),
		StaticDir:   cfg.StaticDir,
		FrontendDir: cfg.FrontendDir,
	}, svc.styles, svc.tiles, metrics.Handler, logger)

	printInfo("Serving %s vibes on %s", StyleNumber.Render(fmt.Sprint(len(svc.registry.IDs()))), StyleLink.Render("http://"+cfg.Addr()))
	printKeyValue("Tile store", describeCache(cfg))
	printKeyValue("Upstream", svc.upstream.StyleURL())
	if cfg.PublicBase != "" {
		printKeyValue("Public base", cfg.PublicBase)
	}

	err = srv.ListenAndServe(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
