package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/matzehuels/vibetiles/pkg/prewarm"
	"github.com/matzehuels/vibetiles/pkg/tile"
)

type prewarmOpts struct {
	baseURL   string
	vibes     string
	vibesFile string
	maxZoom   uint32
	workers int
	timeout time.Duration
	noBar   bool
}

// prewarmCommand creates the prewarm command.
func (c *CLI) prewarmCommand() *cobra.Command {
	var opts prewarmOpts

	cmd := &cobra.Command{
		Use:   "prewarm",
		Short: "Fill a running server's tile store for zoom 0 through --max-zoom",
		Long: `Request every raster tile of the low zoom levels from a running server so
they are generated and stored ahead of real traffic.

Tiles are requested through the public endpoint, so the server's store,
transforms and fallbacks apply exactly as for map clients. The command exits
non-zero when any tile failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPrewarm(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", prewarm.DefaultBaseURL, "base URL of the running server")
	cmd.Flags().StringVar(&opts.vibes, "vibes", "", "comma-separated vibes (default: every derived vibe)")
	cmd.Flags().StringVar(&opts.vibesFile, "vibes-file", "", "TOML vibe registry the server runs with")
	cmd.Flags().Uint32Var(&opts.maxZoom, "max-zoom", prewarm.DefaultMaxZoom, fmt.Sprintf("highest zoom level to warm (at most %d)", tile.MaxZoom))
	cmd.Flags().IntVar(&opts.workers, "workers", prewarm.DefaultWorkers, "parallel requests")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", prewarm.DefaultTimeout, "per-tile request timeout")
	cmd.Flags().BoolVar(&opts.noBar, "no-progress", false, "log each tile instead of drawing a progress bar")

	return cmd
}

// options resolves the vibe list against the registry the server runs with.
func (o prewarmOpts) options() (prewarm.Options, error) {
	reg, err := (&config{VibesFile: o.vibesFile}).registry()
	if err != nil {
		return prewarm.Options{}, err
	}
	ids, err := reg.ParseIDs(o.vibes)
	if err != nil {
		return prewarm.Options{}, err
	}
	popts := prewarm.Options{
		BaseURL:  o.baseURL,
		Vibes:    ids,
		Registry: reg,
		MaxZoom:  o.maxZoom,
		Workers:  o.workers,
		Timeout:  o.timeout,
	}
	return popts, popts.Validate()
}

func (c *CLI) runPrewarm(cmd *cobra.Command, opts prewarmOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	popts, err := opts.options()
	if err != nil {
		return err
	}
	total := popts.Total()

	printInfo("Warming %s tiles (z0-%d) against %s",
		StyleNumber.Render(fmt.Sprint(total)), opts.maxZoom, StyleLink.Render(opts.baseURL))

	var bar *pb.ProgressBar
	if !opts.noBar {
		bar = pb.New64(total).Prefix("tiles ")
		bar.Output = os.Stderr
		bar.SetRefreshRate(250 * time.Millisecond)
		bar.Start()
	}

	var done int64
	report := func(key tile.Key, err error) {
		done++
		if err != nil {
			logger.Warn("tile failed", "tile", key, "err", err)
		} else if bar == nil {
			logger.Infof("[%d/%d] ok %s", done, total, key)
		}
		if bar != nil {
			bar.Increment()
		}
	}

	prog := startStopwatch(logger)
	res, err := prewarm.Run(ctx, popts, report)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Warmed %d/%d tiles", res.OK, res.Total))

	if res.Failed > 0 {
		printWarning("%d tiles failed", res.Failed)
		return fmt.Errorf("%d of %d tiles failed", res.Failed, res.Total)
	}
	printSuccess("All %d tiles cached", res.Total)
	return nil
}
