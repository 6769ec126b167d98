package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vibetiles/pkg/style"
	"github.com/matzehuels/vibetiles/pkg/upstream"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// styleCommand creates the style command.
func (c *CLI) styleCommand() *cobra.Command {
	var (
		output string
		indent bool
	)
	cmd := &cobra.Command{
		Use:   "style <vibe>",
		Short: "Fetch the upstream style and print its derived variant for a vibe",
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var ids []string
			for _, id := range vibe.Builtin().IDs() {
				ids = append(ids, string(id))
			}
			return ids, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg, err := cfg.registry()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			up := upstream.NewClient(upstream.Config{
				StyleURL:     cfg.StyleURL,
				StyleTimeout: cfg.StyleTimeout,
			})
			d := style.NewDeriver(up, reg, style.Options{
				PublicBase: cfg.PublicBase,
				RasterID:   cfg.RasterID,
			}, logger)

			prog := startStopwatch(logger)
			sp := newSpinner(ctx, os.Stderr, "Deriving "+args[0]+" style...")
			sp.start()
			doc, err := d.Style(ctx, vibe.ID(args[0]))
			sp.stop()
			if err != nil {
				return err
			}
			prog.done("Derived style " + args[0])

			w := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			if indent {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("write style: %w", err)
			}
			if output != "" {
				printFile(output)
			}
			return nil
		},
	}
	addConfigFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}
