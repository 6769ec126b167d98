package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/vibetiles/pkg/transform"
	"github.com/matzehuels/vibetiles/pkg/vibe"
)

// vibesCommand creates the vibes command.
func (c *CLI) vibesCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "vibes",
		Short: "List the available vibes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := (&config{VibesFile: file}).registry()
			if err != nil {
				return err
			}
			for _, p := range reg.Profiles() {
				printVibe(p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "vibes-file", "", "TOML vibe registry replacing the built-in one")
	return cmd
}

func printVibe(p *vibe.Profile) {
	fmt.Println(StyleTitle.Render(string(p.ID)) + " " + StyleDim.Render(p.Name))
	if p.Base {
		printDetail("upstream style, tiles served unchanged")
		return
	}

	var swatches []string
	for _, c := range []string{p.Background, p.Land, p.Water, p.Road, p.Label} {
		swatches = append(swatches, lipgloss.NewStyle().Background(lipgloss.Color(c)).Render("  ")+" "+StyleDim.Render(c))
	}
	fmt.Println("  " + strings.Join(swatches, "  "))

	var extras []string
	if p.HasFont() {
		extras = append(extras, "font "+StyleValue.Render(p.Font))
	}
	if p.HasHalo() {
		extras = append(extras, fmt.Sprintf("halo %s/%g", p.Halo.Color, p.Halo.Width))
	}
	if p.Sprite {
		extras = append(extras, "own sprites")
	}
	if _, ok := transform.PipelineFor(p.ID); !ok {
		extras = append(extras, "tiles unchanged")
	}
	if len(extras) > 0 {
		printDetail("%s", strings.Join(extras, " · "))
	}
}
