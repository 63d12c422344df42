package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/config"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// NewPresetsCommand creates the "presets" command, which lists the render
// presets --preset accepts.
func NewPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the render parameter presets",
		Long: `List the built-in presets and those defined under "presets:" in the
configuration file, with the parameters each resolves to.

Example:
  splat-orbit presets
  splat-orbit input/sharp.ply output --preset quick_preview`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment()
			if err != nil {
				return err
			}
			return printPresets(cmd.OutOrStdout(), env.cfg)
		},
	}
}

// presetJSON is one entry of the --json preset list.
type presetJSON struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Options     model.RenderOptions `json:"options"`
}

// printPresets outputs every preset applied to the configured render
// defaults, as a table or JSON.
//
//	NAME           FRAMES  SIZE       RADIUS  FOV  DESCRIPTION
//	quick_preview  12      640x360    2       45   Few small frames to check framing
func printPresets(w io.Writer, cfg *config.Config) error {
	list := make([]presetJSON, 0, len(cfg.Presets))
	for _, name := range cfg.PresetNames() {
		p := cfg.Presets[name]
		list = append(list, presetJSON{Name: name, Description: p.Description, Options: p.Apply(cfg.Render)})
	}

	if IsJSONOutput() {
		return writeJSON(w, list)
	}

	fmt.Fprintf(w, "%-15s %-7s %-10s %-7s %-4s %s\n", "NAME", "FRAMES", "SIZE", "RADIUS", "FOV", "DESCRIPTION")
	for _, p := range list {
		o := p.Options
		fmt.Fprintf(w, "%-15s %-7d %-10s %-7s %-4s %s\n",
			p.Name, o.Frames, fmt.Sprintf("%dx%d", o.Width, o.Height),
			model.FormatFloat(o.Radius), model.FormatFloat(o.FOV), p.Description)
	}
	return nil
}
