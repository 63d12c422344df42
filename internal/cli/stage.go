package cli

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/logging"
	"github.com/mmr-tortoise/splat-orbit/internal/postprocess"
)

// stageFlags holds the flag values for the stage command.
type stageFlags struct {
	grayscale    bool
	maxDimension int
}

// NewStageCommand creates the "stage" command, which prepares rendered
// frames as input for a downstream image pipeline such as ComfyUI.
func NewStageCommand() *cobra.Command {
	flags := &stageFlags{}

	cmd := &cobra.Command{
		Use:   "stage <src-dir> <dest-dir>",
		Short: "Copy frames into another pipeline's input directory",
		Long: `Copy every *.png frame of src-dir into dest-dir under the same name,
creating dest-dir if needed. With --grayscale or --max-dimension the frames
are converted instead of copied.

Examples:
  splat-orbit stage output ../ComfyUI/input/orbit
  splat-orbit stage output ../ComfyUI/input/orbit --grayscale --max-dimension 1024`,

		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.maxDimension < 0 {
				return usageError("--max-dimension must not be negative, got %d", flags.maxDimension)
			}

			run := logging.NewRunLogger("stage", uuid.NewString()).
				Version(Version).
				Path("src", args[0]).
				Path("dest", args[1]).
				Param("maxDimension", strconv.Itoa(flags.maxDimension)).
				Feature("grayscale", flags.grayscale)

			report, err := postprocess.StageDir(args[0], args[1], postprocess.StageOptions{
				Grayscale:    flags.grayscale,
				MaxDimension: flags.maxDimension,
			})
			if report != nil {
				run.Count("converted", report.Converted).
					Count("copied", report.Copied).
					Count("failed", len(report.Failed))
			}
			run.Log(err)
			if report != nil {
				if perr := printReport(cmd.OutOrStdout(), report, args[1]); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&flags.grayscale, "grayscale", false, "Convert frames to grayscale")
	cmd.Flags().IntVar(&flags.maxDimension, "max-dimension", 0, "Downsize frames so the longest edge is at most N pixels (0: keep size)")

	return cmd
}
