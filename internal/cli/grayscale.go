package cli

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/logging"
	"github.com/mmr-tortoise/splat-orbit/internal/postprocess"
)

// NewGrayscaleCommand creates the "grayscale" command, which converts the
// PNG frames of an existing render.
func NewGrayscaleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grayscale <src-dir> <dest-dir>",
		Short: "Convert every PNG in a directory to grayscale",
		Long: `Convert every *.png file of src-dir to 8-bit grayscale and write it under
the same name to dest-dir. A file that fails to convert is reported and
the remaining files are still converted.

Example:
  splat-orbit grayscale output output/grayscale`,

		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			run := logging.NewRunLogger("grayscale", uuid.NewString()).
				Version(Version).
				Path("src", args[0]).
				Path("dest", args[1])

			report, err := postprocess.GrayscaleDir(args[0], args[1])
			if report != nil {
				run.Count("converted", report.Converted).Count("failed", len(report.Failed))
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
}

// printReport writes a post-processing report in text or JSON.
func printReport(w io.Writer, report *postprocess.Report, dest string) error {
	if IsJSONOutput() {
		out := struct {
			*postprocess.Report
			Dest string `json:"dest"`
		}{report, dest}
		return writeJSON(w, out)
	}

	fmt.Fprintf(w, "%d converted, %d copied, %d failed -> %s\n",
		report.Converted, report.Copied, len(report.Failed), dest)
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  failed: %s\n", f)
	}
	return nil
}
