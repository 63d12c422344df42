package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/logging"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/render"
	"github.com/mmr-tortoise/splat-orbit/internal/viewerpatch"
)

// viewerFlags holds the flag values for the viewer command.
type viewerFlags struct {
	width  int
	height int
	patch  patchFlags
}

// NewViewerCommand creates the "viewer" command.
func NewViewerCommand() *cobra.Command {
	flags := &viewerFlags{}

	cmd := &cobra.Command{
		Use:   "viewer <input-scene> <output.html>",
		Short: "Generate a self-contained interactive HTML viewer",
		Long: `Generate a single self-contained HTML document that displays the scene
interactively. The output directory is created if needed and an existing
file is overwritten.

The --camera-* flags post-process the generated document the same way the
viewer-patch command does.

Examples:
  splat-orbit viewer input/sharp.ply output/viewer.html
  splat-orbit viewer input/sharp.ply viewer.html --width 1280 --height 720
  splat-orbit viewer input/sharp.ply viewer.html --camera-info --default-camera`,

		Args: cobra.ExactArgs(2),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runViewer(cmd, args[0], args[1], flags)
		},
	}

	cmd.Flags().IntVar(&flags.width, "width", model.DefaultWidth, "Viewer width in pixels")
	cmd.Flags().IntVar(&flags.height, "height", model.DefaultHeight, "Viewer height in pixels")
	bindPatchFlags(cmd, &flags.patch)

	return cmd
}

func runViewer(cmd *cobra.Command, input, output string, flags *viewerFlags) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	req := model.ViewerRequest{
		InputPath:  input,
		OutputPath: output,
		Width:      env.cfg.Viewer.Width,
		Height:     env.cfg.Viewer.Height,
	}
	if cmd.Flags().Changed("width") {
		req.Width = flags.width
	}
	if cmd.Flags().Changed("height") {
		req.Height = flags.height
	}
	if err := req.Validate(); err != nil {
		return usageError("%v", err)
	}
	patch, err := patchOptions(cmd, &flags.patch)
	if err != nil {
		return err
	}

	run := logging.NewRunLogger("viewer", env.runID).
		Version(Version).
		Backend(env.backend.String()).
		Path("scene", input).
		Path("output", output).
		Param("width", strconv.Itoa(req.Width)).
		Param("height", strconv.Itoa(req.Height))

	ctx := cmd.Context()
	path, err := func() (string, error) {
		sess, release, err := env.session(ctx)
		if err != nil {
			return "", err
		}
		defer release()
		run.Runtime(sess.RuntimeVersion()).Path("build", sess.DistPath())
		return render.Viewer(ctx, sess, req)
	}()
	var applied []string
	if err == nil {
		applied, err = viewerpatch.ApplyFile(path, patch)
		for _, name := range applied {
			run.Feature(name, true)
		}
	}
	run.Log(err)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		if applied == nil {
			applied = []string{}
		}
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
			"runId":   env.runID,
			"output":  path,
			"patches": applied,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Viewer written to %s\n", path)
	if len(applied) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Applied patches: %v\n", applied)
	}
	return nil
}
