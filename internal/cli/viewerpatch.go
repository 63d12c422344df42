package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
	"github.com/mmr-tortoise/splat-orbit/internal/viewerpatch"
)

// patchFlags holds the viewer post-processing flags shared by the viewer
// and viewer-patch commands.
type patchFlags struct {
	cameraInfo     bool
	defaultCamera  bool
	cameraPosition string
	cameraRotation string
	updateToggle   bool
}

func bindPatchFlags(cmd *cobra.Command, f *patchFlags) {
	pose := viewerpatch.DefaultPose()
	cmd.Flags().BoolVar(&f.cameraInfo, "camera-info", false, "Overlay the live camera position and rotation")
	cmd.Flags().BoolVar(&f.defaultCamera, "default-camera", false, "Move the camera to a fixed pose once the scene loads")
	cmd.Flags().StringVar(&f.cameraPosition, "camera-position", pose.Position.String(),
		"Default camera position X,Y,Z (implies --default-camera)")
	cmd.Flags().StringVar(&f.cameraRotation, "camera-rotation", pose.Rotation.String(),
		"Default camera Euler rotation X,Y,Z in degrees (implies --default-camera)")
	cmd.Flags().BoolVar(&f.updateToggle, "camera-update-toggle", false,
		"Let window.disableCameraUpdate freeze the camera controller")
}

// patchOptions turns the parsed flags into viewerpatch options.
func patchOptions(cmd *cobra.Command, f *patchFlags) (viewerpatch.Options, error) {
	opts := viewerpatch.Options{
		CameraInfo:         f.cameraInfo,
		CameraUpdateToggle: f.updateToggle,
	}

	if f.defaultCamera || cmd.Flags().Changed("camera-position") || cmd.Flags().Changed("camera-rotation") {
		pos, err := model.ParseVec3(f.cameraPosition)
		if err != nil {
			return opts, usageError("--camera-position: %v", err)
		}
		rot, err := model.ParseVec3(f.cameraRotation)
		if err != nil {
			return opts, usageError("--camera-rotation: %v", err)
		}
		opts.DefaultCamera = &viewerpatch.CameraPose{Position: pos, Rotation: rot}
	}
	return opts, nil
}

// NewViewerPatchCommand creates the "viewer-patch" command, which applies
// the viewer post-processing to an existing document.
func NewViewerPatchCommand() *cobra.Command {
	flags := &patchFlags{}

	cmd := &cobra.Command{
		Use:   "viewer-patch <viewer.html>",
		Short: "Add camera tooling to a generated viewer document",
		Long: `Patch a viewer document in place. Patches already present are skipped,
so the command can be run again with more flags.

Examples:
  splat-orbit viewer-patch output/viewer.html --camera-info
  splat-orbit viewer-patch output/viewer.html --camera-rotation 180,0,180 --camera-update-toggle`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := patchOptions(cmd, flags)
			if err != nil {
				return err
			}
			if opts.Empty() {
				return usageError("no patch selected; use --camera-info, --default-camera or --camera-update-toggle")
			}

			applied, err := viewerpatch.ApplyFile(args[0], opts)
			if err != nil {
				return err
			}
			return printPatched(cmd, args[0], applied)
		},
	}

	bindPatchFlags(cmd, flags)
	return cmd
}

func printPatched(cmd *cobra.Command, path string, applied []string) error {
	if applied == nil {
		applied = []string{}
	}
	if IsJSONOutput() {
		return writeJSON(cmd.OutOrStdout(), map[string]interface{}{"output": path, "patches": applied})
	}
	if len(applied) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already has the requested patches\n", path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Patched %s: %v\n", path, applied)
	return nil
}
