package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/splat-orbit/internal/logging"
	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command output (and error output) to JSON.
	jsonOutput bool

	// verbose lowers the default log level to debug.
	verbose bool

	// logLevel is the explicit log level; it wins over verbose and
	// SPLAT_ORBIT_LOG_LEVEL.
	logLevel string

	// projectRoot is the directory holding package.json, bin/cli.mjs and
	// the renderer wrapper.
	projectRoot string

	// configPath is an explicit configuration file.
	configPath string

	// backendName overrides the configured launcher backend.
	backendName string

	// lenientPrepare downgrades install/build failures to warnings.
	lenientPrepare bool
)

// Version, Commit and Date are set at build time via ldflags, injected
// from the main package.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates the root command with every subcommand
// registered.
func NewRootCommand() *cobra.Command {
	flags := &renderFlags{}

	rootCmd := &cobra.Command{
		Use:   "splat-orbit <input-scene> <output-dir>",
		Short: "Render orbiting image sequences of splat scenes",
		Long: `splat-orbit drives an external splat renderer to produce an orbiting
camera image sequence from a single PLY scene, then optionally converts the
frames to grayscale and stages them for a downstream image pipeline.

The first run installs the renderer's dependencies and builds it; later
runs skip both steps.

Examples:
  splat-orbit input/sharp.ply output
  splat-orbit input/sharp.ply output --frames 72 --radius 3 --grayscale
  splat-orbit input/sharp.ply output --auto-target --comfyui ../ComfyUI/input`,

		Args: cobra.ExactArgs(2),

		// Errors are printed by Execute, in text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging(cmd)
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], args[1], flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $"+logging.EnvLogLevel+" or info)")
	pf.StringVar(&projectRoot, "project-root", ".", "Directory containing package.json and the renderer wrapper")
	pf.StringVar(&configPath, "config", "", "Configuration file (default: splat-orbit.{yaml,yml,jsonc,json} in the project root)")
	pf.StringVar(&backendName, "backend", "", "Process backend: local or docker (default: from config, else local)")
	pf.BoolVar(&lenientPrepare, "lenient-prepare", false, "Continue with a warning when dependency install or build fails")

	bindRenderFlags(rootCmd, flags)

	rootCmd.AddCommand(NewViewerCommand())
	rootCmd.AddCommand(NewGrayscaleCommand())
	rootCmd.AddCommand(NewStageCommand())
	rootCmd.AddCommand(NewAnalyzeCommand())
	rootCmd.AddCommand(NewPruneCommand())
	rootCmd.AddCommand(NewPresetsCommand())
	rootCmd.AddCommand(NewViewerPatchCommand())

	return rootCmd
}

// initLogging configures zerolog from the global flags. --quiet on the
// render command raises the default level to warn.
func initLogging(cmd *cobra.Command) {
	fallback := zerolog.InfoLevel
	if verbose {
		fallback = zerolog.DebugLevel
	} else if q := cmd.Flags().Lookup("quiet"); q != nil && q.Value.String() == "true" {
		fallback = zerolog.WarnLevel
	}
	logging.InitWriter(cmd.ErrOrStderr(), logLevel, fallback)
}

// Execute runs the root command and exits with the code carried by the
// error: a CLIError's own code, 1 for anything else.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(reportError(os.Stderr, err)))
	}
}

// reportError prints err to w and returns the exit code to use.
func reportError(w io.Writer, err error) model.ExitCode {
	code := model.ExitFailure
	message, underlying := err.Error(), error(nil)

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		message, underlying = cliErr.Message, cliErr.Err
		if cliErr.Code != model.ExitSuccess {
			code = cliErr.Code
		}
	}

	var pe *model.PipelineError
	_ = errors.As(err, &pe)
	printError(w, message, underlying, pe)
	return code
}

// printError writes an error message as text ("Error: <message>") or, with
// --json, as {"error": {"message", "detail", "kind", "stage"}}.
func printError(w io.Writer, message string, underlying error, pe *model.PipelineError) {
	if !jsonOutput {
		if underlying != nil {
			fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(w, "Error: %s\n", message)
		}
		return
	}

	errObj := map[string]interface{}{"message": message}
	if underlying != nil {
		errObj["detail"] = underlying.Error()
	}
	if pe != nil {
		errObj["kind"] = pe.Kind.String()
		if pe.Stage != "" {
			errObj["stage"] = pe.Stage
		}
		if pe.ExitCode > 0 {
			errObj["exitCode"] = pe.ExitCode
		}
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
	fmt.Fprintln(w, string(data))
}
