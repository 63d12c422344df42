package postprocess

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// StageOptions controls how frames are prepared for the downstream image
// pipeline.
type StageOptions struct {
	// Grayscale converts each frame instead of copying it.
	Grayscale bool

	// MaxDimension, when positive, downsizes each frame so its longest
	// edge is at most this many pixels. Frames are then re-encoded even
	// without Grayscale.
	MaxDimension int
}

// Stage writes every frame into destDir under its own name, creating
// destDir and its parents if needed. Without options the bytes are copied
// unchanged.
func Stage(frames []string, destDir string, opts StageOptions) (*Report, error) {
	t := transform{grayscale: opts.Grayscale, maxDimension: opts.MaxDimension}
	convert := t.grayscale || t.maxDimension > 0

	return process(frames, destDir, "Staging frames", func(src, dst string) (bool, *model.PipelineError) {
		if convert {
			return true, convertFile(src, dst, t)
		}
		return false, copyFile(src, dst)
	})
}

// StageDir runs Stage over the *.png files of srcDir.
func StageDir(srcDir, destDir string, opts StageOptions) (*Report, error) {
	frames, err := ListImages(srcDir)
	if err != nil {
		return nil, err
	}
	return Stage(frames, destDir, opts)
}

// copyFile copies src to dst byte for byte, preserving the file mode.
// Copying a file onto itself is a no-op.
func copyFile(src, dst string) *model.PipelineError {
	if filepath.Clean(src) == filepath.Clean(dst) {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return conversionError(src, "failed to open", err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return conversionError(src, "failed to stat", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return conversionError(src, fmt.Sprintf("failed to create %s", dst), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return conversionError(src, fmt.Sprintf("failed to copy to %s", dst), err)
	}
	if err := out.Close(); err != nil {
		return conversionError(src, fmt.Sprintf("failed to write %s", dst), err)
	}
	return nil
}
