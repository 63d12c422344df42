package postprocess

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// transform describes what convertFile does between decode and encode.
type transform struct {
	grayscale    bool
	maxDimension int
}

// Grayscale converts each frame to 8-bit luma and writes it to
// destDir/<same name>, re-encoded in the format it was decoded from.
// destDir is created if absent.
//
// Files are processed in name order. Per-file failures are collected into
// a *BatchError returned alongside the Report; the other files are still
// converted.
func Grayscale(frames []string, destDir string) (*Report, error) {
	return process(frames, destDir, "Converting to grayscale", func(src, dst string) (bool, *model.PipelineError) {
		return true, convertFile(src, dst, transform{grayscale: true})
	})
}

// GrayscaleDir runs Grayscale over the *.png files of srcDir.
func GrayscaleDir(srcDir, destDir string) (*Report, error) {
	frames, err := ListImages(srcDir)
	if err != nil {
		return nil, err
	}
	return Grayscale(frames, destDir)
}

// ListImages returns the *.png regular files of dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, model.WrapPipelineError(model.KindConversion, "postprocess",
			fmt.Sprintf("failed to list %s", dir), err)
	}

	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match("*.png", e.Name()); ok {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// process creates destDir and applies fn to every frame in name order.
// fn reports whether the output was converted (as opposed to copied).
func process(frames []string, destDir, action string, fn func(src, dst string) (bool, *model.PipelineError)) (*Report, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &model.PipelineError{
			Kind: model.KindConversion, Stage: "postprocess", ExitCode: -1, Path: destDir,
			Message: fmt.Sprintf("failed to create %s", destDir), Err: err,
		}
	}

	ordered := make([]string, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		return filepath.Base(ordered[i]) < filepath.Base(ordered[j])
	})

	log.Info().Int("files", len(ordered)).Str("dest", destDir).Msg(action)

	var b batch
	for _, src := range ordered {
		dst := filepath.Join(destDir, filepath.Base(src))
		converted, perr := fn(src, dst)
		if perr != nil {
			log.Warn().Err(perr).Str("file", src).Msg("Skipping file")
			b.fail(src, perr)
			continue
		}
		b.ok(dst, converted)
	}

	log.Info().
		Int("converted", b.report.Converted).
		Int("copied", b.report.Copied).
		Int("failed", len(b.report.Failed)).
		Str("dest", destDir).
		Msg("Batch finished")
	return b.result()
}

// convertFile decodes src, applies t and encodes the result to dst in the
// source format.
func convertFile(src, dst string, t transform) *model.PipelineError {
	img, format, err := decodeFile(src)
	if err != nil {
		return conversionError(src, "decode failed", err)
	}
	if !canEncode(format) {
		return conversionError(src, fmt.Sprintf("cannot re-encode %s images", format), nil)
	}

	var out image.Image = img
	if t.grayscale {
		out = toGray(out)
	}
	if t.maxDimension > 0 {
		out = downscale(out, t.maxDimension)
	}

	f, err := os.Create(dst)
	if err != nil {
		return conversionError(src, "failed to create output", err)
	}
	if err := encode(f, out, format); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return conversionError(src, "encode failed", err)
	}
	if err := f.Close(); err != nil {
		return conversionError(src, "failed to write output", err)
	}
	return nil
}
