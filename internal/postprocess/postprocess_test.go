package postprocess

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// sampleImage returns a w x h RGBA gradient with a saturated red first
// pixel, so luma conversion is observable.
func sampleImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 200, A: 255})
		}
	}
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	return img
}

// writeImage encodes a sample image in format and returns its path.
func writeImage(t *testing.T, dir, name, format string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img := sampleImage(w, h)
	switch format {
	case "png":
		require.NoError(t, png.Encode(f, img))
	case "jpeg":
		require.NoError(t, jpeg.Encode(f, img, nil))
	case "bmp":
		require.NoError(t, bmp.Encode(f, img))
	case "tiff":
		require.NoError(t, tiff.Encode(f, img, nil))
	default:
		t.Fatalf("unknown format %s", format)
	}
	return path
}

// decode opens path and decodes it with the registered decoders.
func decode(t *testing.T, path string) (image.Image, string) {
	t.Helper()
	img, format, err := decodeFile(path)
	require.NoError(t, err)
	return img, format
}

// frameSet writes n PNG frames named like renderer output.
func frameSet(t *testing.T, dir string, n int) []string {
	t.Helper()
	var frames []string
	for i := 0; i < n; i++ {
		frames = append(frames, writeImage(t, dir, "frame_000"+string(rune('0'+i))+".png", "png", 8, 4))
	}
	return frames
}

// TestGrayscale_Correspondence verifies one single-channel output per
// input, under the same name, with the luma of the source pixels.
func TestGrayscale_Correspondence(t *testing.T) {
	src := t.TempDir()
	dest := filepath.Join(t.TempDir(), "grayscale")
	frames := frameSet(t, src, 3)

	report, err := Grayscale(frames, dest)
	require.NoError(t, err)
	require.Len(t, report.Outputs, 3)
	assert.Equal(t, 3, report.Converted)
	assert.Empty(t, report.Failed)

	for i, in := range frames {
		out := report.Outputs[i]
		assert.Equal(t, filepath.Join(dest, filepath.Base(in)), out)

		img, format := decode(t, out)
		assert.Equal(t, "png", format)
		gray, ok := img.(*image.Gray)
		require.True(t, ok, "output %s should be single-channel, got %T", out, img)

		orig, _ := decode(t, in)
		assert.Equal(t, orig.Bounds().Size(), gray.Bounds().Size())
		want := color.GrayModel.Convert(orig.At(0, 0)).(color.Gray)
		assert.Equal(t, want, gray.GrayAt(0, 0))
		assert.Equal(t, uint8(76), gray.GrayAt(0, 0).Y, "BT.601 luma of pure red")
	}
}

// TestGrayscale_KeepsFormat verifies re-encoding in the decoded format.
func TestGrayscale_KeepsFormat(t *testing.T) {
	tests := []struct {
		format   string
		name     string
		wantGray bool
	}{
		{"png", "a.png", true},
		{"jpeg", "b.jpg", true},
		{"tiff", "c.tiff", true},
		{"bmp", "d.bmp", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			in := writeImage(t, t.TempDir(), tt.name, tt.format, 16, 8)
			dest := t.TempDir()

			report, err := Grayscale([]string{in}, dest)
			require.NoError(t, err)
			require.Len(t, report.Outputs, 1)

			img, format := decode(t, report.Outputs[0])
			assert.Equal(t, tt.format, format)
			if tt.wantGray {
				assert.IsType(t, &image.Gray{}, img)
			}
			// Every pixel is neutral whatever the in-memory model.
			r, g, b, _ := img.At(3, 5).RGBA()
			assert.Equal(t, r, g)
			assert.Equal(t, g, b)
		})
	}
}

// TestGrayscale_ContinuesPastFailures verifies that a corrupt file is
// reported while its siblings are still converted.
func TestGrayscale_ContinuesPastFailures(t *testing.T) {
	src := t.TempDir()
	first := writeImage(t, src, "frame_0000.png", "png", 4, 4)
	broken := filepath.Join(src, "frame_0001.png")
	require.NoError(t, os.WriteFile(broken, []byte("not a png"), 0o644))
	last := writeImage(t, src, "frame_0002.png", "png", 4, 4)

	dest := t.TempDir()
	report, err := Grayscale([]string{last, broken, first}, dest)
	require.Error(t, err)
	require.NotNil(t, report)

	assert.Equal(t, []string{
		filepath.Join(dest, "frame_0000.png"),
		filepath.Join(dest, "frame_0002.png"),
	}, report.Outputs, "outputs follow name order")
	assert.Equal(t, []string{broken}, report.Failed)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	require.Len(t, batchErr.Failures, 1)
	assert.Equal(t, broken, batchErr.Failures[0].Path)
	assert.True(t, model.IsKind(err, model.KindConversion))
	assert.Contains(t, err.Error(), "1 file(s) failed")

	assert.NoFileExists(t, filepath.Join(dest, "frame_0001.png"))
}

// TestGrayscale_MissingInput verifies a vanished file is a conversion
// error for that file only.
func TestGrayscale_MissingInput(t *testing.T) {
	report, err := Grayscale([]string{filepath.Join(t.TempDir(), "gone.png")}, t.TempDir())
	require.Error(t, err)
	assert.True(t, model.IsKind(err, model.KindConversion))
	assert.Len(t, report.Failed, 1)
}

// TestGrayscaleDir verifies directory listing: only *.png files, sorted,
// and the output subdirectory does not feed back into the input.
func TestGrayscaleDir(t *testing.T) {
	src := t.TempDir()
	frameSet(t, src, 2)
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("x"), 0o644))
	writeImage(t, src, "cover.jpg", "jpeg", 4, 4)

	dest := filepath.Join(src, "grayscale")
	report, err := GrayscaleDir(src, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dest, "frame_0000.png"),
		filepath.Join(dest, "frame_0001.png"),
	}, report.Outputs)

	// A second run sees the same two inputs.
	report, err = GrayscaleDir(src, dest)
	require.NoError(t, err)
	assert.Len(t, report.Outputs, 2)
}

// TestStage_Copy verifies byte-identical staging into a new nested
// directory.
func TestStage_Copy(t *testing.T) {
	src := t.TempDir()
	frames := frameSet(t, src, 2)
	dest := filepath.Join(t.TempDir(), "comfyui", "input")

	report, err := Stage(frames, dest, StageOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Copied)
	assert.Zero(t, report.Converted)

	for _, in := range frames {
		want, err := os.ReadFile(in)
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dest, filepath.Base(in)))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

// TestStage_Grayscale verifies staging through the converter.
func TestStage_Grayscale(t *testing.T) {
	frames := frameSet(t, t.TempDir(), 2)
	dest := t.TempDir()

	report, err := Stage(frames, dest, StageOptions{Grayscale: true})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Converted)

	img, _ := decode(t, report.Outputs[1])
	assert.IsType(t, &image.Gray{}, img)
}

// TestStage_MaxDimension verifies downscaling with and without grayscale.
func TestStage_MaxDimension(t *testing.T) {
	in := writeImage(t, t.TempDir(), "frame_0000.png", "png", 40, 20)

	report, err := Stage([]string{in}, t.TempDir(), StageOptions{MaxDimension: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Converted)
	img, _ := decode(t, report.Outputs[0])
	assert.Equal(t, image.Pt(10, 5), img.Bounds().Size())

	report, err = Stage([]string{in}, t.TempDir(), StageOptions{Grayscale: true, MaxDimension: 10})
	require.NoError(t, err)
	img, _ = decode(t, report.Outputs[0])
	assert.IsType(t, &image.Gray{}, img)
	assert.Equal(t, image.Pt(10, 5), img.Bounds().Size())
}

// TestStageDir_Empty verifies that an empty source still creates the
// destination and reports nothing.
func TestStageDir_Empty(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	report, err := StageDir(t.TempDir(), dest, StageOptions{Grayscale: true})
	require.NoError(t, err)
	assert.Empty(t, report.Outputs)
	assert.DirExists(t, dest)
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{1920, 1080, 0, 1920, 1080},
		{1920, 1080, 2048, 1920, 1080},
		{1920, 1080, 960, 960, 540},
		{1080, 1920, 960, 540, 960},
		{1000, 1000, 500, 500, 500},
		{4000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := fitDimensions(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w, "%dx%d max %d", tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantH, h, "%dx%d max %d", tt.w, tt.h, tt.max)
	}
}

func TestCanEncode(t *testing.T) {
	for _, f := range []string{"png", "jpeg", "bmp", "tiff"} {
		assert.True(t, canEncode(f), f)
	}
	assert.False(t, canEncode("webp"))
	assert.False(t, canEncode("gif"))
}
