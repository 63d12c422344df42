package postprocess

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	// Registers the WebP decoder. There is no pure Go WebP encoder.
	_ "golang.org/x/image/webp"
)

const jpegQuality = 95

// decodeFile decodes the image at path and reports its registered format
// name ("png", "jpeg", "bmp", "tiff", "webp").
func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// encode writes img to w in the named format.
func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("encoding %s images is not supported", format)
	}
}

// canEncode reports whether encode supports format.
func canEncode(format string) bool {
	switch format {
	case "png", "jpeg", "bmp", "tiff":
		return true
	default:
		return false
	}
}

// toGray converts img to 8-bit luma. draw.Draw goes through
// color.GrayModel, which applies the ITU-R BT.601 weights.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// fitDimensions scales width x height down so the longest edge is at most
// maxDimension, keeping the aspect ratio. Sizes already within the bound
// are returned unchanged.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	if width >= height {
		h := int(float64(height) * float64(maxDimension) / float64(width))
		return maxDimension, max(h, 1)
	}
	w := int(float64(width) * float64(maxDimension) / float64(height))
	return max(w, 1), maxDimension
}

// downscale resizes img with Catmull-Rom so its longest edge is at most
// maxDimension. Grayscale input stays grayscale.
func downscale(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := fitDimensions(b.Dx(), b.Dy(), maxDimension)
	if w == b.Dx() && h == b.Dy() {
		return img
	}

	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
