package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeNode stands in for the JavaScript runtime. The renderer entry
// copies $SPLAT_FAKE_FRAME once per requested frame and records its
// arguments in args.txt; the viewer entry writes a stub document.
const fakeNode = `#!/bin/sh
case "$1" in
--version)
  echo v22.11.0
  ;;
*index.mjs)
  if [ -n "$SPLAT_FAKE_FAIL" ]; then
    echo "renderer exploded" >&2
    exit 3
  fi
  all="$*"
  out=""
  frames=0
  while [ $# -gt 0 ]; do
    case "$1" in
    -o) out="$2"; shift ;;
    --frames) frames="$2"; shift ;;
    esac
    shift
  done
  echo "$all" > "$out/args.txt"
  i=0
  while [ $i -lt $frames ]; do
    cp "$SPLAT_FAKE_FRAME" "$out/$(printf 'frame_%04d.png' $i)"
    i=$((i+1))
  done
  ;;
*cli.mjs)
  echo '<html><body>viewer</body></html>' > "$4"
  ;;
*)
  echo "unexpected invocation: $*" >&2
  exit 2
  ;;
esac
`

// fakeNPM creates the marker files the session checks for.
const fakeNPM = `#!/bin/sh
case "$1" in
install)
  mkdir -p node_modules/fake && echo 'module.exports = {}' > node_modules/fake/index.js
  ;;
run)
  mkdir -p dist && echo 'export {}' > dist/index.mjs
  ;;
esac
`

// offsetPLY is a two point scene centred at (2, 3, 1.5).
const offsetPLY = `ply
format ascii 1.0
element vertex 2
property float x
property float y
property float z
end_header
1 1 1
3 5 2
`

// project is a fake project root with the fake toolchain on PATH.
type project struct {
	root  string
	scene string
}

// newProject lays out a project root, puts fake node and npm binaries
// first on PATH and points the fake renderer at a colour PNG frame.
func newProject(t *testing.T) *project {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain uses shell scripts")
	}

	root := t.TempDir()
	bin := t.TempDir()
	writeFile(t, filepath.Join(bin, "node"), fakeNode, 0o755)
	writeFile(t, filepath.Join(bin, "npm"), fakeNPM, 0o755)
	t.Setenv("PATH", bin+string(os.PathListSeparator)+os.Getenv("PATH"))

	writeFile(t, filepath.Join(root, "package.json"), `{"name":"splat-orbit-tools"}`, 0o644)
	writeFile(t, filepath.Join(root, "tools", "orbit-render", "package.json"), `{"name":"orbit-render"}`, 0o644)
	writeFile(t, filepath.Join(root, "tools", "orbit-render", "index.mjs"), "", 0o644)
	writeFile(t, filepath.Join(root, "bin", "cli.mjs"), "", 0o644)

	scene := filepath.Join(root, "input", "scene.ply")
	writeFile(t, scene, offsetPLY, 0o644)

	frame := filepath.Join(t.TempDir(), "frame.png")
	writePNG(t, frame, 6, 4)
	t.Setenv("SPLAT_FAKE_FRAME", frame)
	t.Setenv("SPLAT_FAKE_FAIL", "")

	return &project{root: root, scene: scene}
}

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

// writePNG writes a w x h colour image.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(60 * y), B: 180, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
}

// decodePNG decodes the image at path.
func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	require.NoError(t, err)
	return img
}

// runCLI executes a fresh root command with args and returns what it
// printed on stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(func() { jsonOutput = false })

	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
