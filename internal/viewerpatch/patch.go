package viewerpatch

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"text/template"

	"github.com/rs/zerolog/log"

	"github.com/mmr-tortoise/splat-orbit/internal/model"
)

// Patch names, as reported by Apply.
const (
	PatchCameraInfo         = "camera-info"
	PatchDefaultCamera      = "default-camera"
	PatchCameraUpdateToggle = "camera-update-toggle"
)

const stage = "viewer-patch"

//go:embed snippets/camera-info.css
var cameraInfoCSS string

//go:embed snippets/camera-info.html
var cameraInfoHTML string

//go:embed snippets/camera-info.js
var cameraInfoJS string

//go:embed snippets/camera-update.js
var cameraUpdateJS string

//go:embed snippets/default-camera.js.tmpl
var defaultCameraSrc string

var defaultCameraTmpl = template.Must(template.New("default-camera").
	Funcs(template.FuncMap{"num": model.FormatFloat}).
	Parse(defaultCameraSrc))

// Markers left in a patched document.
const (
	cameraInfoMarker    = `id="camera-info"`
	defaultCameraMarker = "/* splat-orbit:default-camera */"
	toggleMarker        = "window.disableCameraUpdate"
)

var (
	bodyOpenRe  = regexp.MustCompile(`(?i)<body[^>]*>`)
	headCloseRe = regexp.MustCompile(`(?i)</head\s*>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body\s*>`)

	// updateHandlerRe matches the generator's per-frame camera update
	// handler up to the first closing "});" after applyCamera.
	updateHandlerRe = regexp.MustCompile(
		`app\.on\('update', \(deltaTime\) => \{[\s\S]*?applyCamera\(this\.cameraManager\.camera\);[\s\S]*?\}\);`)
)

// CameraPose is a camera position and Euler rotation. Rotation is in
// degrees, which is what the viewer engine's setEulerAngles takes.
type CameraPose struct {
	Position model.Vec3 `json:"position"`
	Rotation model.Vec3 `json:"rotation"`
}

// DefaultPose looks at the scene from the origin, turned to face the way
// the bundled scenes are captured.
func DefaultPose() CameraPose {
	return CameraPose{Rotation: model.Vec3{X: 180, Z: 180}}
}

// Options selects the patches to apply. A nil DefaultCamera skips the
// default-camera patch.
type Options struct {
	CameraInfo         bool
	DefaultCamera      *CameraPose
	CameraUpdateToggle bool
}

// Empty reports whether no patch is selected.
func (o Options) Empty() bool {
	return !o.CameraInfo && o.DefaultCamera == nil && !o.CameraUpdateToggle
}

// Apply returns doc with the selected patches applied and the names of
// the patches that changed it. Patches already present are skipped.
func Apply(doc string, opts Options) (string, []string, error) {
	var applied []string

	// The update handler is rewritten first: it is the only patch that
	// matches generator code, and later insertions must not shift into it.
	if opts.CameraUpdateToggle && !strings.Contains(doc, toggleMarker) {
		loc := updateHandlerRe.FindStringIndex(doc)
		if loc == nil {
			return "", nil, model.NewPipelineError(model.KindViewer, stage,
				"camera update handler not found in viewer document; the viewer generator version may not be supported")
		}
		doc = doc[:loc[0]] + strings.TrimRight(cameraUpdateJS, "\n") + doc[loc[1]:]
		applied = append(applied, PatchCameraUpdateToggle)
	}

	if opts.CameraInfo && !strings.Contains(doc, cameraInfoMarker) {
		var err error
		doc, err = insertAfterBodyOpen(doc, cameraInfoHTML)
		if err != nil {
			return "", nil, err
		}
		doc = insertStyle(doc, cameraInfoCSS)
		doc = insertScript(doc, cameraInfoJS)
		applied = append(applied, PatchCameraInfo)
	}

	if opts.DefaultCamera != nil && !strings.Contains(doc, defaultCameraMarker) {
		var buf bytes.Buffer
		if err := defaultCameraTmpl.Execute(&buf, opts.DefaultCamera); err != nil {
			return "", nil, model.WrapPipelineError(model.KindViewer, stage, "failed to render default camera script", err)
		}
		doc = insertScript(doc, buf.String())
		applied = append(applied, PatchDefaultCamera)
	}

	return doc, applied, nil
}

// ApplyFile patches the document at path in place and returns the names
// of the applied patches. The file is only rewritten when something
// changed, and keeps its permission bits.
func ApplyFile(path string, opts Options) ([]string, error) {
	if opts.Empty() {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &model.PipelineError{
			Kind: model.KindUsage, Stage: stage, ExitCode: -1, Path: path,
			Message: fmt.Sprintf("cannot read viewer document %s", path), Err: err,
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.PipelineError{
			Kind: model.KindViewer, Stage: stage, ExitCode: -1, Path: path,
			Message: fmt.Sprintf("failed to read viewer document %s", path), Err: err,
		}
	}

	out, applied, err := Apply(string(data), opts)
	if err != nil {
		var pe *model.PipelineError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, err
	}
	if len(applied) == 0 {
		log.Debug().Str("path", path).Msg("Viewer document already patched")
		return nil, nil
	}

	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return nil, &model.PipelineError{
			Kind: model.KindViewer, Stage: stage, ExitCode: -1, Path: path,
			Message: fmt.Sprintf("failed to write viewer document %s", path), Err: err,
		}
	}
	log.Info().Str("path", path).Strs("patches", applied).Msg("Viewer document patched")
	return applied, nil
}

func insertAfterBodyOpen(doc, fragment string) (string, error) {
	loc := bodyOpenRe.FindStringIndex(doc)
	if loc == nil {
		return "", model.NewPipelineError(model.KindViewer, stage, "viewer document has no <body> element")
	}
	return doc[:loc[1]] + "\n" + fragment + doc[loc[1]:], nil
}

// insertStyle adds css in its own <style> element at the end of <head>,
// or right after <body> when the document has no head.
func insertStyle(doc, css string) string {
	el := "<style>\n" + css + "</style>\n"
	if i := lastIndex(headCloseRe, doc); i >= 0 {
		return doc[:i] + el + doc[i:]
	}
	if loc := bodyOpenRe.FindStringIndex(doc); loc != nil {
		return doc[:loc[1]] + "\n" + el + doc[loc[1]:]
	}
	return el + doc
}

// insertScript adds js in its own <script> element before the last
// </body>, or at the end of the document.
func insertScript(doc, js string) string {
	el := "<script>\n" + js + "</script>\n"
	if i := lastIndex(bodyCloseRe, doc); i >= 0 {
		return doc[:i] + el + doc[i:]
	}
	return doc + "\n" + el
}

// lastIndex returns the start of the last match of re in s, or -1.
func lastIndex(re *regexp.Regexp, s string) int {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return -1
	}
	return locs[len(locs)-1][0]
}
