// Package viewerpatch post-processes the HTML document written by the
// viewer generator.
//
// Three independent patches are available:
//   - camera-info: a fixed overlay that shows the live camera position and
//     rotation, useful when picking a --target or default pose
//   - default-camera: a script that moves the camera to a fixed pose once
//     the scene has loaded
//   - camera-update-toggle: rewrites the generator's per-frame update
//     handler so that setting window.disableCameraUpdate freezes the
//     camera controller
//
// Patches are applied by splicing text into the document rather than by
// re-serialising a parsed tree, so the generator's inline scripts are left
// byte-for-byte intact. Each patch leaves a marker behind and is skipped
// when the marker is already present, which makes Apply idempotent.
package viewerpatch
