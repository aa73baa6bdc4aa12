package storage

import (
	"net/url"
	"path"
	"strings"
)

// Friendly labels for well-known volume identifiers. Anything else is shown
// as best-effort decoded text rather than a raw opaque identifier.
var volumeLabels = map[string]string{
	"primary": "internal storage",
	"home":    "home folder",
}

// RenderDirectoryLabel decodes a directory URI into a short, user-facing
// label. file:// URIs and plain paths render as the path itself; grant URIs
// render their volume alias followed by the relative path.
func RenderDirectoryLabel(uri string) string {
	if !IsGrantURI(uri) {
		return strings.TrimPrefix(uri, "file://")
	}

	volume, relPath, err := ParseGrantURI(uri)
	if err != nil {
		return uri
	}

	label, ok := volumeLabels[volume]
	if !ok {
		label = decodeBestEffort(volume)
	}

	if relPath == "" {
		return label
	}
	return label + "/" + decodeBestEffort(relPath)
}

// RenderFileLabel renders a directory URI plus a file name as one label
func RenderFileLabel(dirURI, fileName string) string {
	return path.Join(RenderDirectoryLabel(dirURI), fileName)
}

// decodeBestEffort percent-decodes an identifier, falling back to the raw
// text when it is not valid percent-encoding.
func decodeBestEffort(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
