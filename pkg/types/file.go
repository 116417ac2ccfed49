package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Media types exercised by the default scenario set.
const (
	MediaJPEG = "image/jpeg"
	MediaTIFF = "image/tiff"
	MediaPNG  = "image/png"
)

var mediaByExt = map[string]string{
	".jpeg": MediaJPEG,
	".jpg":  MediaJPEG,
	".tif":  MediaTIFF,
	".tiff": MediaTIFF,
	".png":  MediaPNG,
}

// MediaTypeFor guesses the media type of path from its extension.
// Returns ErrUnsupportedMedia for anything else.
func MediaTypeFor(path string) (string, error) {
	mt, ok := mediaByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, filepath.Ext(path))
	}
	return mt, nil
}

// TestFile is a staged fixture whose embedded metadata the harness mutates.
// Its identity (path, URI) never changes during a run.
type TestFile struct {
	Name      string // path relative to the base directory
	Path      string // absolute path
	URI       string // file:// URI of Path
	MediaType string
}

// NewTestFile builds a TestFile for name under baseDir.
func NewTestFile(baseDir, name, mediaType string) TestFile {
	path := filepath.Join(baseDir, name)
	return TestFile{
		Name:      name,
		Path:      path,
		URI:       FileURI(path),
		MediaType: mediaType,
	}
}

// FileURI returns the file:// URI for an absolute path, written the way
// the store records nie:url values (no percent-encoding of the path).
func FileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// PathFromURI is the exact inverse of FileURI. The remainder after the
// scheme is taken verbatim, so '#', '?' and '%' in a path survive.
func PathFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, "file://")
	if !ok || !strings.HasPrefix(rest, "/") {
		return "", fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	return filepath.FromSlash(rest), nil
}
