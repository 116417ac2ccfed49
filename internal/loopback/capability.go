package loopback

import (
	"maps"
	"slices"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// Sidecar keys the writer can emit. Keywords and tag labels share a key,
// as they do in the embedded metadata of real files.
const (
	keyTitle       = types.PropTitle
	keyDescription = types.PropDescription
	keyLabels      = types.KeyTagLabel
)

// Capabilities lists, per media type, the sidecar keys writeback
// supports. Media types missing from the table are unsupported by the
// extractor.
type Capabilities map[string][]string

// DefaultCapabilities mirrors the desktop writeback modules: JPEG and TIFF
// carry every property, PNG only the title.
func DefaultCapabilities() Capabilities {
	all := []string{keyTitle, keyDescription, keyLabels}
	return Capabilities{
		types.MediaJPEG: all,
		types.MediaTIFF: slices.Clone(all),
		types.MediaPNG:  {keyTitle},
	}
}

// Supports reports whether key is written back for mediaType.
func (c Capabilities) Supports(mediaType, key string) bool {
	return slices.Contains(c[mediaType], key)
}

// Known reports whether mediaType has an entry.
func (c Capabilities) Known(mediaType string) bool {
	_, ok := c[mediaType]
	return ok
}

// filter drops the keys mediaType does not support.
func (c Capabilities) filter(mediaType string, md types.Metadata) types.Metadata {
	out := maps.Clone(md)
	maps.DeleteFunc(out, func(key string, values []string) bool {
		return len(values) == 0 || !c.Supports(mediaType, key)
	})
	return out
}
