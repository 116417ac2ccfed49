package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

func TestDefaultSet(t *testing.T) {
	set := DefaultSet("/home/tester")
	require.Len(t, set, 12)

	ids := make([]string, 0, len(set))
	for _, s := range set {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{
		"001_jpeg_title", "002_jpeg_description", "003_jpeg_keyword", "004_jpeg_hasTag",
		"011_tiff_title", "012_tiff_description", "013_tiff_keyword", "014_tiff_hasTag",
		"021_png_title", "022_png_description", "023_png_keyword", "024_png_hasTag",
	}, ids)

	byID := map[string]Scenario{}
	for _, s := range set {
		byID[s.ID] = s
	}

	t.Run("files and media types", func(t *testing.T) {
		jpeg := byID["001_jpeg_title"].File
		assert.Equal(t, "file:///home/tester/test-writeback-monitored/writeback-test-1.jpeg", jpeg.URI)
		assert.Equal(t, types.MediaJPEG, jpeg.MediaType)
		assert.Equal(t, types.MediaTIFF, byID["013_tiff_keyword"].File.MediaType)
		assert.Equal(t, "/home/tester/test-writeback-monitored/writeback-test-4.png", byID["024_png_hasTag"].File.Path)
	})

	t.Run("keyword resolves to the tag label key", func(t *testing.T) {
		for _, id := range []string{"003_jpeg_keyword", "013_tiff_keyword", "023_png_keyword"} {
			assert.Equal(t, types.KeyTagLabel, byID[id].Property.Key(), id)
		}
		assert.Equal(t, types.PropTitle, byID["011_tiff_title"].Property.Key())
	})

	t.Run("tag scenarios", func(t *testing.T) {
		for _, id := range []string{"004_jpeg_hasTag", "014_tiff_hasTag", "024_png_hasTag"} {
			assert.Equal(t, KindTag, byID[id].Kind, id)
			assert.Equal(t, "nao:hasTag", byID[id].Subject())
		}
	})

	t.Run("only png description, keyword and tag are known failing", func(t *testing.T) {
		for _, s := range set {
			switch s.ID {
			case "022_png_description", "023_png_keyword", "024_png_hasTag":
				assert.Equal(t, types.KnownFailing(DefectPNGWriteback), s.Expected, s.ID)
			default:
				assert.False(t, s.Expected.IsKnownFailing(), s.ID)
			}
		}
	})
}

func TestDefaultFixtureNames(t *testing.T) {
	assert.Equal(t, []string{"writeback-test-1.jpeg", "writeback-test-2.tif", "writeback-test-4.png"}, DefaultFixtureNames())
}

func TestFilter(t *testing.T) {
	set := DefaultSet("/home/tester")

	t.Run("empty pattern keeps all", func(t *testing.T) {
		got, err := Filter(set, "")
		require.NoError(t, err)
		assert.Len(t, got, 12)
	})

	t.Run("by format", func(t *testing.T) {
		got, err := Filter(set, "_png_")
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "021_png_title", got[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := Filter(set, "gif")
		assert.ErrorIs(t, err, types.ErrUnknownScenario)
	})

	t.Run("bad pattern", func(t *testing.T) {
		_, err := Filter(set, "(")
		assert.Error(t, err)
	})
}
