package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipWith(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractIcon_ExactBytes(t *testing.T) {
	want := []byte("\x89PNG fake image payload")
	data := zipWith(t, map[string][]byte{
		"manifest.json":          []byte("{}"),
		"textures/icon_pack.png": want,
	})

	got, ok := ExtractIcon(data)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestExtractIcon_AnyDepthAndCase(t *testing.T) {
	want := []byte("icon")
	tests := []string{
		"pack_icon.png",
		"RP/pack_icon.png",
		"Rp/Pack_Icon.PNG",
		"deeply/nested/dir/ICON_PACK.png",
	}
	for _, entry := range tests {
		t.Run(entry, func(t *testing.T) {
			data := zipWith(t, map[string][]byte{entry: want})
			got, ok := ExtractIcon(data)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestExtractIcon_PrefersIconPackName(t *testing.T) {
	data := zipWith(t, map[string][]byte{
		"a/pack_icon.png": []byte("second"),
		"b/icon_pack.png": []byte("first"),
	})
	got, ok := ExtractIcon(data)
	require.True(t, ok)
	assert.Equal(t, []byte("first"), got)
}

func TestExtractIcon_NoMatchIsNotAnError(t *testing.T) {
	data := zipWith(t, map[string][]byte{
		"manifest.json": []byte("{}"),
		"icon.png":      []byte("wrong name"),
	})
	got, ok := ExtractIcon(data)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestExtractIcon_CorruptArchive(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("not a zip at all"), []byte("PK\x03\x04truncated")} {
		got, ok := ExtractIcon(data)
		assert.False(t, ok)
		assert.Nil(t, got)
	}
}

func TestIsArchiveName(t *testing.T) {
	assert.True(t, IsArchiveName("Pack.MCADDON"))
	assert.True(t, IsArchiveName("bundle.zip"))
	assert.False(t, IsArchiveName("readme.txt"))
	assert.False(t, IsArchiveName("image.png"))
}
