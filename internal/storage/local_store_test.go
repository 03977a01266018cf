package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is the 8-byte PNG signature followed by an IHDR chunk start.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 13, 'I', 'H', 'D', 'R'}

func newStore(t *testing.T, maxSize int64) (*LocalStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir, maxSize, []string{"jpg", ".PNG", "pdf"})
	require.NoError(t, err)
	return s, dir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLocalStore_SavePNG(t *testing.T) {
	s, dir := newStore(t, 1024)

	f, err := s.Save(bytes.NewReader(pngHeader), "Cover Art.PNG")

	require.NoError(t, err)
	assert.Equal(t, "png", f.Extension)
	assert.Equal(t, "image/png", f.ContentType)
	assert.Equal(t, int64(len(pngHeader)), f.Size)
	assert.True(t, strings.HasSuffix(f.StoredName, ".png"))
	assert.Equal(t, []string{f.StoredName}, listDir(t, dir))

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestLocalStore_Rejections(t *testing.T) {
	testCases := []struct {
		name     string
		content  []byte
		fileName string
		wantErr  error
	}{
		{"extension_not_allowed", pngHeader, "script.exe", ErrExtensionNotAllowed},
		{"no_extension", pngHeader, "README", ErrExtensionNotAllowed},
		{"empty_file", nil, "empty.png", ErrEmptyFile},
		{"text_disguised_as_png", []byte("just some text"), "fake.png", ErrContentMismatch},
		{"png_named_as_pdf", pngHeader, "report.pdf", ErrContentMismatch},
		{"png_named_as_jpg", pngHeader, "photo.jpg", ErrContentMismatch},
		{"too_large", append(append([]byte{}, pngHeader...), make([]byte, 64)...), "big.png", ErrFileTooLarge},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, dir := newStore(t, 32)

			f, err := s.Save(bytes.NewReader(tc.content), tc.fileName)

			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, f)
			assert.Empty(t, listDir(t, dir), "nothing may be left on disk")
		})
	}
}

func TestLocalStore_JPEGAlias(t *testing.T) {
	s, _ := newStore(t, 1024)
	s.allowedExt["jpeg"] = true
	jpegHeader := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

	for _, name := range []string{"photo.jpg", "photo.JPEG"} {
		f, err := s.Save(bytes.NewReader(jpegHeader), name)

		require.NoError(t, err, name)
		assert.Equal(t, "image/jpeg", f.ContentType)
	}
}

func TestLocalStore_PathAndRemove(t *testing.T) {
	s, dir := newStore(t, 1024)
	f, err := s.Save(bytes.NewReader(pngHeader), "a.png")
	require.NoError(t, err)

	path, err := s.Path(f.StoredName)
	require.NoError(t, err)
	assert.Equal(t, f.Path, path)

	for _, bad := range []string{"", "../etc/passwd", "sub/file.png", ".hidden"} {
		_, err := s.Path(bad)
		assert.ErrorIs(t, err, ErrInvalidStoredName, bad)
	}

	require.NoError(t, s.Remove(f.StoredName))
	assert.Empty(t, listDir(t, dir))
	assert.NoError(t, s.Remove(f.StoredName), "removing twice is fine")
}
