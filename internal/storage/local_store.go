package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	ErrFileTooLarge        = errors.New("file exceeds the maximum upload size")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrContentMismatch     = errors.New("file content does not match an allowed type")
	ErrEmptyFile           = errors.New("file is empty")
	ErrInvalidStoredName   = errors.New("invalid stored file name")
)

// sniffLen is how much of the upload mimetype needs to identify it.
const sniffLen = 3072

// StoredFile describes a file written by LocalStore.Save.
type StoredFile struct {
	StoredName  string
	Extension   string
	ContentType string
	Size        int64
	Path        string
}

// LocalStore keeps uploads in a single directory under generated names.
type LocalStore struct {
	dir        string
	maxSize    int64
	allowedExt map[string]bool
}

func NewLocalStore(dir string, maxSize int64, allowedExtensions []string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[normalizeExt(ext)] = true
	}

	return &LocalStore{dir: dir, maxSize: maxSize, allowedExt: allowed}, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// extAliases maps spellings of the same format onto the one mimetype reports.
var extAliases = map[string]string{
	"jpeg": "jpg",
	"jpe":  "jpg",
	"tif":  "tiff",
}

func canonicalExt(ext string) string {
	ext = normalizeExt(ext)
	if alias, ok := extAliases[ext]; ok {
		return alias
	}
	return ext
}

// Save validates the extension of originalName, sniffs the content type and
// writes the data as <uuid>.<ext>. Nothing is left on disk when it fails.
func (s *LocalStore) Save(r io.Reader, originalName string) (*StoredFile, error) {
	ext := normalizeExt(filepath.Ext(originalName))
	if ext == "" || !s.allowedExt[ext] {
		return nil, ErrExtensionNotAllowed
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	if n == 0 {
		return nil, ErrEmptyFile
	}

	mt := mimetype.Detect(head)
	if canonicalExt(mt.Extension()) != canonicalExt(ext) {
		return nil, ErrContentMismatch
	}

	storedName := uuid.NewString() + "." + ext
	path := filepath.Join(s.dir, storedName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	// one extra byte detects oversize input without reading it all
	src := io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1)
	written, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > s.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	return &StoredFile{
		StoredName:  storedName,
		Extension:   ext,
		ContentType: mt.String(),
		Size:        written,
		Path:        path,
	}, nil
}

// Path resolves a stored name inside the upload directory.
func (s *LocalStore) Path(storedName string) (string, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, ".") {
		return "", ErrInvalidStoredName
	}
	return filepath.Join(s.dir, storedName), nil
}

// Remove deletes a stored file; a missing file is not an error.
func (s *LocalStore) Remove(storedName string) error {
	path, err := s.Path(storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) MaxSize() int64 { return s.maxSize }
