// Package storage keeps uploaded attachment files.
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
	"github.com/spf13/afero"

	"github.com/yukikurage/taskflow-api/internal/utils"
)

var (
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrFileTypeNotAllowed = errors.New("file type is not allowed")
	ErrDangerousExtension = errors.New("file extension is not allowed")
	ErrEmptyFile          = errors.New("file is empty")
)

var allowedMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel":                                                  {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint":                                             {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"text/plain":                   {},
	"text/csv":                     {},
	"image/jpeg":                   {},
	"image/png":                    {},
	"image/gif":                    {},
	"image/webp":                   {},
	"image/svg+xml":                {},
	"application/zip":              {},
	"application/x-rar-compressed": {},
	"application/x-7z-compressed":  {},
	"application/x-tar":            {},
	"application/gzip":             {},
}

var dangerousExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".cmd": {}, ".com": {}, ".pif": {}, ".scr": {}, ".vbs": {},
	".js": {}, ".jar": {}, ".msi": {}, ".app": {}, ".deb": {}, ".rpm": {},
}

// StoredFile describes a file written by FileStore.Save.
type StoredFile struct {
	FileName     string
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
}

// FileStore validates and persists uploads under a root directory.
type FileStore struct {
	fs      afero.Fs
	root    string
	maxSize int64
}

// NewFileStore returns a store rooted at root on fs. Use afero.NewOsFs in
// production and afero.NewMemMapFs in tests.
func NewFileStore(fs afero.Fs, root string, maxSize int64) (*FileStore, error) {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStore{fs: fs, root: root, maxSize: maxSize}, nil
}

// Validate checks the name and the sniffed content type of an upload. It
// returns the detected mime type.
func (s *FileStore) Validate(originalName string, size int64, head []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, bad := dangerousExtensions[ext]; bad {
		return "", fmt.Errorf("%w: %s", ErrDangerousExtension, ext)
	}
	if size > s.maxSize {
		return "", ErrFileTooLarge
	}
	if size == 0 || len(head) == 0 {
		return "", ErrEmptyFile
	}

	mime := detect(head, ext)
	if _, ok := allowedMimeTypes[mime]; !ok {
		return "", fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, mime)
	}
	return mime, nil
}

// detect sniffs content and falls back to the extension for text formats
// that have no magic bytes.
func detect(head []byte, ext string) string {
	detected := mimetype.Detect(head)
	for m := detected; m != nil; m = m.Parent() {
		if _, ok := allowedMimeTypes[m.String()]; ok {
			return m.String()
		}
		// Strip parameters such as "; charset=utf-8".
		base := strings.TrimSpace(strings.SplitN(m.String(), ";", 2)[0])
		if _, ok := allowedMimeTypes[base]; ok {
			if base == "text/plain" && ext == ".csv" {
				return "text/csv"
			}
			return base
		}
	}
	return strings.TrimSpace(strings.SplitN(detected.String(), ";", 2)[0])
}

// Save validates r and writes it under a generated name.
func (s *FileStore) Save(originalName string, r io.Reader) (*StoredFile, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	// Size is only known after copying, so validate type now and size below.
	mime, err := s.Validate(originalName, int64(n), head)
	if err != nil {
		return nil, err
	}

	fileName := utils.GenerateFileName(originalName)
	path := filepath.Join(s.root, fileName)

	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > s.maxSize {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = s.fs.Remove(path)
		return nil, err
	}

	return &StoredFile{
		FileName:     fileName,
		OriginalName: filepath.Base(originalName),
		MimeType:     mime,
		Size:         size,
		Path:         path,
	}, nil
}

// Open returns a reader for a stored file.
func (s *FileStore) Open(path string) (afero.File, error) {
	if err := s.contains(path); err != nil {
		return nil, err
	}
	return s.fs.Open(path)
}

// Remove deletes a stored file. A missing file is not an error.
func (s *FileStore) Remove(path string) error {
	if err := s.contains(path); err != nil {
		return err
	}
	err := s.fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileStore) contains(path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the upload directory", path)
	}
	return nil
}
