// Package loader turns local report files into upload candidates.
// Adapter implementing ports.FileLoader.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
)

var extensionTypes = map[string]string{
	".pdf":  entities.MimePDF,
	".doc":  entities.MimeDOC,
	".docx": entities.MimeDOCX,
	".txt":  entities.MimeText,
}

// Generic container types that say nothing about the document inside.
var containerTypes = map[string]bool{
	"application/octet-stream":  true,
	"application/zip":           true,
	"application/x-ole-storage": true,
}

// LocalLoader reads metadata of files on disk. Contents are only read on upload.
type LocalLoader struct{}

// NewLocalLoader creates a new local file loader.
func NewLocalLoader() *LocalLoader {
	return &LocalLoader{}
}

// Load stats the file and detects its MIME type.
func (l *LocalLoader) Load(ctx context.Context, path string) (entities.CandidateFile, error) {
	if err := ctx.Err(); err != nil {
		return entities.CandidateFile{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return entities.CandidateFile{}, err
	}
	if info.IsDir() {
		return entities.CandidateFile{}, fmt.Errorf("%s is a directory", path)
	}

	mimeType, err := detectType(path)
	if err != nil {
		return entities.CandidateFile{}, fmt.Errorf("detecting type of %s: %w", path, err)
	}

	return entities.CandidateFile{
		FileMeta: entities.FileMeta{
			Name:      filepath.Base(path),
			MimeType:  mimeType,
			SizeBytes: info.Size(),
		},
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// SupportedExtensions returns file extensions of accepted report formats.
func (l *LocalLoader) SupportedExtensions() []string {
	return []string{".pdf", ".doc", ".docx", ".txt"}
}

// detectType sniffs the content and reconciles it with the extension.
// A known extension wins when the content agrees with it or is an opaque
// container; otherwise the sniffed type is reported as is.
func detectType(path string) (string, error) {
	sniffed, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}

	declared, known := extensionTypes[strings.ToLower(filepath.Ext(path))]
	if !known {
		return sniffed.String(), nil
	}

	for m := sniffed; m != nil; m = m.Parent() {
		if m.Is(declared) {
			return declared, nil
		}
	}
	if containerTypes[sniffed.String()] {
		return declared, nil
	}
	return sniffed.String(), nil
}
