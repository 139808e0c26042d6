// Package archive unpacks uploaded invoice archives into per-file byte
// slices, filtered to the configured document extensions.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/models"
)

// Unpacker extracts matching files from a ZIP archive
type Unpacker struct {
	allowedExtensions []string
	logger            *zap.Logger
}

// NewUnpacker creates a new unpacker that keeps files with the given
// extensions (e.g. ".pdf")
func NewUnpacker(allowedExtensions []string, logger *zap.Logger) *Unpacker {
	return &Unpacker{
		allowedExtensions: allowedExtensions,
		logger:            logger,
	}
}

// Unpack reads a ZIP archive and returns a mapping of filename to raw bytes
// for every entry whose extension is allowed. Directories, macOS resource
// forks and hidden files are skipped. An archive with no matching files
// yields an empty map, not an error.
func (u *Unpacker) Unpack(archive []byte) (map[string][]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArchive, err)
	}

	files := make(map[string][]byte)
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}

		name := path.Base(entry.Name)
		if strings.HasPrefix(entry.Name, "__MACOSX/") || strings.HasPrefix(name, ".") {
			continue
		}
		if !u.extensionAllowed(name) {
			u.logger.Debug("Skipping non-matching archive entry", zap.String("name", entry.Name))
			continue
		}

		data, err := readEntry(entry)
		if err != nil {
			u.logger.Warn("Failed to read archive entry",
				zap.String("name", entry.Name),
				zap.Error(err))
			continue
		}

		files[name] = data
	}

	u.logger.Info("Unpacked archive",
		zap.Int("total_entries", len(reader.File)),
		zap.Int("matching_files", len(files)))

	return files, nil
}

func (u *Unpacker) extensionAllowed(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, allowed := range u.allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
