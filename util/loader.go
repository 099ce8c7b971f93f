// Package util - Loading of image files for the detection CLI.
package util

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// Extensions lists the file extensions LoadDirectoryImageFiles picks up.
var Extensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
}

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the position of the file within its directory listing.
	Frame int
}

// Name returns the base name of the file.
func (f ImageFile) Name() string {
	return filepath.Base(f.Path)
}

// Reader returns a reader over the raw bytes, e.g. for reading EXIF metadata.
func (f ImageFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// Decode decodes the raw bytes.
func (f ImageFile) Decode() (image.Image, images.ImageFormat, error) {
	img, format, err := images.Decode(f.Data)
	if err != nil {
		return nil, "", errors.Wrap(err, f.Path)
	}
	return img, format, nil
}

// IsImagePath reports whether path has a supported image extension.
func IsImagePath(path string) bool {
	return Extensions[strings.ToLower(filepath.Ext(path))]
}

// LoadImageFile reads a single image file.
//
// Arguments:
//   - path: Path to the image file.
//
// Returns:
//   - ImageFile: The raw bytes of the file.
//   - error: Error if the file cannot be read or is empty.
func LoadImageFile(path string) (ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ImageFile{}, err
	}
	if len(data) == 0 {
		return ImageFile{}, errors.Wrapf(images.ErrInvalidImage, "%s is empty", path)
	}
	return ImageFile{Path: path, Data: data}, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: Slice of ImageFile sorted by file name, each containing the raw bytes of an image file.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImagePath(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	files := make([]ImageFile, 0, len(names))
	for i, name := range names {
		file, err := LoadImageFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		file.Frame = i
		files = append(files, file)
	}

	return files, nil
}
