package service

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver"
)

// Extension of a product file
type Extension string

// Some supported extensions
const (
	NoExtension  Extension = "" // The file has no extension
	ExtensionZIP Extension = "zip"
	// SAFE and SEN3 are directories: products using them are downloaded as a zip file
	// and optionally unarchived into a directory named <product>.<Extension>
	ExtensionSAFE Extension = "SAFE" // Sentinel-1/2 product
	ExtensionSEN3 Extension = "SEN3" // Sentinel-3 product
)

// ErrFileNotFound is returned when a local product file is missing
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

// Unarchive unzips src into destDir
func Unarchive(src, destDir string) error {
	zip := archiver.Zip{OverwriteExisting: true, MkdirAll: true}
	if err := zip.Unarchive(src, destDir); err != nil {
		return fmt.Errorf("Unarchive %s: %w", src, err)
	}
	return nil
}

// WithExt replaces the extension of filePath
func WithExt(filePath string, ext Extension) string {
	filePath = strings.TrimSuffix(filePath, filepath.Ext(filePath))
	if ext != "" {
		return fmt.Sprintf("%s.%s", filePath, string(ext))
	}
	return filePath
}

// GetExt returns the extension of filePath
func GetExt(filePath string) Extension {
	ext := path.Ext(filePath)
	if ext == "" {
		return NoExtension
	}
	return Extension(ext[1:])
}

// ExtractProduct unarchives the zip file into the directory it lives in and
// removes the zip on success
func ExtractProduct(zipFile string) error {
	if _, err := os.Stat(zipFile); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound{zipFile}
		}
		return fmt.Errorf("ExtractProduct: %w", err)
	}
	if err := Unarchive(zipFile, filepath.Dir(zipFile)); err != nil {
		return fmt.Errorf("ExtractProduct.%w", err)
	}
	if err := os.Remove(zipFile); err != nil {
		return fmt.Errorf("ExtractProduct.Remove: %w", err)
	}
	return nil
}
