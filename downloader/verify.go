package downloader

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/airbusgeo/sentinel-fetcher/service"
)

// SizeMismatchError is returned when the local file does not have the size
// announced by the download service
type SizeMismatchError struct {
	Path string
	Want int64
	Got  int64
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%s: size is %d, expected %d", e.Path, e.Got, e.Want)
}

func (e *SizeMismatchError) Fatal() bool {
	return true
}

// ChecksumMismatchError is returned when the local file does not match the
// checksum announced by the download service
type ChecksumMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("%s: md5 is %s, expected %s", e.Path, e.Got, e.Want)
}

func (e *ChecksumMismatchError) Fatal() bool {
	return true
}

// Verify checks the file against the expected size and MD5 checksum (hex,
// case-insensitive). An empty checksum degrades to size-only verification and
// a size <= 0 is not checked. On mismatch the file is left in place.
func Verify(path string, sizeBytes int64, checksum string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return service.ErrFileNotFound{File: path}
		}
		return fmt.Errorf("Verify: %w", err)
	}
	if sizeBytes > 0 && fi.Size() != sizeBytes {
		return &SizeMismatchError{Path: path, Want: sizeBytes, Got: fi.Size()}
	}
	if checksum == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("Verify.Open: %w", err)
	}
	defer f.Close()
	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return service.MakeTemporary(fmt.Errorf("Verify.Read %s: %w", path, err))
	}
	got := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(got, checksum) {
		return &ChecksumMismatchError{Path: path, Want: checksum, Got: got}
	}
	return nil
}
