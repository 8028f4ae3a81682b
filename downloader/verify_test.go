package downloader_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/sentinel-fetcher/downloader"
	"github.com/airbusgeo/sentinel-fetcher/service"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Verify", func() {
	var dir string
	content := []byte("product bytes for the checksum")

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "verify")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	writeFile := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, data, 0644)).NotTo(HaveOccurred())
		return path
	}

	It("accepts a file matching size and checksum", func() {
		path := writeFile("product.zip", content)
		Expect(downloader.Verify(path, int64(len(content)), md5hex(content))).NotTo(HaveOccurred())
	})

	It("compares the checksum case-insensitively", func() {
		path := writeFile("product.zip", content)
		Expect(downloader.Verify(path, int64(len(content)), strings.ToUpper(md5hex(content)))).NotTo(HaveOccurred())
	})

	It("degrades to size-only when the checksum is unknown", func() {
		path := writeFile("product.zip", content)
		Expect(downloader.Verify(path, int64(len(content)), "")).NotTo(HaveOccurred())
	})

	It("skips the size check when the size is unknown", func() {
		path := writeFile("product.zip", content)
		Expect(downloader.Verify(path, 0, md5hex(content))).NotTo(HaveOccurred())
	})

	It("rejects a wrong size", func() {
		path := writeFile("product.zip", content)
		err := downloader.Verify(path, int64(len(content))+1, md5hex(content))
		var mismatch *downloader.SizeMismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		Expect(mismatch.Want).To(Equal(int64(len(content)) + 1))
		Expect(mismatch.Got).To(Equal(int64(len(content))))
	})

	It("rejects a wrong checksum and leaves the file in place", func() {
		path := writeFile("product.zip", content)
		err := downloader.Verify(path, int64(len(content)), md5hex([]byte("something else")))
		var mismatch *downloader.ChecksumMismatchError
		Expect(errors.As(err, &mismatch)).To(BeTrue())
		_, err = os.Stat(path)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports a missing file", func() {
		err := downloader.Verify(filepath.Join(dir, "absent.zip"), 10, "")
		var notFound service.ErrFileNotFound
		Expect(errors.As(err, &notFound)).To(BeTrue())
	})
})
