package downloader_test

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/downloader"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	"github.com/airbusgeo/sentinel-fetcher/interface/provider"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

type fakeProduct struct {
	uid           string
	content       []byte
	checksum      string
	sizeBytes     int64
	availability  common.Availability
	pollsToOnline int // Resolve calls after Order before the product comes online
	failDownloads int // downloads failing with a temporary error
	partialBytes  int // bytes written by a failing download
	offsets       []int64
}

// fakeProvider implements provider.ProductProvider in memory
type fakeProvider struct {
	mutex    sync.Mutex
	authErr  error
	products map[string]*fakeProduct
	resolves map[string]int
	orders   map[string]int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		products: map[string]*fakeProduct{},
		resolves: map[string]int{},
		orders:   map[string]int{},
	}
}

func (p *fakeProvider) add(productID string, content []byte, availability common.Availability) *fakeProduct {
	product := &fakeProduct{
		uid:          uuid.New().String(),
		content:      content,
		checksum:     md5hex(content),
		sizeBytes:    int64(len(content)),
		availability: availability,
	}
	p.products[productID] = product
	return product
}

func (p *fakeProvider) Resolve(ctx context.Context, productID string) (provider.Metadata, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.authErr != nil {
		return provider.Metadata{}, p.authErr
	}
	p.resolves[productID]++
	product, ok := p.products[productID]
	if !ok {
		return provider.Metadata{}, &provider.NotFoundError{Product: productID}
	}
	if product.availability == common.AvailabilityARCHIVED && p.orders[productID] > 0 {
		if product.pollsToOnline <= 0 {
			product.availability = common.AvailabilityONLINE
		} else {
			product.pollsToOnline--
		}
	}
	return provider.Metadata{
		UID:          product.uid,
		Availability: product.availability,
		SizeBytes:    product.sizeBytes,
		Checksum:     product.checksum,
	}, nil
}

func (p *fakeProvider) Order(ctx context.Context, productID string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if _, ok := p.products[productID]; !ok {
		return &provider.NotFoundError{Product: productID}
	}
	p.orders[productID]++
	return nil
}

func (p *fakeProvider) Download(ctx context.Context, productID, uid, localPath string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	product, ok := p.products[productID]
	if !ok {
		return &provider.NotFoundError{Product: productID}
	}
	if uid != product.uid {
		return fmt.Errorf("download by uid %s, expected %s", uid, product.uid)
	}
	var offset int64
	if fi, err := os.Stat(localPath); err == nil {
		offset = fi.Size()
	}
	product.offsets = append(product.offsets, offset)
	remaining := product.content[offset:]
	failing := product.failDownloads > 0
	if failing {
		product.failDownloads--
		if product.partialBytes < len(remaining) {
			remaining = remaining[:product.partialBytes]
		}
	}
	f, err := os.OpenFile(localPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(remaining); err != nil {
		return err
	}
	if failing {
		return service.MakeTemporary(fmt.Errorf("connection reset"))
	}
	return nil
}

func md5hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func zipProduct(productID string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(productID + ".SAFE/manifest.safe")
	Expect(err).NotTo(HaveOccurred())
	_, err = f.Write([]byte("<manifest/>"))
	Expect(err).NotTo(HaveOccurred())
	Expect(zw.Close()).NotTo(HaveOccurred())
	return buf.Bytes()
}

var _ = Describe("Scheduler", func() {
	var (
		ctx          context.Context
		destDir      string
		productStore *fakeProvider
		scheduler    *downloader.Scheduler
	)

	productContent := bytes.Repeat([]byte("sentinel imagery "), 64)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		destDir, err = os.MkdirTemp("", "downloader")
		Expect(err).NotTo(HaveOccurred())
		productStore = newFakeProvider()
		scheduler = downloader.NewScheduler(productStore)
		scheduler.Concurrency = 2
		scheduler.MaxAttempts = 3
		scheduler.BaseDelay = time.Millisecond
		scheduler.RestorationTimeout = 100 * time.Millisecond
		scheduler.PollInterval = time.Millisecond
	})

	AfterEach(func() {
		os.RemoveAll(destDir)
	})

	downloadBatch := func(ids ...string) *common.BatchResult {
		products := make([]common.Product, len(ids))
		for i, id := range ids {
			products[i] = common.FromID(id)
		}
		result, err := scheduler.DownloadBatch(ctx, products, destDir)
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	expectFile := func(productID string, content []byte) {
		data, err := os.ReadFile(filepath.Join(destDir, productID+".zip"))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(content))
	}

	It("downloads and verifies the products of a batch", func() {
		productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		productStore.add("S2B_PRODUCT_0002", productContent[:512], common.AvailabilityONLINE)

		result := downloadBatch("S1A_PRODUCT_0001", "S2B_PRODUCT_0002")

		Expect(result.AllComplete()).To(BeTrue())
		Expect(result.Completed).To(Equal(2))
		Expect(result.Tasks["S1A_PRODUCT_0001"].State).To(Equal(common.StateCOMPLETE))
		Expect(result.Tasks["S1A_PRODUCT_0001"].Attempts).To(Equal(1))
		expectFile("S1A_PRODUCT_0001", productContent)
		expectFile("S2B_PRODUCT_0002", productContent[:512])

		progress := scheduler.Progress()
		Expect(progress.Total).To(Equal(2))
		Expect(progress.States["COMPLETE"]).To(Equal(2))
		Expect(progress.BytesDone).To(Equal(int64(len(productContent) + 512)))
	})

	It("resumes an interrupted transfer from the received bytes", func() {
		product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		product.failDownloads = 1
		product.partialBytes = 400

		result := downloadBatch("S1A_PRODUCT_0001")

		Expect(result.AllComplete()).To(BeTrue())
		Expect(result.Tasks["S1A_PRODUCT_0001"].Attempts).To(Equal(2))
		Expect(product.offsets).To(Equal([]int64{0, 400}))
		expectFile("S1A_PRODUCT_0001", productContent)
	})

	It("reuses a partial file left by an earlier run", func() {
		product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		partPath := filepath.Join(destDir, "S1A_PRODUCT_0001.zip.part")
		Expect(os.WriteFile(partPath, productContent[:400], 0644)).NotTo(HaveOccurred())

		result := downloadBatch("S1A_PRODUCT_0001")

		Expect(result.AllComplete()).To(BeTrue())
		Expect(product.offsets).To(Equal([]int64{400}))
		expectFile("S1A_PRODUCT_0001", productContent)
	})

	It("discards a partial file bigger than the product", func() {
		product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		partPath := filepath.Join(destDir, "S1A_PRODUCT_0001.zip.part")
		tooBig := append(append([]byte{}, productContent...), "trailing garbage"...)
		Expect(os.WriteFile(partPath, tooBig, 0644)).NotTo(HaveOccurred())

		result := downloadBatch("S1A_PRODUCT_0001")

		Expect(result.AllComplete()).To(BeTrue())
		Expect(product.offsets).To(Equal([]int64{0}))
		expectFile("S1A_PRODUCT_0001", productContent)
	})

	It("does not transfer again a product already downloaded", func() {
		product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)

		first := downloadBatch("S1A_PRODUCT_0001")
		Expect(first.AllComplete()).To(BeTrue())
		second := downloadBatch("S1A_PRODUCT_0001")
		Expect(second.AllComplete()).To(BeTrue())

		Expect(product.offsets).To(Equal([]int64{0}))
		Expect(productStore.resolves["S1A_PRODUCT_0001"]).To(Equal(2))
		expectFile("S1A_PRODUCT_0001", productContent)
	})

	It("downloads a duplicated identifier once", func() {
		product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)

		result := downloadBatch("S1A_PRODUCT_0001", "S1A_PRODUCT_0001", "S1A_PRODUCT_0001")

		Expect(result.Tasks).To(HaveLen(1))
		Expect(result.Completed).To(Equal(1))
		Expect(product.offsets).To(HaveLen(1))
	})

	Context("with archived products", func() {
		It("orders the restoration once and downloads when online", func() {
			product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityARCHIVED)
			product.pollsToOnline = 2

			result := downloadBatch("S1A_PRODUCT_0001")

			Expect(result.AllComplete()).To(BeTrue())
			Expect(productStore.orders["S1A_PRODUCT_0001"]).To(Equal(1))
			expectFile("S1A_PRODUCT_0001", productContent)
		})

		It("fails the task when the restoration times out, not the batch", func() {
			archived := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityARCHIVED)
			archived.pollsToOnline = 1 << 30
			productStore.add("S2B_PRODUCT_0002", productContent, common.AvailabilityONLINE)

			result := downloadBatch("S1A_PRODUCT_0001", "S2B_PRODUCT_0002")

			Expect(result.Completed).To(Equal(1))
			Expect(result.Failed).To(Equal(1))
			Expect(result.Tasks["S1A_PRODUCT_0001"].Reason).To(Equal(common.ReasonRestorationTimeout))
			Expect(result.Tasks["S2B_PRODUCT_0002"].State).To(Equal(common.StateCOMPLETE))
			Expect(productStore.orders["S1A_PRODUCT_0001"]).To(Equal(1))
		})
	})

	Context("verifying", func() {
		It("fails the task and keeps the file when the checksum does not match", func() {
			product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
			product.checksum = md5hex([]byte("other content"))

			result := downloadBatch("S1A_PRODUCT_0001")

			Expect(result.Failed).To(Equal(1))
			Expect(result.Tasks["S1A_PRODUCT_0001"].Reason).To(Equal(common.ReasonChecksumMismatch))
			_, err := os.Stat(filepath.Join(destDir, "S1A_PRODUCT_0001.zip.part"))
			Expect(err).NotTo(HaveOccurred())
			_, err = os.Stat(filepath.Join(destDir, "S1A_PRODUCT_0001.zip"))
			Expect(os.IsNotExist(err)).To(BeTrue())
		})

		It("fails the task when the size does not match", func() {
			product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
			product.sizeBytes = int64(len(productContent)) + 10

			result := downloadBatch("S1A_PRODUCT_0001")

			Expect(result.Failed).To(Equal(1))
			Expect(result.Tasks["S1A_PRODUCT_0001"].Reason).To(Equal(common.ReasonSizeMismatch))
		})
	})

	It("fails the task without retrying when the product is unknown", func() {
		productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)

		result := downloadBatch("S1A_PRODUCT_0001", "S1A_UNKNOWN_0000")

		Expect(result.Completed).To(Equal(1))
		Expect(result.Tasks["S1A_UNKNOWN_0000"].Reason).To(Equal(common.ReasonProductNotFound))
		Expect(productStore.resolves["S1A_UNKNOWN_0000"]).To(Equal(1))
	})

	It("gives up after the configured number of attempts", func() {
		product := productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		product.failDownloads = 10

		result := downloadBatch("S1A_PRODUCT_0001")

		Expect(result.Failed).To(Equal(1))
		Expect(result.Tasks["S1A_PRODUCT_0001"].Reason).To(Equal(common.ReasonTooManyRetries))
		Expect(result.Tasks["S1A_PRODUCT_0001"].Attempts).To(Equal(3))
		Expect(product.offsets).To(HaveLen(3))
	})

	It("aborts the whole batch when authentication is lost", func() {
		scheduler.Concurrency = 1
		productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		productStore.add("S2B_PRODUCT_0002", productContent, common.AvailabilityONLINE)
		productStore.authErr = &auth.Error{Service: auth.ServiceDownload, Err: fmt.Errorf("invalid credentials")}

		result, err := scheduler.DownloadBatch(ctx, []common.Product{
			common.FromID("S1A_PRODUCT_0001"),
			common.FromID("S2B_PRODUCT_0002"),
		}, destDir)

		Expect(err).To(HaveOccurred())
		var authErr *auth.Error
		Expect(errors.As(err, &authErr)).To(BeTrue())
		Expect(result.Failed).To(Equal(2))
		reasons := []string{
			result.Tasks["S1A_PRODUCT_0001"].Reason,
			result.Tasks["S2B_PRODUCT_0002"].Reason,
		}
		Expect(reasons).To(ContainElement(common.ReasonAuthFailed))
		Expect(reasons).To(ContainElement(common.ReasonCanceled))
	})

	It("reports the tasks as canceled when the context is canceled", func() {
		productStore.add("S1A_PRODUCT_0001", productContent, common.AvailabilityONLINE)
		canceledCtx, cancel := context.WithCancel(ctx)
		cancel()

		result, err := scheduler.DownloadBatch(canceledCtx, []common.Product{common.FromID("S1A_PRODUCT_0001")}, destDir)

		Expect(err).To(HaveOccurred())
		Expect(result.Tasks["S1A_PRODUCT_0001"].Reason).To(Equal(common.ReasonCanceled))
	})

	Context("extracting", func() {
		It("unarchives the product and removes the zip", func() {
			scheduler.Extract = true
			content := zipProduct("S1A_PRODUCT_0001")
			product := productStore.add("S1A_PRODUCT_0001", content, common.AvailabilityONLINE)

			result := downloadBatch("S1A_PRODUCT_0001")

			Expect(result.AllComplete()).To(BeTrue())
			fi, err := os.Stat(filepath.Join(destDir, "S1A_PRODUCT_0001.SAFE"))
			Expect(err).NotTo(HaveOccurred())
			Expect(fi.IsDir()).To(BeTrue())
			_, err = os.Stat(filepath.Join(destDir, "S1A_PRODUCT_0001.zip"))
			Expect(os.IsNotExist(err)).To(BeTrue())

			// A second run sees the extracted product and transfers nothing
			second := downloadBatch("S1A_PRODUCT_0001")
			Expect(second.AllComplete()).To(BeTrue())
			Expect(product.offsets).To(HaveLen(1))
		})
	})
})
