package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	"github.com/airbusgeo/sentinel-fetcher/interface/provider"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency        = 4
	defaultMaxAttempts        = 5
	defaultBaseDelay          = time.Second
	defaultRestorationTimeout = time.Hour
	defaultPollInterval       = 30 * time.Second
)

// Scheduler downloads batches of products through a ProductProvider.
// It runs one batch at a time: Progress reports on the current batch.
type Scheduler struct {
	Provider provider.ProductProvider

	Concurrency        int           // parallel downloads
	MaxAttempts        int           // download attempts per product
	BaseDelay          time.Duration // backoff unit between attempts
	RestorationTimeout time.Duration // how long to wait for an archived product
	PollInterval       time.Duration // initial delay between restoration polls
	Extract            bool          // unarchive the products once verified

	mutex     sync.Mutex
	batchID   string
	states    map[string]common.State
	bytesDone int64
}

// NewScheduler returns a scheduler with the default tuning
func NewScheduler(productProvider provider.ProductProvider) *Scheduler {
	return &Scheduler{
		Provider:           productProvider,
		Concurrency:        defaultConcurrency,
		MaxAttempts:        defaultMaxAttempts,
		BaseDelay:          defaultBaseDelay,
		RestorationTimeout: defaultRestorationTimeout,
		PollInterval:       defaultPollInterval,
	}
}

// RestorationTimeoutError is returned when an archived product did not come
// online within the restoration timeout
type RestorationTimeoutError struct {
	Product string
	Timeout time.Duration
}

func (e *RestorationTimeoutError) Error() string {
	return fmt.Sprintf("product %s still archived after %v", e.Product, e.Timeout)
}

func (e *RestorationTimeoutError) Fatal() bool {
	return true
}

// Progress is a point-in-time snapshot of the running batch
type Progress struct {
	BatchID   string         `json:"batchId"`
	Total     int            `json:"total"`
	States    map[string]int `json:"states"`
	BytesDone int64          `json:"bytesDone"`
}

// DownloadBatch downloads the products into destDir and reports the outcome of
// every task. Duplicated identifiers are downloaded once, first occurrence first.
// A task failure never stops the other tasks: the returned error is non-nil only
// when the whole batch had to abort (context canceled, authentication lost), and
// the result then reports the tasks that did not run as Canceled.
func (s *Scheduler) DownloadBatch(ctx context.Context, products []common.Product, destDir string) (*common.BatchResult, error) {
	if err := os.MkdirAll(destDir, 0766); err != nil {
		return nil, fmt.Errorf("DownloadBatch.MkdirAll: %w", err)
	}

	// One task per product, first occurrence wins
	seen := service.StringSet{}
	tasks := make([]common.Product, 0, len(products))
	for _, product := range products {
		if product.ID == "" || seen.Exists(product.ID) {
			continue
		}
		seen.Push(product.ID)
		tasks = append(tasks, product)
	}

	batchID := uuid.New().String()
	s.beginBatch(batchID, tasks)
	result := common.NewBatchResult(batchID)
	log.Logger(ctx).Sugar().Infof("batch %s: %d products to download to %s", batchID, len(tasks), destDir)

	// Create the workers group
	wg, wctx := errgroup.WithContext(ctx)
	jobChan := make(chan common.Product, len(tasks))
	resultChan := make(chan common.TaskResult, len(tasks))

	concurrency := s.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	// Start workers
	for i := 0; i < concurrency && i < len(tasks); i++ {
		wg.Go(func() error {
			return s.work(wctx, jobChan, resultChan, destDir)
		})
	}

	// Push jobs
	for _, task := range tasks {
		jobChan <- task
	}
	close(jobChan)

	// Wait for workers and aggregate the outcomes
	batchErr := wg.Wait()
	close(resultChan)
	for taskResult := range resultChan {
		result.Add(taskResult)
	}
	for _, task := range tasks {
		if _, ok := result.Tasks[task.ID]; !ok {
			s.setTaskState(task.ID, common.StateFAILED, 0)
			result.Add(common.TaskResult{
				ProductID: task.ID,
				State:     common.StateFAILED,
				Reason:    common.ReasonCanceled,
				Message:   "batch aborted",
			})
		}
	}

	log.Logger(ctx).Sugar().Infof("batch %s: %d complete, %d failed", batchID, result.Completed, result.Failed)
	if batchErr != nil {
		return result, fmt.Errorf("DownloadBatch: %w", batchErr)
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("DownloadBatch: %w", err)
	}
	return result, nil
}

// work consumes jobs until the channel closes. Task failures are recorded, not
// returned: returning an error aborts the whole batch.
func (s *Scheduler) work(ctx context.Context, jobs <-chan common.Product, results chan<- common.TaskResult, destDir string) error {
	for product := range jobs {
		select {
		case <-ctx.Done():
			s.setTaskState(product.ID, common.StateFAILED, 0)
			results <- common.TaskResult{
				ProductID: product.ID,
				State:     common.StateFAILED,
				Reason:    common.ReasonCanceled,
				Message:   ctx.Err().Error(),
			}
		default:
			taskResult, err := s.runTask(log.With(ctx, "product", product.ID), product, destDir)
			results <- taskResult
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Progress returns a snapshot of the current batch
func (s *Scheduler) Progress() Progress {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	progress := Progress{
		BatchID:   s.batchID,
		Total:     len(s.states),
		States:    map[string]int{},
		BytesDone: s.bytesDone,
	}
	for _, state := range s.states {
		progress.States[state.String()]++
	}
	return progress
}

func (s *Scheduler) beginBatch(batchID string, tasks []common.Product) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.batchID = batchID
	s.states = make(map[string]common.State, len(tasks))
	s.bytesDone = 0
	for _, task := range tasks {
		s.states[task.ID] = common.StatePENDING
	}
}

func (s *Scheduler) setTaskState(productID string, state common.State, sizeBytes int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.states[productID] = state
	if state == common.StateCOMPLETE && sizeBytes > 0 {
		s.bytesDone += sizeBytes
	}
}

// failureReason maps an error chain to the stable reason code of the report
func failureReason(err error) string {
	var restoration *RestorationTimeoutError
	var checksum *ChecksumMismatchError
	var size *SizeMismatchError
	var notFound *provider.NotFoundError
	var authErr *auth.Error
	switch {
	case errors.As(err, &restoration):
		return common.ReasonRestorationTimeout
	case errors.As(err, &checksum):
		return common.ReasonChecksumMismatch
	case errors.As(err, &size):
		return common.ReasonSizeMismatch
	case errors.As(err, &notFound):
		return common.ReasonProductNotFound
	case errors.As(err, &authErr):
		return common.ReasonAuthFailed
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return common.ReasonCanceled
	case service.Temporary(err):
		return common.ReasonTooManyRetries
	default:
		return common.ReasonFatal
	}
}

func (s *Scheduler) maxAttempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

func (s *Scheduler) baseDelay() time.Duration {
	if s.BaseDelay <= 0 {
		return defaultBaseDelay
	}
	return s.BaseDelay
}

func (s *Scheduler) restorationTimeout() time.Duration {
	if s.RestorationTimeout <= 0 {
		return defaultRestorationTimeout
	}
	return s.RestorationTimeout
}

func (s *Scheduler) pollInterval() time.Duration {
	if s.PollInterval <= 0 {
		return defaultPollInterval
	}
	return s.PollInterval
}
