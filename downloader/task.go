package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/airbusgeo/sentinel-fetcher/common"
	"github.com/airbusgeo/sentinel-fetcher/interface/auth"
	"github.com/airbusgeo/sentinel-fetcher/interface/provider"
	"github.com/airbusgeo/sentinel-fetcher/service"
	"github.com/airbusgeo/sentinel-fetcher/service/log"
)

// task is the download of one product. The transfer goes to a ".part" file
// that is renamed to its final name once verified, so a file at destPath is
// always a complete, verified product.
type task struct {
	scheduler *Scheduler
	product   common.Product
	metadata  provider.Metadata
	state     common.State
	attempts  int
	destPath  string
	partPath  string
}

// runTask drives one product through the task state machine. The returned
// error is non-nil only when the failure must abort the batch.
func (s *Scheduler) runTask(ctx context.Context, product common.Product, destDir string) (common.TaskResult, error) {
	t := &task{
		scheduler: s,
		product:   product,
		state:     common.StatePENDING,
		destPath:  filepath.Join(destDir, product.ID+"."+string(service.ExtensionZIP)),
	}
	t.partPath = t.destPath + ".part"

	err := t.run(ctx)
	if err == nil {
		log.Logger(ctx).Sugar().Infof("%s complete", product.ID)
		return common.TaskResult{ProductID: product.ID, State: common.StateCOMPLETE, Attempts: t.attempts}, nil
	}

	t.setState(ctx, common.StateFAILED)
	log.Logger(ctx).Sugar().Warnf("%s failed: %v", product.ID, err)
	taskResult := common.TaskResult{
		ProductID: product.ID,
		State:     common.StateFAILED,
		Attempts:  t.attempts,
		Reason:    failureReason(err),
		Message:   err.Error(),
	}
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		// No task can proceed without a token
		return taskResult, err
	}
	return taskResult, nil
}

func (t *task) setState(ctx context.Context, state common.State) {
	t.state = state
	t.scheduler.setTaskState(t.product.ID, state, t.metadata.SizeBytes)
	log.Logger(ctx).Sugar().Debugf("-> %s", state.String())
}

func (t *task) run(ctx context.Context) error {
	retrier := service.Retrier{
		MaxAttempts: t.scheduler.maxAttempts(),
		BaseDelay:   t.scheduler.baseDelay(),
		Jitter:      t.scheduler.baseDelay() / 2,
	}

	// The catalog snapshot may be stale, the download service is authoritative
	t.setState(ctx, common.StateRESOLVING)
	if err := retrier.Do(ctx, func() error {
		metadata, err := t.scheduler.Provider.Resolve(ctx, t.product.ID)
		if err == nil {
			t.metadata = metadata
		}
		return err
	}); err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	if done, err := t.verifyExisting(ctx); done || err != nil {
		return err
	}

	if t.metadata.Availability == common.AvailabilityARCHIVED {
		t.setState(ctx, common.StateARCHIVED)
		if err := t.awaitRestoration(ctx); err != nil {
			return fmt.Errorf("restore: %w", err)
		}
	}
	t.setState(ctx, common.StateONLINE)

	if err := t.fetch(ctx); err != nil {
		return err
	}

	t.setState(ctx, common.StateVERIFYING)
	if err := Verify(t.partPath, t.metadata.SizeBytes, t.metadata.Checksum); err != nil {
		return err
	}
	if err := os.Rename(t.partPath, t.destPath); err != nil {
		return service.MakeTemporary(fmt.Errorf("rename %s: %w", t.partPath, err))
	}
	return t.finish(ctx)
}

// verifyExisting checks the local files before any transfer. It returns done
// when the product is already complete on disk.
func (t *task) verifyExisting(ctx context.Context) (bool, error) {
	if t.scheduler.Extract {
		if dir := t.extractedPath(); dir != "" {
			if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
				log.Logger(ctx).Sugar().Debugf("already extracted to %s", dir)
				t.setState(ctx, common.StateCOMPLETE)
				return true, nil
			}
		}
	}
	if t.metadata.SizeBytes <= 0 {
		// Unknown size: transfer, the server decides completeness
		return false, nil
	}
	fi, err := os.Stat(t.destPath)
	if err != nil {
		return false, nil
	}
	if fi.Size() != t.metadata.SizeBytes {
		log.Logger(ctx).Sugar().Warnf("%s has %d bytes, expected %d: downloading again", t.destPath, fi.Size(), t.metadata.SizeBytes)
		if err := os.Remove(t.destPath); err != nil {
			return false, service.MakeTemporary(fmt.Errorf("remove %s: %w", t.destPath, err))
		}
		return false, nil
	}
	t.setState(ctx, common.StateVERIFYING)
	if err := Verify(t.destPath, t.metadata.SizeBytes, t.metadata.Checksum); err != nil {
		return false, err
	}
	return true, t.finish(ctx)
}

// finish optionally unarchives the product and closes the task
func (t *task) finish(ctx context.Context) error {
	if t.scheduler.Extract {
		if err := service.ExtractProduct(t.destPath); err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		log.Logger(ctx).Sugar().Debugf("extracted %s", t.destPath)
	}
	t.setState(ctx, common.StateCOMPLETE)
	return nil
}

// fetch runs the bounded download attempts
func (t *task) fetch(ctx context.Context) error {
	maxAttempts := t.scheduler.maxAttempts()
	for {
		t.attempts++
		t.setState(ctx, common.StateDOWNLOADING)
		err := t.download(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !service.Temporary(err) {
			return err
		}
		if t.attempts >= maxAttempts {
			return fmt.Errorf("download failed after %d attempts: %w", t.attempts, err)
		}
		t.setState(ctx, common.StateRETRY)
		delay := time.Duration((1<<t.attempts)-1) * t.scheduler.baseDelay()
		log.Logger(ctx).Sugar().Debugf("retrying in %v: %v", delay, err)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// download transfers the product bytes into the partial file, reusing the
// bytes already there
func (t *task) download(ctx context.Context) error {
	if t.metadata.SizeBytes > 0 {
		if fi, err := os.Stat(t.partPath); err == nil {
			switch {
			case fi.Size() == t.metadata.SizeBytes:
				return nil
			case fi.Size() > t.metadata.SizeBytes:
				log.Logger(ctx).Sugar().Warnf("%s has %d bytes, expected at most %d: downloading again", t.partPath, fi.Size(), t.metadata.SizeBytes)
				if err := os.Remove(t.partPath); err != nil {
					return service.MakeTemporary(fmt.Errorf("remove %s: %w", t.partPath, err))
				}
			case fi.Size() > 0:
				log.Logger(ctx).Sugar().Debugf("resuming at %d/%d bytes", fi.Size(), t.metadata.SizeBytes)
			}
		}
	}
	return t.scheduler.Provider.Download(ctx, t.product.ID, t.metadata.UID, t.partPath)
}

// awaitRestoration orders the restoration of an archived product, once, and
// polls its availability until it comes online or the timeout expires
func (t *task) awaitRestoration(ctx context.Context) error {
	if err := service.Retriable(ctx, func() error {
		return t.scheduler.Provider.Order(ctx, t.product.ID)
	}, t.scheduler.baseDelay(), 3); err != nil {
		return fmt.Errorf("order: %w", err)
	}
	timeout := t.scheduler.restorationTimeout()
	log.Logger(ctx).Sugar().Infof("restoration ordered, waiting up to %v", timeout)

	deadline := time.Now().Add(timeout)
	interval := t.scheduler.pollInterval()
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &RestorationTimeoutError{Product: t.product.ID, Timeout: timeout}
		}
		if interval > remaining {
			interval = remaining
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		metadata, err := t.scheduler.Provider.Resolve(ctx, t.product.ID)
		switch {
		case err != nil && service.Temporary(err) && ctx.Err() == nil:
			log.Logger(ctx).Sugar().Warnf("poll: %v", err)
		case err != nil:
			return fmt.Errorf("poll: %w", err)
		case metadata.Availability == common.AvailabilityONLINE:
			// Size and checksum can change once restored
			t.metadata = metadata
			return nil
		}
		if interval < 8*t.scheduler.pollInterval() {
			interval *= 2
		}
	}
}

// extractedPath is the directory the product unarchives to, empty when unknown
func (t *task) extractedPath() string {
	switch t.product.Sensor {
	case common.Sentinel1, common.Sentinel2:
		return service.WithExt(t.destPath, service.ExtensionSAFE)
	case common.Sentinel3:
		return service.WithExt(t.destPath, service.ExtensionSEN3)
	}
	return ""
}
