// Package archival holds the periodic maintenance jobs. They only touch
// durable state and are safe to re-run: each pass re-queries what is due.
package archival

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	storage "marketplace-chat/internal/infrastructure/storage/port"
	repository "marketplace-chat/internal/pkg/chat/persistence/repository/port"
)

const (
	JobArchive = "archive"
	JobCleanup = "cleanup"

	DefaultArchiveAfter = 90 * 24 * time.Hour
	DefaultBatchSize    = 500
)

var ErrUnknownJob = errors.New("archival: unknown job")

type Config struct {
	// ArchiveAfter is the inactivity window before auto-archival.
	ArchiveAfter time.Duration
	BatchSize    int
}

// Summary is the outcome of one job run.
type Summary struct {
	Job       string        `json:"job"`
	Processed int           `json:"processed"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

type Jobs struct {
	repo  repository.ChatRepository
	store storage.ObjectStore
	cfg   Config
	log   logrus.FieldLogger
}

func NewJobs(repo repository.ChatRepository, store storage.ObjectStore, cfg Config, log logrus.FieldLogger) *Jobs {
	if cfg.ArchiveAfter <= 0 {
		cfg.ArchiveAfter = DefaultArchiveAfter
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Jobs{repo: repo, store: store, cfg: cfg, log: log}
}

// Run dispatches by job name. The scheduler and the admin endpoint both
// come through here.
func (j *Jobs) Run(ctx context.Context, name string, now time.Time) (Summary, error) {
	switch name {
	case JobArchive:
		return j.ArchiveInactive(ctx, now)
	case JobCleanup:
		return j.CleanupExpiredImages(ctx, now)
	}
	return Summary{Job: name}, fmt.Errorf("%w: %q", ErrUnknownJob, name)
}

// ArchiveInactive moves ACTIVE conversations idle since before
// now-ArchiveAfter to AUTO_ARCHIVED, one bounded batch at a time.
func (j *Jobs) ArchiveInactive(ctx context.Context, now time.Time) (Summary, error) {
	start := time.Now()
	sum := Summary{Job: JobArchive}
	now = now.UTC()
	cutoff := now.Add(-j.cfg.ArchiveAfter)
	log := j.log.WithFields(logrus.Fields{"function": "ArchiveInactive", "cutoff": cutoff})

	for {
		if err := ctx.Err(); err != nil {
			return j.finish(log, sum, start, err)
		}
		n, err := j.repo.ArchiveInactive(ctx, cutoff, j.cfg.BatchSize, now)
		if err != nil {
			return j.finish(log, sum, start, err)
		}
		sum.Processed += int(n)
		sum.Succeeded += int(n)
		if n < int64(j.cfg.BatchSize) {
			break
		}
	}
	return j.finish(log, sum, start, nil)
}

// CleanupExpiredImages purges images past their DeleteAfter: object first,
// then record. Item failures are counted and never stop the run. Batches are
// read by keyset so a failed item is passed over rather than re-read.
func (j *Jobs) CleanupExpiredImages(ctx context.Context, now time.Time) (Summary, error) {
	start := time.Now()
	sum := Summary{Job: JobCleanup}
	log := j.log.WithFields(logrus.Fields{"function": "CleanupExpiredImages"})

	var itemErrs *multierror.Error
	var after *repository.ImageCursor
	for {
		if err := ctx.Err(); err != nil {
			return j.finish(log, sum, start, multierror.Append(itemErrs, err).ErrorOrNil())
		}
		batch, err := j.repo.ListExpiredImages(ctx, now.UTC(), after, j.cfg.BatchSize)
		if err != nil {
			return j.finish(log, sum, start, multierror.Append(itemErrs, err).ErrorOrNil())
		}

		for _, img := range batch {
			sum.Processed++
			if err := j.purge(ctx, img.ID, img.StorageKey); err != nil {
				sum.Failed++
				itemErrs = multierror.Append(itemErrs, fmt.Errorf("image %s: %w", img.ID, err))
				log.WithFields(logrus.Fields{"image_id": img.ID, "storage_key": img.StorageKey}).WithError(err).Warn("image cleanup failed")
				continue
			}
			sum.Succeeded++
		}
		if len(batch) < j.cfg.BatchSize {
			break
		}
		last := batch[len(batch)-1]
		after = &repository.ImageCursor{DeleteAfter: last.DeleteAfter, ID: last.ID}
	}

	if itemErrs != nil {
		// Item failures are reported in the summary, not as a run failure.
		log.WithError(itemErrs.ErrorOrNil()).Warn("some images were not cleaned up")
	}
	return j.finish(log, sum, start, nil)
}

func (j *Jobs) purge(ctx context.Context, imageID, key string) error {
	if err := j.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	if err := j.repo.DeleteImage(ctx, imageID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

func (j *Jobs) finish(log logrus.FieldLogger, sum Summary, start time.Time, err error) (Summary, error) {
	sum.Duration = time.Since(start)
	entry := log.WithFields(logrus.Fields{
		"job":       sum.Job,
		"processed": sum.Processed,
		"succeeded": sum.Succeeded,
		"failed":    sum.Failed,
		"duration":  sum.Duration.String(),
	})
	if err != nil {
		entry.WithError(err).Error("job run aborted")
		return sum, err
	}
	entry.Info("job run finished")
	return sum, nil
}
