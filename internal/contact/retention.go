package contact

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultRetentionInterval = 6 * time.Hour
	defaultDeleteBatchSize   = 500
	maxDeleteBatchesPerRun   = 200
)

// RetentionCleaner periodically deletes submissions older than the retention window.
type RetentionCleaner struct {
	db        *gorm.DB
	retention time.Duration
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewRetentionCleaner returns nil when db is nil or retentionDays is not positive,
// which keeps submissions forever.
func NewRetentionCleaner(db *gorm.DB, retentionDays int, interval time.Duration) *RetentionCleaner {
	if db == nil || retentionDays <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = defaultRetentionInterval
	}
	return &RetentionCleaner{
		db:        db,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		interval:  interval,
		batchSize: defaultDeleteBatchSize,
		now:       time.Now,
	}
}

// Start launches the cleanup loop in a background goroutine.
func (c *RetentionCleaner) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.run(ctx)
	log.WithFields(log.Fields{"interval": c.interval, "retention": c.retention}).Info("contact retention cleaner started")
}

func (c *RetentionCleaner) run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		c.CleanupOnce(ctx)
		timer.Reset(c.interval)
	}
}

// CleanupOnce deletes expired submissions in batches and returns the count.
func (c *RetentionCleaner) CleanupOnce(ctx context.Context) int64 {
	if c == nil {
		return 0
	}
	cutoff := c.now().UTC().Add(-c.retention)

	var deleted int64
	for i := 0; i < maxDeleteBatchesPerRun; i++ {
		if ctx.Err() != nil {
			break
		}
		n, err := c.deleteBatch(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("contact retention cleaner: delete batch failed")
			break
		}
		deleted += n
		if n < int64(c.batchSize) {
			break
		}
	}
	if deleted > 0 {
		log.WithFields(log.Fields{"deleted": deleted, "cutoff": cutoff.Format(time.RFC3339)}).Info("contact retention cleaner: removed old submissions")
	}
	return deleted
}

func (c *RetentionCleaner) deleteBatch(ctx context.Context, cutoff time.Time) (int64, error) {
	// A bounded subquery keeps each delete short.
	res := c.db.WithContext(ctx).Exec(`
		DELETE FROM contact_submissions
		WHERE id IN (
			SELECT id FROM contact_submissions
			WHERE created_at < ?
			ORDER BY created_at ASC
			LIMIT ?
		)
	`, cutoff, c.batchSize)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
