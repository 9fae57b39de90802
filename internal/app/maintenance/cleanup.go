package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/foodbridge/foodbridge/internal/services"
	"github.com/foodbridge/foodbridge/pkg/logger"
)

const (
	defaultNotificationRetentionDays = 30
	defaultListingSpec               = "@hourly"
	defaultNotificationSpec          = "@daily"
)

// Cleaner coordinates background maintenance tasks such as expiring overdue
// listings and pruning read notifications.
type Cleaner struct {
	listings      *services.ListingService
	notifications *services.NotificationService
	cron          *cron.Cron
	now           func() time.Time
	log           *zap.Logger
	enabled       bool
	retention     int

	listingSchedule      string
	notificationSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for scheduling decisions.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithNotificationRetentionDays adjusts how long read notifications are retained.
func WithNotificationRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithListingSchedule overrides the cron specification for listing expiry.
func WithListingSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.listingSchedule = spec
		}
	}
}

// WithNotificationSchedule overrides the cron specification for notification pruning.
func WithNotificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.notificationSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding maintenance job being skipped.
func NewCleaner(listings *services.ListingService, notifications *services.NotificationService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		listings:             listings,
		notifications:        notifications,
		now:                  time.Now,
		retention:            defaultNotificationRetentionDays,
		listingSchedule:      defaultListingSpec,
		notificationSchedule: defaultNotificationSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.listings != nil || cleaner.notifications != nil

	return cleaner
}

// Start registers maintenance jobs with the cron scheduler and launches it if at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.listings != nil {
		if _, err := c.cron.AddFunc(c.listingSchedule, func() {
			ctx := context.Background()
			if expired, err := c.listings.ExpireOverdue(ctx); err != nil {
				c.log.Warn("listing expiry sweep failed", zap.Error(err))
			} else if expired > 0 {
				c.log.Info("expired overdue listings", zap.Int64("count", expired))
			}
		}); err != nil {
			return err
		}
	}

	if c.notifications != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.notificationSchedule, func() {
			ctx := context.Background()
			if _, err := c.notifications.PruneRead(ctx, c.retentionWindow()); err != nil {
				c.log.Warn("notification prune failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured maintenance routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.listings != nil {
		if _, err := c.listings.ExpireOverdue(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.notifications != nil && c.retention > 0 {
		if _, err := c.notifications.PruneRead(ctx, c.retentionWindow()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

func (c *Cleaner) retentionWindow() time.Duration {
	return time.Duration(c.retention) * 24 * time.Hour
}
