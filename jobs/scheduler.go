package jobs

import (
	"context"
	"fmt"
	"time"

	config "github.com/anjiri1684/skillazon/configs"
	"github.com/anjiri1684/skillazon/models"
	"github.com/robfig/cron/v3"
)

// BookingSweeper is the slice of the booking engine the jobs drive.
type BookingSweeper interface {
	SendReminders(ctx context.Context, lead time.Duration) (int, error)
	ExpireStalePending(ctx context.Context) ([]models.Booking, error)
}

func Register(ctx context.Context, c *cron.Cron, sweeper BookingSweeper, cfg config.JobsConfig) error {
	lead := time.Duration(cfg.ReminderLeadMinutes) * time.Minute

	if _, err := c.AddFunc(cfg.ReminderSpec, func() { SendSessionReminders(ctx, sweeper, lead) }); err != nil {
		return fmt.Errorf("schedule reminders %q: %w", cfg.ReminderSpec, err)
	}
	if _, err := c.AddFunc(cfg.ExpirySpec, func() { ExpireUnconfirmedBookings(ctx, sweeper) }); err != nil {
		return fmt.Errorf("schedule pending expiry %q: %w", cfg.ExpirySpec, err)
	}
	return nil
}
