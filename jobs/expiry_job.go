package jobs

import (
	"context"
	"log"
)

// ExpireUnconfirmedBookings cancels pending bookings whose start time passed
// before the teacher confirmed them.
func ExpireUnconfirmedBookings(ctx context.Context, sweeper BookingSweeper) {
	log.Println("Running job: ExpireUnconfirmedBookings...")

	expired, err := sweeper.ExpireStalePending(ctx)
	if err != nil {
		log.Printf("🔥 Error expiring pending bookings: %v", err)
		return
	}
	if len(expired) > 0 {
		log.Printf("✅ Expired %d unconfirmed booking(s)", len(expired))
	}
}
