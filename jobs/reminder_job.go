package jobs

import (
	"context"
	"log"
	"time"
)

// SendSessionReminders emails both participants of every confirmed session
// starting within lead that has not been reminded yet.
func SendSessionReminders(ctx context.Context, sweeper BookingSweeper, lead time.Duration) {
	log.Println("Running job: SendSessionReminders...")

	sent, err := sweeper.SendReminders(ctx, lead)
	if err != nil {
		log.Printf("🔥 Error sending session reminders: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("✅ Sent %d session reminder(s)", sent)
	}
}
