package notifications

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/anjiri1684/skillazon/models"
)

// Mailer sends one HTML email. *BrevoService satisfies it.
type Mailer interface {
	SendEmail(ctx context.Context, toName, toEmail, subject, htmlContent string)
}

// BookingEmails turns booking lifecycle events into emails for the
// participants. It satisfies services.BookingNotifier.
type BookingEmails struct {
	mailer Mailer
	loc    *time.Location
}

func NewBookingEmails(m Mailer, loc *time.Location) *BookingEmails {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingEmails{mailer: m, loc: loc}
}

func (n *BookingEmails) BookingCreated(ctx context.Context, b *models.Booking, teacher, student *models.User) {
	if teacher == nil || student == nil {
		return
	}
	body := fmt.Sprintf("<h1>New Booking Request</h1><p>%s wants to book <b>%s</b> on %s for %d minutes.</p>%s<p>Please confirm or decline it from your dashboard.</p>",
		html.EscapeString(student.FullName()), html.EscapeString(skillTitle(b)), n.when(b), b.Duration, messageBlock(b.Message))
	n.mailer.SendEmail(ctx, teacher.FullName(), teacher.Email, "You Have a New Booking Request!", body)
}

func (n *BookingEmails) BookingConfirmed(ctx context.Context, b *models.Booking, teacher, student *models.User) {
	if teacher == nil || student == nil {
		return
	}
	body := fmt.Sprintf("<h1>Booking Confirmed</h1><p>%s confirmed your session <b>%s</b> on %s.</p>%s",
		html.EscapeString(teacher.FullName()), html.EscapeString(skillTitle(b)), n.when(b), linkBlock(b))
	n.mailer.SendEmail(ctx, student.FullName(), student.Email, "Your Booking is Confirmed!", body)
}

// BookingCancelled tells whoever did not cancel. System expiries notify both.
func (n *BookingEmails) BookingCancelled(ctx context.Context, b *models.Booking, teacher, student *models.User) {
	if teacher == nil || student == nil {
		return
	}
	reason := ""
	if b.CancellationReason != nil && *b.CancellationReason != "" {
		reason = fmt.Sprintf("<p><b>Reason:</b> %s</p>", html.EscapeString(*b.CancellationReason))
	}
	body := fmt.Sprintf("<h1>Booking Cancelled</h1><p>The session <b>%s</b> on %s has been cancelled.</p>%s",
		html.EscapeString(skillTitle(b)), n.when(b), reason)

	const subject = "Your Booking Was Cancelled"
	if b.CancelledBy == nil || *b.CancelledBy != teacher.ID {
		n.mailer.SendEmail(ctx, teacher.FullName(), teacher.Email, subject, body)
	}
	if b.CancelledBy == nil || *b.CancelledBy != student.ID {
		n.mailer.SendEmail(ctx, student.FullName(), student.Email, subject, body)
	}
}

func (n *BookingEmails) BookingReminder(ctx context.Context, b *models.Booking, teacher, student *models.User) {
	if teacher == nil || student == nil {
		return
	}
	subject := "Reminder: Your Session Starts Soon!"
	body := fmt.Sprintf("<h1>Session Reminder</h1><p>Hi there,</p><p>This is a friendly reminder that <b>%s</b> starts at %s.</p>%s",
		html.EscapeString(skillTitle(b)), b.ScheduledDate.In(n.loc).Format(time.Kitchen), linkBlock(b))

	n.mailer.SendEmail(ctx, student.FullName(), student.Email, subject, body)
	n.mailer.SendEmail(ctx, teacher.FullName(), teacher.Email, subject, body)
}

func (n *BookingEmails) when(b *models.Booking) string {
	return b.ScheduledDate.In(n.loc).Format("Mon, 02 Jan 2006 15:04 MST")
}

func skillTitle(b *models.Booking) string {
	if b.Skill != nil {
		return b.Skill.Title
	}
	return "your session"
}

func messageBlock(msg string) string {
	if msg == "" {
		return ""
	}
	return fmt.Sprintf("<p><i>%s</i></p>", html.EscapeString(msg))
}

func linkBlock(b *models.Booking) string {
	if b.MeetingLink == nil {
		return ""
	}
	return fmt.Sprintf("<p><b>Meeting Link:</b> <a href='%s'>Join Session</a> (%s)</p>", html.EscapeString(*b.MeetingLink), b.MeetingPlatform)
}
