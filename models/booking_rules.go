package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	MinSessionMinutes  = 30
	MaxSessionMinutes  = 240
	CancellationWindow = 24 * time.Hour
)

var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusCompleted},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to BookingStatus) bool {
	return slices.Contains(transitions[from], to)
}

func IsActive(status BookingStatus) bool {
	return slices.Contains(ActiveStatuses, status)
}

// ConflictWindow returns the closed range blocked around a proposed start.
// The proposed session's own duration is applied on both sides; existing
// bookings starting inside the range conflict regardless of their duration.
func ConflictWindow(date time.Time, durationMinutes int) (time.Time, time.Time) {
	d := time.Duration(durationMinutes) * time.Minute
	return date.Add(-d), date.Add(d)
}

// Conflicts reports whether an existing booking blocks a proposed start.
func Conflicts(existing *Booking, date time.Time, durationMinutes int) bool {
	if !IsActive(existing.Status) {
		return false
	}
	from, to := ConflictWindow(date, durationMinutes)
	return !existing.ScheduledDate.Before(from) && !existing.ScheduledDate.After(to)
}

// CanCancel is true strictly more than 24h before the session while it is
// still pending or confirmed.
func CanCancel(b *Booking, now time.Time) bool {
	return b.ScheduledDate.Sub(now) > CancellationWindow && IsActive(b.Status)
}

func IsUpcoming(b *Booking, now time.Time) bool {
	return b.Status == BookingStatusConfirmed && b.ScheduledDate.After(now)
}

func IsPast(b *Booking, now time.Time) bool {
	return b.ScheduledDate.Before(now)
}

// EndsAt is the scheduled end of the session.
func EndsAt(b *Booking) time.Time {
	return b.ScheduledDate.Add(time.Duration(b.Duration) * time.Minute)
}

// RoleOf returns which side of the booking a user is on.
func RoleOf(b *Booking, userID uuid.UUID) (Role, bool) {
	switch userID {
	case b.TeacherID:
		return RoleTeacher, true
	case b.StudentID:
		return RoleStudent, true
	}
	return "", false
}

func IsParticipant(b *Booking, userID uuid.UUID) bool {
	_, ok := RoleOf(b, userID)
	return ok
}
