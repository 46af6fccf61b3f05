package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusNoShow    BookingStatus = "no-show"
)

// ActiveStatuses are the statuses that hold a teacher's time slot.
var ActiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

// PastStatuses are the statuses listed in a user's session history.
var PastStatuses = []BookingStatus{BookingStatusCompleted, BookingStatusNoShow}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

var MeetingPlatforms = []string{"zoom", "google-meet", "jitsi", "in-person", "other"}

const DefaultMeetingPlatform = "jitsi"

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

type BookingRating struct {
	StudentRating *int    `json:"student_rating,omitempty"`
	StudentReview *string `gorm:"type:text" json:"student_review,omitempty"`
	TeacherRating *int    `json:"teacher_rating,omitempty"`
	TeacherReview *string `gorm:"type:text" json:"teacher_review,omitempty"`
}

type Booking struct {
	ID            uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	SkillID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"skill_id"`
	TeacherID     uuid.UUID     `gorm:"type:uuid;not null;index:idx_bookings_teacher_date" json:"teacher_id"`
	StudentID     uuid.UUID     `gorm:"type:uuid;not null;index:idx_bookings_student_date" json:"student_id"`
	ScheduledDate time.Time     `gorm:"not null;index:idx_bookings_teacher_date;index:idx_bookings_student_date" json:"scheduled_date"`
	Duration      int           `gorm:"not null" json:"duration"`
	Status        BookingStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Message       string        `gorm:"size:500" json:"message,omitempty"`
	Price         float64       `gorm:"type:numeric(10,2);not null;default:0.00" json:"price"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null;default:'pending'" json:"payment_status"`

	MeetingLink     *string `gorm:"size:255" json:"meeting_link,omitempty"`
	MeetingPlatform string  `gorm:"size:20;default:'jitsi'" json:"meeting_platform"`
	StudentNotes    *string `gorm:"type:text" json:"student_notes,omitempty"`
	TeacherNotes    *string `gorm:"type:text" json:"teacher_notes,omitempty"`

	CancellationReason *string    `gorm:"size:500" json:"cancellation_reason,omitempty"`
	CancelledBy        *uuid.UUID `gorm:"type:uuid" json:"cancelled_by,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ReminderSent       bool       `gorm:"default:false" json:"reminder_sent"`

	Rating BookingRating `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`

	Skill   *SkillSummary `gorm:"-" json:"skill,omitempty"`
	Teacher *UserSummary  `gorm:"-" json:"teacher,omitempty"`
	Student *UserSummary  `gorm:"-" json:"student,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// StatusStat is one bucket of a user's booking statistics.
type StatusStat struct {
	Status        BookingStatus `json:"status"`
	Count         int64         `json:"count"`
	TotalEarnings float64       `json:"total_earnings"`
}
