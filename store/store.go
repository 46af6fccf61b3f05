// Package store holds persistence for Skillazon behind one interface with a
// postgres (gorm) implementation and an in-memory one.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/google/uuid"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
)

type BookingFilter struct {
	TeacherID       *uuid.UUID
	StudentID       *uuid.UUID
	ParticipantID   *uuid.UUID
	Statuses        []models.BookingStatus
	ScheduledAfter  *time.Time
	ScheduledBefore *time.Time
	// ScheduledUntil is an inclusive upper bound.
	ScheduledUntil *time.Time
	ReminderSent    *bool
	Ascending       bool
	Limit           int
}

type SkillFilter struct {
	TeacherID  *uuid.UUID
	Category   string
	Level      string
	MinPrice   *float64
	MaxPrice   *float64
	ActiveOnly bool
	// TopRated orders by rating average, then rating count, instead of newest first.
	TopRated bool
	Limit    int
}

type ReviewFilter struct {
	TeacherID   *uuid.UUID
	SkillID     *uuid.UUID
	Type         models.ReviewType
	VisibleOnly  bool
	ReportedOnly bool
}

// Tx is the set of operations available inside View and Transaction.
type Tx interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	ListUsers(ctx context.Context) ([]models.User, error)
	IncrementUserStats(ctx context.Context, id uuid.UUID, delta models.StatsDelta) error
	ApplyUserRating(ctx context.Context, id uuid.UUID, role models.Role, rating int) error

	CreateSkill(ctx context.Context, s *models.Skill) error
	GetSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error)
	SaveSkill(ctx context.Context, s *models.Skill) error
	ListSkills(ctx context.Context, f SkillFilter) ([]models.Skill, error)
	IncrementSkillSessions(ctx context.Context, id uuid.UUID) error
	ApplySkillRating(ctx context.Context, id uuid.UUID, rating int) error

	// LockTeacherSchedule serialises schedule changes for one teacher until
	// the surrounding transaction ends.
	LockTeacherSchedule(ctx context.Context, teacherID uuid.UUID) error
	HasConflict(ctx context.Context, teacherID uuid.UUID, date time.Time, durationMinutes int) (bool, error)
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	SaveBooking(ctx context.Context, b *models.Booking) error
	ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error)
	BookingStats(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.StatusStat, error)

	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error)
	FindReview(ctx context.Context, bookingID uuid.UUID, reviewType models.ReviewType) (*models.Review, error)
	SaveReview(ctx context.Context, r *models.Review) error
	ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error)
	// RatingDistribution counts a teacher's visible student reviews per star value.
	RatingDistribution(ctx context.Context, teacherID uuid.UUID) ([]models.RatingBucket, error)

	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, room string, limit int) ([]models.Message, error)

	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)
	SaveRefreshToken(ctx context.Context, t *models.RefreshToken) error
}

type Store interface {
	// View runs fn with read access to the latest committed state.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Transaction runs fn atomically; any error discards every write fn made.
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}
