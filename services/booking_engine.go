package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/anjiri1684/skillazon/utils"
	"github.com/google/uuid"
)

const (
	maxMessageLength      = 500
	maxNotesLength        = 1000
	maxCancelReasonLength = 500
	maxBookingReviewLen   = 500

	expiredPendingReason = "not confirmed before the session start"
)

// BookingNotifier is told about lifecycle changes after they commit.
type BookingNotifier interface {
	BookingCreated(ctx context.Context, b *models.Booking, teacher, student *models.User)
	BookingConfirmed(ctx context.Context, b *models.Booking, teacher, student *models.User)
	BookingCancelled(ctx context.Context, b *models.Booking, teacher, student *models.User)
	BookingReminder(ctx context.Context, b *models.Booking, teacher, student *models.User)
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(context.Context, *models.Booking, *models.User, *models.User)   {}
func (noopNotifier) BookingConfirmed(context.Context, *models.Booking, *models.User, *models.User) {}
func (noopNotifier) BookingCancelled(context.Context, *models.Booking, *models.User, *models.User) {}
func (noopNotifier) BookingReminder(context.Context, *models.Booking, *models.User, *models.User)  {}

type CreateBookingInput struct {
	SkillID       uuid.UUID
	ScheduledDate time.Time
	Duration      *int
	Message       string
}

type ConfirmInput struct {
	MeetingLink     *string
	MeetingPlatform *string
	TeacherNotes    *string
}

type BookingQuery struct {
	// As is teacher, student, or empty for both sides.
	As     models.Role
	Status models.BookingStatus
}

// BookingEngine owns the booking lifecycle: creation with conflict
// detection, the status state machine, rating annotations and statistics.
type BookingEngine struct {
	store    store.Store
	notifier BookingNotifier
	now      func() time.Time
	meetLink func(uuid.UUID) string
}

type EngineOption func(*BookingEngine)

func WithClock(now func() time.Time) EngineOption {
	return func(e *BookingEngine) { e.now = now }
}

func WithNotifier(n BookingNotifier) EngineOption {
	return func(e *BookingEngine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithMeetingLinks(gen func(uuid.UUID) string) EngineOption {
	return func(e *BookingEngine) { e.meetLink = gen }
}

func NewBookingEngine(s store.Store, opts ...EngineOption) *BookingEngine {
	e := &BookingEngine{
		store:    s,
		notifier: noopNotifier{},
		now:      time.Now,
		meetLink: utils.GenerateMeetingLink,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *BookingEngine) CreateBooking(ctx context.Context, studentID uuid.UUID, in CreateBookingInput) (*models.Booking, error) {
	var (
		booking          *models.Booking
		teacher, student *models.User
	)
	err := e.store.Transaction(ctx, func(tx store.Tx) error {
		skill, err := tx.GetSkill(ctx, in.SkillID)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("get skill: %w", err)
		}
		if skill == nil || !skill.IsActive {
			return fmt.Errorf("%w: skill not found or not available", ErrNotFound)
		}
		if skill.TeacherID == studentID {
			return fmt.Errorf("%w: you cannot book your own skill", ErrInvalidOperation)
		}
		if !in.ScheduledDate.After(e.now()) {
			return fmt.Errorf("%w: booking date must be in the future", ErrInvalidInput)
		}
		duration := skill.Duration
		if in.Duration != nil {
			duration = *in.Duration
		}
		if duration < models.MinSessionMinutes {
			return fmt.Errorf("%w: minimum duration is %d minutes", ErrInvalidInput, models.MinSessionMinutes)
		}
		if len(in.Message) > maxMessageLength {
			return fmt.Errorf("%w: message cannot exceed %d characters", ErrInvalidInput, maxMessageLength)
		}

		student, err = e.lookupUser(ctx, tx, studentID, "student")
		if err != nil {
			return err
		}
		if !student.IsActive || !student.Capabilities.CanLearn {
			return fmt.Errorf("%w: this account cannot book sessions", ErrForbidden)
		}

		if err := tx.LockTeacherSchedule(ctx, skill.TeacherID); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return fmt.Errorf("%w: teacher not found", ErrNotFound)
			}
			return fmt.Errorf("lock teacher schedule: %w", err)
		}
		conflict, err := tx.HasConflict(ctx, skill.TeacherID, in.ScheduledDate, duration)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if conflict {
			return fmt.Errorf("%w: this time slot is not available", ErrConflict)
		}

		teacher, err = e.lookupUser(ctx, tx, skill.TeacherID, "teacher")
		if err != nil {
			return err
		}

		booking = &models.Booking{
			ID:              uuid.New(),
			SkillID:         skill.ID,
			TeacherID:       skill.TeacherID,
			StudentID:       studentID,
			ScheduledDate:   in.ScheduledDate,
			Duration:        duration,
			Status:          models.BookingStatusPending,
			Message:         in.Message,
			Price:           skill.Price,
			PaymentStatus:   models.PaymentStatusPending,
			MeetingPlatform: models.DefaultMeetingPlatform,
		}
		if err := tx.CreateBooking(ctx, booking); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		booking.Skill = skill.Summary()
		booking.Teacher = teacher.Summary()
		booking.Student = student.Summary()
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Booking %s created for skill %s at %s", booking.ID, booking.SkillID, booking.ScheduledDate.Format(time.RFC3339))
	go e.notifier.BookingCreated(context.WithoutCancel(ctx), booking, teacher, student)
	return booking, nil
}

// transition loads a booking under lock, checks the acting account is still
// active, applies fn and saves the result.
func (e *BookingEngine) transition(ctx context.Context, bookingID, actorID uuid.UUID, fn func(tx store.Tx, b *models.Booking) error) (*models.Booking, *models.User, *models.User, error) {
	var (
		booking          *models.Booking
		teacher, student *models.User
	)
	err := e.store.Transaction(ctx, func(tx store.Tx) error {
		b, err := tx.GetBookingForUpdate(ctx, bookingID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if err := requireActive(ctx, tx, actorID); err != nil {
			return err
		}
		if err := fn(tx, b); err != nil {
			return err
		}
		if err := tx.SaveBooking(ctx, b); err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		teacher, student = e.attachSummaries(ctx, tx, b)
		booking = b
		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return booking, teacher, student, nil
}

func (e *BookingEngine) Confirm(ctx context.Context, bookingID, byUserID uuid.UUID, in ConfirmInput) (*models.Booking, error) {
	if in.MeetingPlatform != nil && *in.MeetingPlatform != "" && !slices.Contains(models.MeetingPlatforms, *in.MeetingPlatform) {
		return nil, fmt.Errorf("%w: unknown meeting platform %q", ErrInvalidInput, *in.MeetingPlatform)
	}
	if in.TeacherNotes != nil && len(*in.TeacherNotes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes cannot exceed %d characters", ErrInvalidInput, maxNotesLength)
	}

	booking, teacher, student, err := e.transition(ctx, bookingID, byUserID, func(tx store.Tx, b *models.Booking) error {
		if b.TeacherID != byUserID {
			return fmt.Errorf("%w: only the teacher can confirm this booking", ErrForbidden)
		}
		if !models.CanTransition(b.Status, models.BookingStatusConfirmed) {
			return fmt.Errorf("%w: booking cannot be confirmed from status %s", ErrInvalidOperation, b.Status)
		}
		b.Status = models.BookingStatusConfirmed
		if in.MeetingLink != nil && *in.MeetingLink != "" {
			b.MeetingLink = in.MeetingLink
		} else if b.MeetingLink == nil {
			link := e.meetLink(b.ID)
			b.MeetingLink = &link
		}
		if in.MeetingPlatform != nil && *in.MeetingPlatform != "" {
			b.MeetingPlatform = *in.MeetingPlatform
		}
		if in.TeacherNotes != nil && *in.TeacherNotes != "" {
			b.TeacherNotes = in.TeacherNotes
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Booking %s confirmed by teacher %s", booking.ID, byUserID)
	go e.notifier.BookingConfirmed(context.WithoutCancel(ctx), booking, teacher, student)
	return booking, nil
}

func (e *BookingEngine) Cancel(ctx context.Context, bookingID, byUserID uuid.UUID, reason string) (*models.Booking, error) {
	if len(reason) > maxCancelReasonLength {
		return nil, fmt.Errorf("%w: cancellation reason cannot exceed %d characters", ErrInvalidInput, maxCancelReasonLength)
	}

	booking, teacher, student, err := e.transition(ctx, bookingID, byUserID, func(tx store.Tx, b *models.Booking) error {
		if !models.IsParticipant(b, byUserID) {
			return fmt.Errorf("%w: not authorized to cancel this booking", ErrForbidden)
		}
		if !models.CanCancel(b, e.now()) {
			return fmt.Errorf("%w: booking cannot be cancelled (less than 24 hours before session or already finished)", ErrInvalidOperation)
		}
		by := byUserID
		b.Status = models.BookingStatusCancelled
		b.CancelledBy = &by
		if reason != "" {
			b.CancellationReason = &reason
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Booking %s cancelled by %s", booking.ID, byUserID)
	go e.notifier.BookingCancelled(context.WithoutCancel(ctx), booking, teacher, student)
	return booking, nil
}

// Complete marks a confirmed session as held and credits every counter it
// affects in the same transaction.
func (e *BookingEngine) Complete(ctx context.Context, bookingID, byUserID uuid.UUID) (*models.Booking, error) {
	booking, _, _, err := e.transition(ctx, bookingID, byUserID, func(tx store.Tx, b *models.Booking) error {
		if b.TeacherID != byUserID {
			return fmt.Errorf("%w: only the teacher can mark this booking as completed", ErrForbidden)
		}
		if !models.CanTransition(b.Status, models.BookingStatusCompleted) {
			return fmt.Errorf("%w: only confirmed bookings can be completed", ErrInvalidOperation)
		}
		now := e.now()
		b.Status = models.BookingStatusCompleted
		b.CompletedAt = &now

		if err := tx.IncrementSkillSessions(ctx, b.SkillID); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("increment skill sessions: %w", err)
		}
		if err := tx.IncrementUserStats(ctx, b.TeacherID, models.StatsDelta{SessionsAsTeacher: 1, Earnings: b.Price}); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("update teacher stats: %w", err)
		}
		if err := tx.IncrementUserStats(ctx, b.StudentID, models.StatsDelta{SessionsAsStudent: 1}); err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("update student stats: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Booking %s completed; %.2f credited to teacher %s", booking.ID, booking.Price, booking.TeacherID)
	return booking, nil
}

// AttachRating annotates the booking itself. It is independent of the
// review ledger and does not touch any aggregate.
func (e *BookingEngine) AttachRating(ctx context.Context, bookingID, byUserID uuid.UUID, raterRole models.Role, rating int, review string) (*models.Booking, error) {
	if raterRole != models.RoleStudent && raterRole != models.RoleTeacher {
		return nil, fmt.Errorf("%w: rater role must be student or teacher", ErrInvalidInput)
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if len(review) > maxBookingReviewLen {
		return nil, fmt.Errorf("%w: review cannot exceed %d characters", ErrInvalidInput, maxBookingReviewLen)
	}

	booking, _, _, err := e.transition(ctx, bookingID, byUserID, func(tx store.Tx, b *models.Booking) error {
		role, ok := models.RoleOf(b, byUserID)
		if !ok || role != raterRole {
			return fmt.Errorf("%w: you can only rate as your own side of the booking", ErrForbidden)
		}
		if b.Status != models.BookingStatusCompleted {
			return fmt.Errorf("%w: only completed bookings can be rated", ErrInvalidOperation)
		}
		r, text := rating, review
		if raterRole == models.RoleStudent {
			b.Rating.StudentRating, b.Rating.StudentReview = &r, &text
		} else {
			b.Rating.TeacherRating, b.Rating.TeacherReview = &r, &text
		}
		return nil
	})
	return booking, err
}

func (e *BookingEngine) GetBooking(ctx context.Context, bookingID, viewerID uuid.UUID, isAdmin bool) (*models.Booking, error) {
	var booking *models.Booking
	err := e.store.View(ctx, func(tx store.Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if !isAdmin && !models.IsParticipant(b, viewerID) {
			return fmt.Errorf("%w: not authorized to view this booking", ErrForbidden)
		}
		e.attachSummaries(ctx, tx, b)
		booking = b
		return nil
	})
	return booking, err
}

func (e *BookingEngine) ListBookings(ctx context.Context, userID uuid.UUID, q BookingQuery) ([]models.Booking, error) {
	f := roleFilter(userID, q.As)
	if q.Status != "" {
		f.Statuses = []models.BookingStatus{q.Status}
	}
	return e.list(ctx, f)
}

// ListAll is the admin view over every booking, optionally by status.
func (e *BookingEngine) ListAll(ctx context.Context, status models.BookingStatus) ([]models.Booking, error) {
	var f store.BookingFilter
	if status != "" {
		f.Statuses = []models.BookingStatus{status}
	}
	return e.list(ctx, f)
}

// FindUpcoming lists confirmed sessions still ahead, soonest first.
func (e *BookingEngine) FindUpcoming(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Booking, error) {
	now := e.now()
	f := roleFilter(userID, role)
	f.Statuses = []models.BookingStatus{models.BookingStatusConfirmed}
	f.ScheduledAfter = &now
	f.Ascending = true
	return e.list(ctx, f)
}

// FindPast lists finished sessions, most recent first.
func (e *BookingEngine) FindPast(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.Booking, error) {
	now := e.now()
	f := roleFilter(userID, role)
	f.Statuses = models.PastStatuses
	f.ScheduledBefore = &now
	return e.list(ctx, f)
}

// GetStats groups the user's bookings on one side by status.
func (e *BookingEngine) GetStats(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.StatusStat, error) {
	if role != models.RoleTeacher && role != models.RoleStudent {
		return nil, fmt.Errorf("%w: role must be teacher or student", ErrInvalidInput)
	}
	var stats []models.StatusStat
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		stats, err = tx.BookingStats(ctx, userID, role)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("booking stats: %w", err)
	}
	return stats, nil
}

// CombinedStats is a user's booking statistics on both sides at once.
type CombinedStats struct {
	AsTeacher []models.StatusStat `json:"as_teacher"`
	AsStudent []models.StatusStat `json:"as_student"`
}

// GetCombinedStats groups the user's bookings by status for each side.
func (e *BookingEngine) GetCombinedStats(ctx context.Context, userID uuid.UUID) (*CombinedStats, error) {
	out := &CombinedStats{}
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		if out.AsTeacher, err = tx.BookingStats(ctx, userID, models.RoleTeacher); err != nil {
			return err
		}
		out.AsStudent, err = tx.BookingStats(ctx, userID, models.RoleStudent)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("booking stats: %w", err)
	}
	return out, nil
}

// SendReminders flags confirmed sessions starting in (now, now+lead] and
// notifies both participants once per booking.
func (e *BookingEngine) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	now := e.now()
	until := now.Add(lead)
	notSent := false

	type reminder struct {
		booking          models.Booking
		teacher, student *models.User
	}
	var due []reminder
	err := e.store.Transaction(ctx, func(tx store.Tx) error {
		bookings, err := tx.ListBookings(ctx, store.BookingFilter{
			Statuses:        []models.BookingStatus{models.BookingStatusConfirmed},
			ScheduledAfter: &now,
			ScheduledUntil: &until,
			ReminderSent:   &notSent,
			Ascending:      true,
		})
		if err != nil {
			return err
		}
		for i := range bookings {
			b := &bookings[i]
			b.ReminderSent = true
			if err := tx.SaveBooking(ctx, b); err != nil {
				return err
			}
			teacher, student := e.attachSummaries(ctx, tx, b)
			due = append(due, reminder{booking: *b, teacher: teacher, student: student})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("send reminders: %w", err)
	}

	for _, r := range due {
		log.Printf("Sending reminder for booking ID: %s", r.booking.ID)
		e.notifier.BookingReminder(ctx, &r.booking, r.teacher, r.student)
	}
	return len(due), nil
}

// ExpireStalePending cancels pending bookings whose start has passed
// without the teacher confirming them.
func (e *BookingEngine) ExpireStalePending(ctx context.Context) ([]models.Booking, error) {
	now := e.now()
	var (
		expired []models.Booking
		parties [][2]*models.User
	)
	err := e.store.Transaction(ctx, func(tx store.Tx) error {
		bookings, err := tx.ListBookings(ctx, store.BookingFilter{
			Statuses:        []models.BookingStatus{models.BookingStatusPending},
			ScheduledBefore: &now,
		})
		if err != nil {
			return err
		}
		for i := range bookings {
			b := &bookings[i]
			if !models.CanTransition(b.Status, models.BookingStatusCancelled) {
				continue
			}
			reason := expiredPendingReason
			b.Status = models.BookingStatusCancelled
			b.CancellationReason = &reason
			if err := tx.SaveBooking(ctx, b); err != nil {
				return err
			}
			teacher, student := e.attachSummaries(ctx, tx, b)
			expired = append(expired, *b)
			parties = append(parties, [2]*models.User{teacher, student})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expire pending bookings: %w", err)
	}

	for i := range expired {
		log.Printf("Booking %s expired without confirmation", expired[i].ID)
		e.notifier.BookingCancelled(ctx, &expired[i], parties[i][0], parties[i][1])
	}
	return expired, nil
}

func roleFilter(userID uuid.UUID, role models.Role) store.BookingFilter {
	id := userID
	switch role {
	case models.RoleTeacher:
		return store.BookingFilter{TeacherID: &id}
	case models.RoleStudent:
		return store.BookingFilter{StudentID: &id}
	}
	return store.BookingFilter{ParticipantID: &id}
}

func (e *BookingEngine) list(ctx context.Context, f store.BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		bookings, err = tx.ListBookings(ctx, f)
		if err != nil {
			return err
		}
		skills := map[uuid.UUID]*models.Skill{}
		users := map[uuid.UUID]*models.User{}
		for i := range bookings {
			b := &bookings[i]
			if _, ok := skills[b.SkillID]; !ok {
				skills[b.SkillID], _ = tx.GetSkill(ctx, b.SkillID)
			}
			for _, id := range []uuid.UUID{b.TeacherID, b.StudentID} {
				if _, ok := users[id]; !ok {
					users[id], _ = tx.GetUser(ctx, id)
				}
			}
			b.Skill = skills[b.SkillID].Summary()
			b.Teacher = users[b.TeacherID].Summary()
			b.Student = users[b.StudentID].Summary()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (e *BookingEngine) attachSummaries(ctx context.Context, tx store.Tx, b *models.Booking) (*models.User, *models.User) {
	skill, _ := tx.GetSkill(ctx, b.SkillID)
	teacher, _ := tx.GetUser(ctx, b.TeacherID)
	student, _ := tx.GetUser(ctx, b.StudentID)
	b.Skill = skill.Summary()
	b.Teacher = teacher.Summary()
	b.Student = student.Summary()
	return teacher, student
}

// requireActive rejects actions by accounts that are missing or deactivated,
// whatever their token still claims.
func requireActive(ctx context.Context, tx store.Tx, userID uuid.UUID) error {
	u, err := tx.GetUser(ctx, userID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: account not found", ErrForbidden)
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		return fmt.Errorf("%w: account is deactivated", ErrForbidden)
	}
	return nil
}

func (e *BookingEngine) lookupUser(ctx context.Context, tx store.Tx, id uuid.UUID, what string) (*models.User, error) {
	u, err := tx.GetUser(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s not found", ErrNotFound, what)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", what, err)
	}
	return u, nil
}
