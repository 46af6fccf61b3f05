package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/google/uuid"
)

// SkillRater folds a new review into a skill's rating aggregate.
type SkillRater interface {
	UpdateRating(ctx context.Context, skillID uuid.UUID, rating int) error
}

// UserRater folds a new review into a user's per-role rating average.
type UserRater interface {
	RecordRating(ctx context.Context, userID uuid.UUID, role models.Role, rating int) error
}

type SubmitReviewInput struct {
	BookingID  uuid.UUID         `validate:"required"`
	ReviewType models.ReviewType `validate:"required,oneof=student-to-teacher teacher-to-student"`
	Rating     int               `validate:"min=1,max=5"`
	Review     string            `validate:"min=10,max=1000"`
}

const maxResponseLength = 500

type ReviewLedger struct {
	store  store.Store
	skills SkillRater
	users  UserRater
	now    func() time.Time
}

func NewReviewLedger(s store.Store, skills SkillRater, users UserRater) *ReviewLedger {
	return &ReviewLedger{store: s, skills: skills, users: users, now: time.Now}
}

// SubmitReview records one review per booking and direction. The rating
// aggregates are updated after the review is stored; a failure there is
// logged and does not fail the submission.
func (l *ReviewLedger) SubmitReview(ctx context.Context, byUserID uuid.UUID, in SubmitReviewInput) (*models.Review, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	var review *models.Review
	err := l.store.Transaction(ctx, func(tx store.Tx) error {
		b, err := tx.GetBooking(ctx, in.BookingID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: booking not found", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get booking: %w", err)
		}
		if b.Status != models.BookingStatusCompleted {
			return fmt.Errorf("%w: can only review completed bookings", ErrInvalidOperation)
		}
		if err := requireActive(ctx, tx, byUserID); err != nil {
			return err
		}
		if in.ReviewType.Reviewer(b) != byUserID {
			return fmt.Errorf("%w: you cannot submit this review for the booking", ErrForbidden)
		}

		_, err = tx.FindReview(ctx, b.ID, in.ReviewType)
		if err == nil {
			return fmt.Errorf("%w: you have already reviewed this session", ErrConflict)
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("find review: %w", err)
		}

		review = &models.Review{
			ID:         uuid.New(),
			BookingID:  b.ID,
			ReviewType: in.ReviewType,
			SkillID:    b.SkillID,
			TeacherID:  b.TeacherID,
			StudentID:  b.StudentID,
			Rating:     in.Rating,
			Review:     in.Review,
			IsPublic:   true,
		}
		if err := tx.CreateReview(ctx, review); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: you have already reviewed this session", ErrConflict)
			}
			return fmt.Errorf("create review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.applyRatings(ctx, review)
	log.Printf("✅ Review %s (%s) recorded for booking %s", review.ID, review.ReviewType, review.BookingID)
	return review, nil
}

func (l *ReviewLedger) applyRatings(ctx context.Context, r *models.Review) {
	if r.ReviewType == models.ReviewStudentToTeacher {
		if err := l.skills.UpdateRating(ctx, r.SkillID, r.Rating); err != nil {
			log.Printf("⚠️ Failed to update rating for skill %s: %v", r.SkillID, err)
		}
		if err := l.users.RecordRating(ctx, r.TeacherID, models.RoleTeacher, r.Rating); err != nil {
			log.Printf("⚠️ Failed to update teacher rating for %s: %v", r.TeacherID, err)
		}
		return
	}
	if err := l.users.RecordRating(ctx, r.StudentID, models.RoleStudent, r.Rating); err != nil {
		log.Printf("⚠️ Failed to update student rating for %s: %v", r.StudentID, err)
	}
}

func (l *ReviewLedger) ListTeacherReviews(ctx context.Context, teacherID uuid.UUID) ([]models.Review, error) {
	return l.list(ctx, store.ReviewFilter{TeacherID: &teacherID, Type: models.ReviewStudentToTeacher, VisibleOnly: true})
}

func (l *ReviewLedger) ListSkillReviews(ctx context.Context, skillID uuid.UUID) ([]models.Review, error) {
	return l.list(ctx, store.ReviewFilter{SkillID: &skillID, Type: models.ReviewStudentToTeacher, VisibleOnly: true})
}

// HideReview removes a review from public listings. Aggregates are left as they are.
func (l *ReviewLedger) HideReview(ctx context.Context, reviewID uuid.UUID) (*models.Review, error) {
	var review *models.Review
	err := l.store.Transaction(ctx, func(tx store.Tx) error {
		r, err := tx.GetReview(ctx, reviewID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: review not found", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		r.IsHidden = true
		if err := tx.SaveReview(ctx, r); err != nil {
			return fmt.Errorf("save review: %w", err)
		}
		review = r
		return nil
	})
	return review, err
}

// AddResponse lets the reviewed party reply to a review once.
func (l *ReviewLedger) AddResponse(ctx context.Context, reviewID, byUserID uuid.UUID, text string) (*models.Review, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: response text is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > maxResponseLength {
		return nil, fmt.Errorf("%w: response cannot exceed %d characters", ErrInvalidInput, maxResponseLength)
	}
	return l.update(ctx, reviewID, byUserID, func(r *models.Review) error {
		if r.Reviewee() != byUserID {
			return fmt.Errorf("%w: only the reviewed user can respond", ErrForbidden)
		}
		if r.Response.Text != nil {
			return fmt.Errorf("%w: this review already has a response", ErrConflict)
		}
		now, by := l.now(), byUserID
		r.Response = models.ReviewResponse{Text: &text, RespondedAt: &now, RespondedBy: &by}
		return nil
	})
}

// AddHelpfulVote counts one vote per user. Authors cannot vote on their own review.
func (l *ReviewLedger) AddHelpfulVote(ctx context.Context, reviewID, byUserID uuid.UUID) (*models.Review, error) {
	return l.update(ctx, reviewID, byUserID, func(r *models.Review) error {
		if r.Reviewer() == byUserID {
			return fmt.Errorf("%w: you cannot vote on your own review", ErrInvalidOperation)
		}
		if slices.Contains(r.HelpfulVoters, byUserID) {
			return fmt.Errorf("%w: you already marked this review as helpful", ErrConflict)
		}
		r.HelpfulVoters = append(slices.Clone(r.HelpfulVoters), byUserID)
		r.HelpfulVotes = len(r.HelpfulVoters)
		return nil
	})
}

// ReportReview flags a review for moderation, once per user.
func (l *ReviewLedger) ReportReview(ctx context.Context, reviewID, byUserID uuid.UUID, reason string) (*models.Review, error) {
	if !slices.Contains(models.ReportReasons, reason) {
		return nil, fmt.Errorf("%w: reason must be one of %s", ErrInvalidInput, strings.Join(models.ReportReasons, ", "))
	}
	return l.update(ctx, reviewID, byUserID, func(r *models.Review) error {
		for _, rep := range r.Reports {
			if rep.UserID == byUserID {
				return fmt.Errorf("%w: you already reported this review", ErrConflict)
			}
		}
		r.Reports = append(slices.Clone(r.Reports), models.ReviewReport{UserID: byUserID, Reason: reason, ReportedAt: l.now()})
		r.ReportCount = len(r.Reports)
		log.Printf("⚠️ Review %s reported by %s (%s)", r.ID, byUserID, reason)
		return nil
	})
}

// GetTeacherStats summarises the visible student reviews of a teacher.
func (l *ReviewLedger) GetTeacherStats(ctx context.Context, teacherID uuid.UUID) (models.RatingSummary, error) {
	var buckets []models.RatingBucket
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		buckets, err = tx.RatingDistribution(ctx, teacherID)
		return err
	})
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("rating distribution: %w", err)
	}
	return models.SummarizeRatings(buckets), nil
}

// ListReported is the moderation queue: every review with at least one report.
func (l *ReviewLedger) ListReported(ctx context.Context) ([]models.Review, error) {
	return l.list(ctx, store.ReviewFilter{ReportedOnly: true})
}

// update applies fn to a visible review on behalf of an active user.
func (l *ReviewLedger) update(ctx context.Context, reviewID, byUserID uuid.UUID, fn func(r *models.Review) error) (*models.Review, error) {
	var review *models.Review
	err := l.store.Transaction(ctx, func(tx store.Tx) error {
		r, err := tx.GetReview(ctx, reviewID)
		if errors.Is(err, store.ErrRecordNotFound) || (err == nil && r.IsHidden) {
			return fmt.Errorf("%w: review not found", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get review: %w", err)
		}
		if err := requireActive(ctx, tx, byUserID); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
		if err := tx.SaveReview(ctx, r); err != nil {
			return fmt.Errorf("save review: %w", err)
		}
		review = r
		return nil
	})
	return review, err
}

func (l *ReviewLedger) list(ctx context.Context, f store.ReviewFilter) ([]models.Review, error) {
	var reviews []models.Review
	err := l.store.View(ctx, func(tx store.Tx) error {
		var err error
		reviews, err = tx.ListReviews(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}
