package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSkillRater struct{ mock.Mock }

func (m *mockSkillRater) UpdateRating(ctx context.Context, skillID uuid.UUID, rating int) error {
	return m.Called(ctx, skillID, rating).Error(0)
}

type mockUserRater struct{ mock.Mock }

func (m *mockUserRater) RecordRating(ctx context.Context, userID uuid.UUID, role models.Role, rating int) error {
	return m.Called(ctx, userID, role, rating).Error(0)
}

func (f *fixture) completed(t *testing.T) *models.Booking {
	t.Helper()
	b := f.confirmed(t, baseNow.Add(2*time.Hour))
	b, err := f.engine.Complete(context.Background(), b.ID, f.teacher.ID)
	require.NoError(t, err)
	return b
}

func TestSubmitReview_DuplicateUpdatesRatingOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	catalog := NewSkillCatalog(f.store)
	ledger := NewReviewLedger(f.store, catalog, NewIdentityDirectory(f.store, "secret"))
	b := f.completed(t)

	in := SubmitReviewInput{BookingID: b.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 4, Review: "Clear explanations throughout"}
	review, err := ledger.SubmitReview(ctx, f.student.ID, in)
	require.NoError(t, err)
	assert.True(t, review.IsPublic)
	assert.Equal(t, f.skill.ID, review.SkillID)

	in.Rating = 1
	_, err = ledger.SubmitReview(ctx, f.student.ID, in)
	assert.ErrorIs(t, err, ErrConflict)

	skill := f.reloadSkill(t)
	assert.Equal(t, 1, skill.Rating.Count)
	assert.InDelta(t, 4.0, skill.Rating.Average, 1e-9)

	teacher := f.user(t, f.teacher.ID)
	assert.Equal(t, 1, teacher.Stats.TotalReviewsAsTeacher)
	assert.InDelta(t, 4.0, teacher.Stats.AverageRatingAsTeacher, 1e-9)
}

func TestSubmitReview_BothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	skills, users := new(mockSkillRater), new(mockUserRater)
	ledger := NewReviewLedger(f.store, skills, users)
	b := f.completed(t)

	users.On("RecordRating", mock.Anything, f.student.ID, models.RoleStudent, 5).Return(nil).Once()
	_, err := ledger.SubmitReview(ctx, f.teacher.ID, SubmitReviewInput{
		BookingID: b.ID, ReviewType: models.ReviewTeacherToStudent, Rating: 5, Review: "Very well prepared student",
	})
	require.NoError(t, err)

	skills.AssertNotCalled(t, "UpdateRating", mock.Anything, mock.Anything, mock.Anything)
	users.AssertExpectations(t)
}

func TestSubmitReview_RatingFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	skills, users := new(mockSkillRater), new(mockUserRater)
	ledger := NewReviewLedger(f.store, skills, users)
	b := f.completed(t)

	skills.On("UpdateRating", mock.Anything, f.skill.ID, 3).Return(errors.New("db down")).Once()
	users.On("RecordRating", mock.Anything, f.teacher.ID, models.RoleTeacher, 3).Return(errors.New("db down")).Once()

	review, err := ledger.SubmitReview(ctx, f.student.ID, SubmitReviewInput{
		BookingID: b.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 3, Review: "Okay, a bit rushed",
	})
	require.NoError(t, err)
	require.NotNil(t, review)

	listed, err := ledger.ListSkillReviews(ctx, f.skill.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, review.ID, listed[0].ID)

	skills.AssertExpectations(t)
	users.AssertExpectations(t)
}

func TestSubmitReview_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := NewReviewLedger(f.store, new(mockSkillRater), new(mockUserRater))
	pending := f.book(t, baseNow.Add(48*time.Hour))
	done := f.completed(t)
	text := "A perfectly fine review"

	tests := []struct {
		name   string
		caller uuid.UUID
		in     SubmitReviewInput
		want   error
	}{
		{"rating too low", f.student.ID, SubmitReviewInput{BookingID: done.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 0, Review: text}, ErrInvalidInput},
		{"rating too high", f.student.ID, SubmitReviewInput{BookingID: done.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 6, Review: text}, ErrInvalidInput},
		{"text too short", f.student.ID, SubmitReviewInput{BookingID: done.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 4, Review: "short"}, ErrInvalidInput},
		{"unknown type", f.student.ID, SubmitReviewInput{BookingID: done.ID, ReviewType: "sideways", Rating: 4, Review: text}, ErrInvalidInput},
		{"unknown booking", f.student.ID, SubmitReviewInput{BookingID: uuid.New(), ReviewType: models.ReviewStudentToTeacher, Rating: 4, Review: text}, ErrNotFound},
		{"not completed", f.student.ID, SubmitReviewInput{BookingID: pending.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 4, Review: text}, ErrInvalidOperation},
		{"wrong side", f.teacher.ID, SubmitReviewInput{BookingID: done.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 4, Review: text}, ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.SubmitReview(ctx, tt.caller, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHideReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	skills, users := new(mockSkillRater), new(mockUserRater)
	skills.On("UpdateRating", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("RecordRating", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	ledger := NewReviewLedger(f.store, skills, users)
	b := f.completed(t)

	review, err := ledger.SubmitReview(ctx, f.student.ID, SubmitReviewInput{
		BookingID: b.ID, ReviewType: models.ReviewStudentToTeacher, Rating: 5, Review: "Would book again",
	})
	require.NoError(t, err)

	listed, err := ledger.ListTeacherReviews(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	hidden, err := ledger.HideReview(ctx, review.ID)
	require.NoError(t, err)
	assert.True(t, hidden.IsHidden)

	listed, err = ledger.ListTeacherReviews(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = ledger.HideReview(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func (f *fixture) reviewed(t *testing.T, ledger *ReviewLedger, rating int) *models.Review {
	t.Helper()
	b := f.completed(t)
	r, err := ledger.SubmitReview(context.Background(), f.student.ID, SubmitReviewInput{
		BookingID: b.ID, ReviewType: models.ReviewStudentToTeacher, Rating: rating, Review: "Patient and well organised",
	})
	require.NoError(t, err)
	return r
}

func quietLedger(f *fixture) *ReviewLedger {
	skills, users := new(mockSkillRater), new(mockUserRater)
	skills.On("UpdateRating", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	users.On("RecordRating", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return NewReviewLedger(f.store, skills, users)
}

func TestAddResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := quietLedger(f)
	review := f.reviewed(t, ledger, 5)

	_, err := ledger.AddResponse(ctx, review.ID, f.student.ID, "Replying to myself")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = ledger.AddResponse(ctx, review.ID, f.teacher.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ledger.AddResponse(ctx, review.ID, f.teacher.ID, strings.Repeat("x", 501))
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := ledger.AddResponse(ctx, review.ID, f.teacher.ID, "Thank you, see you next week")
	require.NoError(t, err)
	require.NotNil(t, got.Response.Text)
	assert.Equal(t, "Thank you, see you next week", *got.Response.Text)
	assert.Equal(t, f.teacher.ID, *got.Response.RespondedBy)
	assert.NotNil(t, got.Response.RespondedAt)

	_, err = ledger.AddResponse(ctx, review.ID, f.teacher.ID, "Second thoughts")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = ledger.AddResponse(ctx, uuid.New(), f.teacher.ID, "Nothing here")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddHelpfulVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := quietLedger(f)
	review := f.reviewed(t, ledger, 4)
	reader := f.addUser(t, "reader", false)

	_, err := ledger.AddHelpfulVote(ctx, review.ID, f.student.ID)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	got, err := ledger.AddHelpfulVote(ctx, review.ID, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.HelpfulVotes)

	_, err = ledger.AddHelpfulVote(ctx, review.ID, reader.ID)
	assert.ErrorIs(t, err, ErrConflict)

	got, err = ledger.AddHelpfulVote(ctx, review.ID, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.HelpfulVotes)
}

func TestReportReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := quietLedger(f)
	review := f.reviewed(t, ledger, 1)
	reader := f.addUser(t, "reader", false)

	_, err := ledger.ReportReview(ctx, review.ID, reader.ID, "boring")
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := ledger.ReportReview(ctx, review.ID, reader.ID, "fake")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReportCount)

	_, err = ledger.ReportReview(ctx, review.ID, reader.ID, "spam")
	assert.ErrorIs(t, err, ErrConflict)

	queue, err := ledger.ListReported(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	require.Len(t, queue[0].Reports, 1)
	assert.Equal(t, "fake", queue[0].Reports[0].Reason)

	_, err = ledger.HideReview(ctx, review.ID)
	require.NoError(t, err)
	_, err = ledger.ReportReview(ctx, review.ID, f.teacher.ID, "spam")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewActions_RejectDeactivatedAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := quietLedger(f)
	review := f.reviewed(t, ledger, 5)
	second := f.completed(t)
	f.deactivate(t, f.teacher.ID)

	_, err := ledger.AddResponse(ctx, review.ID, f.teacher.ID, "Thanks a lot")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = ledger.SubmitReview(ctx, f.teacher.ID, SubmitReviewInput{
		BookingID: second.ID, ReviewType: models.ReviewTeacherToStudent, Rating: 5, Review: "Came well prepared",
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetTeacherStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger := quietLedger(f)
	for _, rating := range []int{5, 5, 4} {
		f.reviewed(t, ledger, rating)
	}
	hidden := f.reviewed(t, ledger, 1)
	_, err := ledger.HideReview(ctx, hidden.ID)
	require.NoError(t, err)

	stats, err := ledger.GetTeacherStats(ctx, f.teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalReviews)
	assert.Equal(t, int64(2), stats.FiveStars)
	assert.Equal(t, int64(1), stats.FourStars)
	assert.Zero(t, stats.OneStar)
	assert.Equal(t, 4.7, stats.AverageRating)

	empty, err := ledger.GetTeacherStats(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalReviews)
}
