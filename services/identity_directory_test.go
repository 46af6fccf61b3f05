package services

import (
	"context"
	"testing"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret")

	user, err := dir.Register(ctx, RegisterInput{Username: "amina", Email: "Amina@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.True(t, user.Capabilities.CanLearn)
	assert.False(t, user.Capabilities.CanTeach)
	assert.Equal(t, "amina@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.Password)

	_, err = dir.Register(ctx, RegisterInput{Username: "amina2", Email: "amina@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = dir.Register(ctx, RegisterInput{Username: "x", Email: "not-an-email", Password: "1"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = dir.Authenticate(ctx, "amina@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = dir.Authenticate(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := dir.Authenticate(ctx, "AMINA@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, session.User.LastLogin)
	assert.NotEmpty(t, session.RefreshToken)
	token := session.AccessToken

	id, err := dir.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, false, claims["can_teach"])
	assert.Equal(t, false, claims["is_admin"])

	_, err = NewIdentityDirectory(store.NewMemoryStore(), "other-secret").ParseToken(token)
	assert.Error(t, err)
}

func TestDeactivatedUserCannotLogIn(t *testing.T) {
	ctx := context.Background()
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret")
	user, err := dir.Register(ctx, RegisterInput{Username: "juma", Email: "juma@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = dir.SetActive(ctx, user.ID, false)
	require.NoError(t, err)

	_, err = dir.Authenticate(ctx, "juma@example.com", "secret1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProfileAndCapabilities(t *testing.T) {
	ctx := context.Background()
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret")
	user, err := dir.Register(ctx, RegisterInput{Username: "wanjiru", Email: "wanjiru@example.com", Password: "secret1"})
	require.NoError(t, err)

	bio, zone := "Pianist and teacher", "Africa/Nairobi"
	updated, err := dir.UpdateProfile(ctx, user.ID, ProfileUpdate{Bio: &bio, TimeZone: &zone})
	require.NoError(t, err)
	assert.Equal(t, bio, *updated.Profile.Bio)
	assert.Equal(t, zone, updated.Profile.TimeZone)

	bad := "not a url"
	_, err = dir.UpdateProfile(ctx, user.ID, ProfileUpdate{Avatar: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	teacher, err := dir.BecomeTeacher(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, teacher.Capabilities.CanTeach)
	assert.True(t, teacher.Capabilities.CanLearn)

	token, err := dir.IssueToken(teacher)
	require.NoError(t, err)
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, true, parsed.Claims.(jwt.MapClaims)["can_teach"])
}

func TestStatsAndRatings(t *testing.T) {
	ctx := context.Background()
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret")
	user, err := dir.Register(ctx, RegisterInput{Username: "otieno", Email: "otieno@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, dir.IncrementStats(ctx, user.ID, models.StatsDelta{SessionsAsTeacher: 1, Earnings: 12.5}))
	require.NoError(t, dir.RecordRating(ctx, user.ID, models.RoleTeacher, 5))
	require.NoError(t, dir.RecordRating(ctx, user.ID, models.RoleTeacher, 2))
	require.NoError(t, dir.RecordRating(ctx, user.ID, models.RoleStudent, 4))

	got, err := dir.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stats.TotalSessionsAsTeacher)
	assert.Equal(t, 12.5, got.Stats.TotalEarnings)
	assert.Equal(t, 2, got.Stats.TotalReviewsAsTeacher)
	assert.InDelta(t, 3.5, got.Stats.AverageRatingAsTeacher, 1e-9)
	assert.Equal(t, 1, got.Stats.TotalReviewsAsStudent)
	assert.InDelta(t, 4.0, got.Stats.AverageRatingAsStudent, 1e-9)

	assert.ErrorIs(t, dir.RecordRating(ctx, user.ID, "admin", 3), ErrInvalidInput)

	users, err := dir.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestAuthenticate_LocksAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	now := baseNow
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret",
		WithLockout(3, time.Hour),
		WithDirectoryClock(func() time.Time { return now }),
	)
	_, err := dir.Register(ctx, RegisterInput{Username: "kamau", Email: "kamau@example.com", Password: "secret1"})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = dir.Authenticate(ctx, "kamau@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	// A success in between resets the count.
	_, err = dir.Authenticate(ctx, "kamau@example.com", "secret1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = dir.Authenticate(ctx, "kamau@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err = dir.Authenticate(ctx, "kamau@example.com", "secret1")
	assert.ErrorIs(t, err, ErrAccountLocked)

	now = now.Add(time.Hour + time.Second)
	session, err := dir.Authenticate(ctx, "kamau@example.com", "secret1")
	require.NoError(t, err)
	assert.Zero(t, session.User.LoginAttempts)
	assert.Nil(t, session.User.LockoutExpires)
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret", WithRefreshSecret("refresh-secret"))
	user, err := dir.Register(ctx, RegisterInput{Username: "achieng", Email: "achieng@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := dir.Authenticate(ctx, "achieng@example.com", "secret1")
	require.NoError(t, err)

	_, err = dir.ParseToken(session.RefreshToken)
	assert.Error(t, err, "refresh tokens are not access tokens")

	_, err = dir.BecomeTeacher(ctx, user.ID)
	require.NoError(t, err)
	access, err := dir.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	id, err := dir.ParseToken(access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	parsed, err := jwt.Parse(access, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, true, parsed.Claims.(jwt.MapClaims)["can_teach"])

	_, err = dir.Refresh(ctx, session.AccessToken)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = dir.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, dir.Logout(ctx, session.RefreshToken))
	require.NoError(t, dir.Logout(ctx, session.RefreshToken))
	require.NoError(t, dir.Logout(ctx, "garbage"))
	_, err = dir.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRefresh_RejectsDeactivatedUser(t *testing.T) {
	ctx := context.Background()
	dir := NewIdentityDirectory(store.NewMemoryStore(), "test-secret")
	user, err := dir.Register(ctx, RegisterInput{Username: "mwangi", Email: "mwangi@example.com", Password: "secret1"})
	require.NoError(t, err)
	session, err := dir.Authenticate(ctx, "mwangi@example.com", "secret1")
	require.NoError(t, err)

	_, err = dir.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	_, err = dir.Refresh(ctx, session.RefreshToken)
	assert.ErrorIs(t, err, ErrForbidden)
}
