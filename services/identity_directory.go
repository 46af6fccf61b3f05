package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL         = 72 * time.Hour
	refreshTokenTTL  = 7 * 24 * time.Hour
	refreshTokenType = "refresh"

	defaultMaxLoginAttempts = 5
	defaultLockout          = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account locked")
)

// Session is what a successful login hands back to the client.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

type RegisterInput struct {
	Username  string `json:"username" validate:"required,min=3,max=20,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
}

type ProfileUpdate struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=50"`
	LastName  *string `json:"last_name" validate:"omitempty,max=50"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Location  *string `json:"location" validate:"omitempty,max=100"`
	TimeZone  *string `json:"time_zone" validate:"omitempty,max=100"`
	Avatar    *string `json:"avatar" validate:"omitempty,url"`
}

// IdentityDirectory owns accounts, capabilities, sessions and the stat
// counters on accounts.
type IdentityDirectory struct {
	store         store.Store
	jwtSecret     []byte
	refreshSecret []byte
	maxAttempts   int
	lockout       time.Duration
	now           func() time.Time
}

type DirectoryOption func(*IdentityDirectory)

// WithRefreshSecret signs refresh tokens with their own key. Without it they
// share the access key and are told apart by their typ claim.
func WithRefreshSecret(secret string) DirectoryOption {
	return func(d *IdentityDirectory) {
		if secret != "" {
			d.refreshSecret = []byte(secret)
		}
	}
}

// WithLockout locks an account for lockout after maxAttempts consecutive
// failed logins. A non-positive maxAttempts disables locking.
func WithLockout(maxAttempts int, lockout time.Duration) DirectoryOption {
	return func(d *IdentityDirectory) {
		d.maxAttempts = maxAttempts
		d.lockout = lockout
	}
}

func WithDirectoryClock(now func() time.Time) DirectoryOption {
	return func(d *IdentityDirectory) { d.now = now }
}

func NewIdentityDirectory(s store.Store, jwtSecret string, opts ...DirectoryOption) *IdentityDirectory {
	d := &IdentityDirectory{
		store:         s,
		jwtSecret:     []byte(jwtSecret),
		refreshSecret: []byte(jwtSecret),
		maxAttempts:   defaultMaxLoginAttempts,
		lockout:       defaultLockout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *IdentityDirectory) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Password:     string(hashedPassword),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Capabilities: models.Capabilities{CanLearn: true},
		IsActive:     true,
		Profile:      models.Profile{TimeZone: "UTC"},
	}
	err = d.store.Transaction(ctx, func(tx store.Tx) error {
		return tx.CreateUser(ctx, user)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, fmt.Errorf("%w: email or username already exists", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	log.Printf("✅ User %s registered", user.Username)
	return user, nil
}

// Authenticate checks credentials and opens a session. Each wrong password
// counts towards the lockout; a successful login clears the count.
func (d *IdentityDirectory) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	var (
		user   *models.User
		failed bool
	)
	err := d.store.Transaction(ctx, func(tx store.Tx) error {
		u, err := tx.GetUserByEmail(ctx, strings.TrimSpace(email))
		if err != nil {
			return err
		}
		now := d.now()
		if u.IsLocked(now) {
			return fmt.Errorf("%w: too many failed login attempts, try again after %s", ErrAccountLocked, u.LockoutExpires.Format(time.RFC3339))
		}
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
			failed = true
			u.LoginAttempts++
			if d.maxAttempts > 0 && u.LoginAttempts >= d.maxAttempts {
				until := now.Add(d.lockout)
				u.LockoutExpires = &until
				u.LoginAttempts = 0
				log.Printf("⚠️ Account %s locked until %s after repeated failed logins", u.ID, until.Format(time.RFC3339))
			}
			return tx.SaveUser(ctx, u)
		}
		if !u.IsActive {
			return fmt.Errorf("%w: account is deactivated", ErrForbidden)
		}
		u.LoginAttempts = 0
		u.LockoutExpires = nil
		u.LastLogin = &now
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if errors.Is(err, store.ErrRecordNotFound) || (err == nil && failed) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	access, err := d.IssueToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := d.IssueRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (d *IdentityDirectory) IssueToken(u *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":   u.ID.String(),
		"can_teach": u.Capabilities.CanTeach,
		"is_admin":  u.IsAdmin,
		"exp":       time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t, err := token.SignedString(d.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return t, nil
}

// ParseToken validates a token issued by IssueToken and returns the user id.
func (d *IdentityDirectory) ParseToken(tokenString string) (uuid.UUID, error) {
	claims, err := parseClaims(tokenString, d.jwtSecret)
	if err != nil {
		return uuid.Nil, err
	}
	if claims["typ"] == refreshTokenType {
		return uuid.Nil, errors.New("refresh tokens cannot authenticate requests")
	}
	raw, _ := claims["user_id"].(string)
	return uuid.Parse(raw)
}

// IssueRefreshToken records a new refresh token for u and returns it signed.
func (d *IdentityDirectory) IssueRefreshToken(ctx context.Context, u *models.User) (string, error) {
	rt := &models.RefreshToken{ID: uuid.New(), UserID: u.ID, ExpiresAt: d.now().Add(refreshTokenTTL)}
	err := d.store.Transaction(ctx, func(tx store.Tx) error {
		return tx.CreateRefreshToken(ctx, rt)
	})
	if err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}

	claims := jwt.MapClaims{
		"user_id": u.ID.String(),
		"jti":     rt.ID.String(),
		"typ":     refreshTokenType,
		"exp":     time.Now().Add(refreshTokenTTL).Unix(),
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return t, nil
}

// Refresh exchanges a live refresh token for a new access token carrying the
// user's current capabilities.
func (d *IdentityDirectory) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, tokenID, err := d.parseRefreshToken(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: invalid refresh token", ErrForbidden)
	}

	var user *models.User
	err = d.store.View(ctx, func(tx store.Tx) error {
		rt, err := tx.GetRefreshToken(ctx, tokenID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: invalid refresh token", ErrForbidden)
		}
		if err != nil {
			return fmt.Errorf("get refresh token: %w", err)
		}
		if rt.UserID != userID || !rt.Usable(d.now()) {
			return fmt.Errorf("%w: refresh token expired or revoked", ErrForbidden)
		}
		u, err := tx.GetUser(ctx, userID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: invalid refresh token", ErrForbidden)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !u.IsActive {
			return fmt.Errorf("%w: account is deactivated", ErrForbidden)
		}
		user = u
		return nil
	})
	if err != nil {
		return "", err
	}
	return d.IssueToken(user)
}

// Logout revokes a refresh token. Unknown or malformed tokens are ignored.
func (d *IdentityDirectory) Logout(ctx context.Context, refreshToken string) error {
	_, tokenID, err := d.parseRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	err = d.store.Transaction(ctx, func(tx store.Tx) error {
		rt, err := tx.GetRefreshToken(ctx, tokenID)
		if err != nil {
			return err
		}
		if rt.RevokedAt != nil {
			return nil
		}
		now := d.now()
		rt.RevokedAt = &now
		return tx.SaveRefreshToken(ctx, rt)
	})
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		log.Printf("⚠️ Failed to revoke refresh token %s: %v", tokenID, err)
	}
	return nil
}

func (d *IdentityDirectory) parseRefreshToken(tokenString string) (uuid.UUID, uuid.UUID, error) {
	claims, err := parseClaims(tokenString, d.refreshSecret)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if claims["typ"] != refreshTokenType {
		return uuid.Nil, uuid.Nil, errors.New("not a refresh token")
	}
	rawUser, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	rawID, _ := claims["jti"].(string)
	tokenID, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, tokenID, nil
}

func parseClaims(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (d *IdentityDirectory) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user *models.User
	err := d.store.View(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUser(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (d *IdentityDirectory) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileUpdate) (*models.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return d.mutate(ctx, id, func(u *models.User) {
		if in.FirstName != nil {
			u.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			u.LastName = *in.LastName
		}
		if in.Bio != nil {
			u.Profile.Bio = in.Bio
		}
		if in.Location != nil {
			u.Profile.Location = in.Location
		}
		if in.TimeZone != nil && *in.TimeZone != "" {
			u.Profile.TimeZone = *in.TimeZone
		}
		if in.Avatar != nil {
			u.Profile.Avatar = in.Avatar
		}
	})
}

// BecomeTeacher grants the teaching capability. Tokens issued before the
// change still carry the old can_teach claim until the user logs in again.
func (d *IdentityDirectory) BecomeTeacher(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return d.mutate(ctx, id, func(u *models.User) { u.Capabilities.CanTeach = true })
}

func (d *IdentityDirectory) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return d.mutate(ctx, id, func(u *models.User) { u.IsActive = active })
}

func (d *IdentityDirectory) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.store.View(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (d *IdentityDirectory) IncrementStats(ctx context.Context, id uuid.UUID, delta models.StatsDelta) error {
	err := d.store.Transaction(ctx, func(tx store.Tx) error {
		return tx.IncrementUserStats(ctx, id, delta)
	})
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return err
}

func (d *IdentityDirectory) RecordRating(ctx context.Context, id uuid.UUID, role models.Role, rating int) error {
	if role != models.RoleTeacher && role != models.RoleStudent {
		return fmt.Errorf("%w: role must be teacher or student", ErrInvalidInput)
	}
	err := d.store.Transaction(ctx, func(tx store.Tx) error {
		return tx.ApplyUserRating(ctx, id, role, rating)
	})
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return err
}

func (d *IdentityDirectory) mutate(ctx context.Context, id uuid.UUID, fn func(u *models.User)) (*models.User, error) {
	var user *models.User
	err := d.store.Transaction(ctx, func(tx store.Tx) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		fn(u)
		if err := tx.SaveUser(ctx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
