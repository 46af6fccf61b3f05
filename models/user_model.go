package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Capabilities struct {
	CanTeach bool `gorm:"default:false" json:"can_teach"`
	CanLearn bool `gorm:"default:true" json:"can_learn"`
}

// UserStats is written only by booking completion and review submission.
type UserStats struct {
	TotalSessionsAsTeacher int     `gorm:"default:0" json:"total_sessions_as_teacher"`
	TotalSessionsAsStudent int     `gorm:"default:0" json:"total_sessions_as_student"`
	TotalEarnings          float64 `gorm:"type:numeric(12,2);default:0.00" json:"total_earnings"`
	AverageRatingAsTeacher float64 `gorm:"default:0" json:"average_rating_as_teacher"`
	TotalReviewsAsTeacher  int     `gorm:"default:0" json:"total_reviews_as_teacher"`
	AverageRatingAsStudent float64 `gorm:"default:0" json:"average_rating_as_student"`
	TotalReviewsAsStudent  int     `gorm:"default:0" json:"total_reviews_as_student"`
}

// StatsDelta is an additive change to a user's counters.
type StatsDelta struct {
	SessionsAsTeacher int
	SessionsAsStudent int
	Earnings          float64
}

type Profile struct {
	Bio      *string `gorm:"type:text" json:"bio"`
	Location *string `gorm:"size:100" json:"location"`
	TimeZone string  `gorm:"size:100;default:'UTC'" json:"time_zone"`
	Avatar   *string `gorm:"size:255" json:"avatar"`
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Username  string    `gorm:"size:20;not null;unique" json:"username"`
	Email     string    `gorm:"size:255;not null;unique" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FirstName string    `gorm:"size:50" json:"first_name"`
	LastName  string    `gorm:"size:50" json:"last_name"`

	Capabilities Capabilities `gorm:"embedded" json:"capabilities"`
	IsAdmin      bool         `gorm:"default:false" json:"is_admin"`
	IsActive     bool         `gorm:"default:true" json:"is_active"`

	Profile Profile   `gorm:"embedded;embeddedPrefix:profile_" json:"profile"`
	Stats   UserStats `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`

	LastLogin      *time.Time `json:"-"`
	LoginAttempts  int        `gorm:"default:0" json:"-"`
	LockoutExpires *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsLocked reports whether failed logins have locked the account at now.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockoutExpires != nil && u.LockoutExpires.After(now)
}

// UserSummary is the public slice of a user attached to bookings and reviews.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Username
}

// RunningAverage folds one more value into an average over count values.
func RunningAverage(avg float64, count int, value float64) (float64, int) {
	total := avg * float64(count)
	count++
	return (total + value) / float64(count), count
}
