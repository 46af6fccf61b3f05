package models

import (
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReviewType string

const (
	ReviewStudentToTeacher ReviewType = "student-to-teacher"
	ReviewTeacherToStudent ReviewType = "teacher-to-student"
)

var ReportReasons = []string{"inappropriate", "spam", "fake", "offensive", "other"}

// ReviewResponse is the reviewed party's public reply.
type ReviewResponse struct {
	Text        *string    `gorm:"size:500" json:"text,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	RespondedBy *uuid.UUID `gorm:"type:uuid" json:"responded_by,omitempty"`
}

type ReviewReport struct {
	UserID     uuid.UUID `json:"user_id"`
	Reason     string    `json:"reason"`
	ReportedAt time.Time `json:"reported_at"`
}

type Review struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	BookingID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_booking_type" json:"booking_id"`
	ReviewType ReviewType `gorm:"size:20;not null;uniqueIndex:idx_reviews_booking_type" json:"review_type"`
	SkillID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"skill_id"`
	TeacherID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"teacher_id"`
	StudentID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"student_id"`
	Rating     int        `gorm:"not null" json:"rating"`
	Review     string     `gorm:"type:text;not null" json:"review"`
	IsPublic   bool       `gorm:"default:true" json:"is_public"`
	IsHidden   bool       `gorm:"default:false" json:"is_hidden"`

	Response      ReviewResponse                    `gorm:"embedded;embeddedPrefix:response_" json:"response"`
	HelpfulVotes  int                               `gorm:"default:0" json:"helpful_votes"`
	HelpfulVoters datatypes.JSONSlice[uuid.UUID]    `json:"-"`
	Reports       datatypes.JSONSlice[ReviewReport] `json:"-"`
	ReportCount   int                               `gorm:"default:0;index" json:"report_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Reviewer returns the user who writes a review of the given type.
func (t ReviewType) Reviewer(b *Booking) uuid.UUID {
	if t == ReviewTeacherToStudent {
		return b.TeacherID
	}
	return b.StudentID
}

// Reviewer returns the author of the review.
func (r *Review) Reviewer() uuid.UUID {
	if r.ReviewType == ReviewTeacherToStudent {
		return r.TeacherID
	}
	return r.StudentID
}

// Reviewee returns the user the review is about.
func (r *Review) Reviewee() uuid.UUID {
	if r.ReviewType == ReviewTeacherToStudent {
		return r.StudentID
	}
	return r.TeacherID
}

// RatingBucket counts visible reviews with one star value.
type RatingBucket struct {
	Rating int   `json:"rating"`
	Count  int64 `json:"count"`
}

// RatingSummary is a teacher's public rating breakdown.
type RatingSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalReviews  int64   `json:"total_reviews"`
	FiveStars     int64   `json:"five_stars"`
	FourStars     int64   `json:"four_stars"`
	ThreeStars    int64   `json:"three_stars"`
	TwoStars      int64   `json:"two_stars"`
	OneStar       int64   `json:"one_star"`
}

// SummarizeRatings folds star buckets into a summary with the average
// rounded to one decimal.
func SummarizeRatings(buckets []RatingBucket) RatingSummary {
	var (
		out   RatingSummary
		total int64
	)
	for _, b := range buckets {
		switch b.Rating {
		case 5:
			out.FiveStars += b.Count
		case 4:
			out.FourStars += b.Count
		case 3:
			out.ThreeStars += b.Count
		case 2:
			out.TwoStars += b.Count
		case 1:
			out.OneStar += b.Count
		default:
			continue
		}
		out.TotalReviews += b.Count
		total += int64(b.Rating) * b.Count
	}
	if out.TotalReviews > 0 {
		out.AverageRating = math.Round(float64(total)/float64(out.TotalReviews)*10) / 10
	}
	return out
}
