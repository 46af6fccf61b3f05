package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var SkillCategories = []string{
	"Programming", "Design", "Languages", "Music", "Art", "Sports",
	"Business", "Marketing", "Writing", "Photography", "Cooking",
	"Fitness", "Academic", "Other",
}

var SkillLevels = []string{"Beginner", "Intermediate", "Advanced", "Expert"}

type SkillRating struct {
	Average float64 `gorm:"default:0" json:"average"`
	Count   int     `gorm:"default:0" json:"count"`
}

type Skill struct {
	ID           uuid.UUID                   `gorm:"type:uuid;primary_key" json:"id"`
	TeacherID    uuid.UUID                   `gorm:"type:uuid;not null;index" json:"teacher_id"`
	Title        string                      `gorm:"size:100;not null" json:"title"`
	Description  string                      `gorm:"type:text;not null" json:"description"`
	Category     string                      `gorm:"size:30;not null;index" json:"category"`
	Level        string                      `gorm:"size:20;not null" json:"level"`
	Duration     int                         `gorm:"not null" json:"duration"`
	Price        float64                     `gorm:"type:numeric(10,2);not null;default:0.00" json:"price"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	Requirements string                      `gorm:"size:500" json:"requirements,omitempty"`
	Materials    string                      `gorm:"size:500" json:"materials,omitempty"`
	IsActive     bool                        `gorm:"default:true" json:"is_active"`

	Rating        SkillRating `gorm:"embedded;embeddedPrefix:rating_" json:"rating"`
	TotalSessions int         `gorm:"default:0" json:"total_sessions"`

	Teacher *User `gorm:"foreignkey:TeacherID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Skill) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type SkillSummary struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Duration int       `json:"duration"`
	Price    float64   `json:"price"`
}

func (s *Skill) Summary() *SkillSummary {
	if s == nil {
		return nil
	}
	return &SkillSummary{ID: s.ID, Title: s.Title, Category: s.Category, Duration: s.Duration, Price: s.Price}
}
