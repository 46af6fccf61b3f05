package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/anjiri1684/skillazon/models"
	"github.com/anjiri1684/skillazon/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

const (
	defaultTopRated = 6
	maxTopRated     = 50
)

type SkillInput struct {
	Title        string   `json:"title" validate:"required,min=3,max=100"`
	Description  string   `json:"description" validate:"required,min=20,max=1000"`
	Category     string   `json:"category" validate:"required,oneof=Programming Design Languages Music Art Sports Business Marketing Writing Photography Cooking Fitness Academic Other"`
	Level        string   `json:"level" validate:"required,oneof=Beginner Intermediate Advanced Expert"`
	Duration     int      `json:"duration" validate:"min=30,max=240"`
	Price        float64  `json:"price" validate:"min=0"`
	Tags         []string `json:"tags" validate:"max=10,dive,max=30"`
	Requirements string   `json:"requirements" validate:"max=500"`
	Materials    string   `json:"materials" validate:"max=500"`
}

// SkillUpdate carries the fields an owner may change; nil means unchanged.
type SkillUpdate struct {
	Title        *string   `json:"title" validate:"omitempty,min=3,max=100"`
	Description  *string   `json:"description" validate:"omitempty,min=20,max=1000"`
	Category     *string   `json:"category" validate:"omitempty,oneof=Programming Design Languages Music Art Sports Business Marketing Writing Photography Cooking Fitness Academic Other"`
	Level        *string   `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced Expert"`
	Duration     *int      `json:"duration" validate:"omitempty,min=30,max=240"`
	Price        *float64  `json:"price" validate:"omitempty,min=0"`
	Tags         *[]string `json:"tags" validate:"omitempty,max=10"`
	Requirements *string   `json:"requirements" validate:"omitempty,max=500"`
	Materials    *string   `json:"materials" validate:"omitempty,max=500"`
	IsActive     *bool     `json:"is_active"`
}

type SkillQuery struct {
	TeacherID *uuid.UUID
	Category  string
	Level     string
	MinPrice  *float64
	MaxPrice  *float64
}

type SkillCatalog struct {
	store store.Store
}

func NewSkillCatalog(s store.Store) *SkillCatalog {
	return &SkillCatalog{store: s}
}

func (c *SkillCatalog) GetSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	var skill *models.Skill
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		skill, err = tx.GetSkill(ctx, id)
		return err
	})
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: skill not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	return skill, nil
}

func (c *SkillCatalog) CreateSkill(ctx context.Context, teacherID uuid.UUID, in SkillInput) (*models.Skill, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	var skill *models.Skill
	err := c.store.Transaction(ctx, func(tx store.Tx) error {
		teacher, err := tx.GetUser(ctx, teacherID)
		if errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if !teacher.Capabilities.CanTeach {
			return fmt.Errorf("%w: enable teaching on your profile before listing skills", ErrForbidden)
		}

		skill = &models.Skill{
			ID:           uuid.New(),
			TeacherID:    teacherID,
			Title:        strings.TrimSpace(in.Title),
			Description:  strings.TrimSpace(in.Description),
			Category:     in.Category,
			Level:        in.Level,
			Duration:     in.Duration,
			Price:        in.Price,
			Tags:         normalizeTags(in.Tags),
			Requirements: strings.TrimSpace(in.Requirements),
			Materials:    strings.TrimSpace(in.Materials),
			IsActive:     true,
		}
		if err := tx.CreateSkill(ctx, skill); err != nil {
			return fmt.Errorf("create skill: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Skill %q listed by teacher %s", skill.Title, teacherID)
	return skill, nil
}

func (c *SkillCatalog) UpdateSkill(ctx context.Context, id, byUserID uuid.UUID, in SkillUpdate) (*models.Skill, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	var skill *models.Skill
	err := c.store.Transaction(ctx, func(tx store.Tx) error {
		s, err := c.owned(ctx, tx, id, byUserID, false)
		if err != nil {
			return err
		}
		if in.Title != nil {
			s.Title = strings.TrimSpace(*in.Title)
		}
		if in.Description != nil {
			s.Description = strings.TrimSpace(*in.Description)
		}
		if in.Category != nil {
			s.Category = *in.Category
		}
		if in.Level != nil {
			s.Level = *in.Level
		}
		if in.Duration != nil {
			s.Duration = *in.Duration
		}
		if in.Price != nil {
			s.Price = *in.Price
		}
		if in.Tags != nil {
			s.Tags = normalizeTags(*in.Tags)
		}
		if in.Requirements != nil {
			s.Requirements = strings.TrimSpace(*in.Requirements)
		}
		if in.Materials != nil {
			s.Materials = strings.TrimSpace(*in.Materials)
		}
		if in.IsActive != nil {
			s.IsActive = *in.IsActive
		}
		if err := tx.SaveSkill(ctx, s); err != nil {
			return fmt.Errorf("save skill: %w", err)
		}
		skill = s
		return nil
	})
	return skill, err
}

// DeactivateSkill hides a skill from the catalog. Existing bookings keep
// their price snapshot and are unaffected.
func (c *SkillCatalog) DeactivateSkill(ctx context.Context, id, byUserID uuid.UUID, isAdmin bool) error {
	return c.store.Transaction(ctx, func(tx store.Tx) error {
		s, err := c.owned(ctx, tx, id, byUserID, isAdmin)
		if err != nil {
			return err
		}
		s.IsActive = false
		if err := tx.SaveSkill(ctx, s); err != nil {
			return fmt.Errorf("save skill: %w", err)
		}
		return nil
	})
}

func (c *SkillCatalog) ListSkills(ctx context.Context, q SkillQuery) ([]models.Skill, error) {
	var skills []models.Skill
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		skills, err = tx.ListSkills(ctx, store.SkillFilter{
			TeacherID:  q.TeacherID,
			Category:   q.Category,
			Level:      q.Level,
			MinPrice:   q.MinPrice,
			MaxPrice:   q.MaxPrice,
			ActiveOnly: true,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// ListTopRated returns active skills ordered by average rating, then by
// number of ratings.
func (c *SkillCatalog) ListTopRated(ctx context.Context, limit int) ([]models.Skill, error) {
	if limit <= 0 {
		limit = defaultTopRated
	}
	limit = min(limit, maxTopRated)

	var skills []models.Skill
	err := c.store.View(ctx, func(tx store.Tx) error {
		var err error
		skills, err = tx.ListSkills(ctx, store.SkillFilter{ActiveOnly: true, TopRated: true, Limit: limit})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list top rated skills: %w", err)
	}
	return skills, nil
}

func (c *SkillCatalog) IncrementSessions(ctx context.Context, id uuid.UUID) error {
	return c.write(ctx, id, func(tx store.Tx) error { return tx.IncrementSkillSessions(ctx, id) })
}

// UpdateRating folds one rating into the running average. Calling it twice
// with the same rating counts it twice.
func (c *SkillCatalog) UpdateRating(ctx context.Context, id uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	return c.write(ctx, id, func(tx store.Tx) error { return tx.ApplySkillRating(ctx, id, rating) })
}

func (c *SkillCatalog) write(ctx context.Context, id uuid.UUID, fn func(tx store.Tx) error) error {
	err := c.store.Transaction(ctx, fn)
	if errors.Is(err, store.ErrRecordNotFound) {
		return fmt.Errorf("%w: skill %s not found", ErrNotFound, id)
	}
	return err
}

func (c *SkillCatalog) owned(ctx context.Context, tx store.Tx, id, byUserID uuid.UUID, isAdmin bool) (*models.Skill, error) {
	s, err := tx.GetSkill(ctx, id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: skill not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	if s.TeacherID != byUserID && !isAdmin {
		return nil, fmt.Errorf("%w: you do not own this skill", ErrForbidden)
	}
	return s, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
