package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists through gorm, postgres in production and sqlite in
// tests. Schedule and booking locks are row locks (SELECT ... FOR UPDATE)
// held for the transaction; dialects without row locks skip the clause.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates every table the gorm store reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Skill{},
		&models.Booking{},
		&models.Review{},
		&models.Message{},
		&models.RefreshToken{},
	)
}

func (s *GormStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return fn(&gormTx{db: s.db.WithContext(ctx)})
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
}

type gormTx struct {
	db *gorm.DB
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *gormTx) CreateUser(ctx context.Context, u *models.User) error {
	return translate(t.db.Create(u).Error)
}

func (t *gormTx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := t.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *gormTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := t.db.Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (t *gormTx) SaveUser(ctx context.Context, u *models.User) error {
	return translate(t.db.Save(u).Error)
}

func (t *gormTx) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := t.db.Order("created_at desc").Find(&users).Error
	return users, translate(err)
}

func (t *gormTx) IncrementUserStats(ctx context.Context, id uuid.UUID, delta models.StatsDelta) error {
	return affected(t.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stats_total_sessions_as_teacher": gorm.Expr("stats_total_sessions_as_teacher + ?", delta.SessionsAsTeacher),
		"stats_total_sessions_as_student": gorm.Expr("stats_total_sessions_as_student + ?", delta.SessionsAsStudent),
		"stats_total_earnings":            gorm.Expr("stats_total_earnings + ?", delta.Earnings),
	}))
}

func (t *gormTx) ApplyUserRating(ctx context.Context, id uuid.UUID, role models.Role, rating int) error {
	avg, count := "stats_average_rating_as_student", "stats_total_reviews_as_student"
	if role == models.RoleTeacher {
		avg, count = "stats_average_rating_as_teacher", "stats_total_reviews_as_teacher"
	}
	return affected(t.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		avg:   gorm.Expr(fmt.Sprintf("(%s * %s + ?) / (%s + 1)", avg, count, count), rating),
		count: gorm.Expr(count + " + 1"),
	}))
}

func (t *gormTx) CreateSkill(ctx context.Context, s *models.Skill) error {
	return translate(t.db.Omit(clause.Associations).Create(s).Error)
}

func (t *gormTx) GetSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	var s models.Skill
	if err := t.db.First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (t *gormTx) SaveSkill(ctx context.Context, s *models.Skill) error {
	return translate(t.db.Omit(clause.Associations).Save(s).Error)
}

func (t *gormTx) ListSkills(ctx context.Context, f SkillFilter) ([]models.Skill, error) {
	query := t.db.Model(&models.Skill{})
	if f.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if f.TeacherID != nil {
		query = query.Where("teacher_id = ?", *f.TeacherID)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}
	if f.TopRated {
		query = query.Order("rating_average desc, rating_count desc")
	} else {
		query = query.Order("created_at desc")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var skills []models.Skill
	err := query.Find(&skills).Error
	return skills, translate(err)
}

func (t *gormTx) IncrementSkillSessions(ctx context.Context, id uuid.UUID) error {
	return affected(t.db.Model(&models.Skill{}).Where("id = ?", id).
		Update("total_sessions", gorm.Expr("total_sessions + 1")))
}

func (t *gormTx) ApplySkillRating(ctx context.Context, id uuid.UUID, rating int) error {
	return affected(t.db.Model(&models.Skill{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating_average": gorm.Expr("(rating_average * rating_count + ?) / (rating_count + 1)", rating),
		"rating_count":   gorm.Expr("rating_count + 1"),
	}))
}

func (t *gormTx) LockTeacherSchedule(ctx context.Context, teacherID uuid.UUID) error {
	var teacher models.User
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&teacher, "id = ?", teacherID).Error
	return translate(err)
}

func (t *gormTx) HasConflict(ctx context.Context, teacherID uuid.UUID, date time.Time, durationMinutes int) (bool, error) {
	from, to := models.ConflictWindow(date, durationMinutes)

	var count int64
	err := t.db.Model(&models.Booking{}).
		Where("teacher_id = ? AND status IN ? AND scheduled_date BETWEEN ? AND ?", teacherID, models.ActiveStatuses, from, to).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (t *gormTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	return translate(t.db.Create(b).Error)
}

func (t *gormTx) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := t.db.First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (t *gormTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (t *gormTx) SaveBooking(ctx context.Context, b *models.Booking) error {
	return translate(t.db.Save(b).Error)
}

func (t *gormTx) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	query := t.db.Model(&models.Booking{})
	if f.TeacherID != nil {
		query = query.Where("teacher_id = ?", *f.TeacherID)
	}
	if f.StudentID != nil {
		query = query.Where("student_id = ?", *f.StudentID)
	}
	if f.ParticipantID != nil {
		query = query.Where("(teacher_id = ? OR student_id = ?)", *f.ParticipantID, *f.ParticipantID)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.ScheduledAfter != nil {
		query = query.Where("scheduled_date > ?", *f.ScheduledAfter)
	}
	if f.ScheduledBefore != nil {
		query = query.Where("scheduled_date < ?", *f.ScheduledBefore)
	}
	if f.ScheduledUntil != nil {
		query = query.Where("scheduled_date <= ?", *f.ScheduledUntil)
	}
	if f.ReminderSent != nil {
		query = query.Where("reminder_sent = ?", *f.ReminderSent)
	}
	if f.Ascending {
		query = query.Order("scheduled_date asc")
	} else {
		query = query.Order("scheduled_date desc")
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var bookings []models.Booking
	err := query.Find(&bookings).Error
	return bookings, translate(err)
}

func (t *gormTx) BookingStats(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.StatusStat, error) {
	column := "student_id"
	if role == models.RoleTeacher {
		column = "teacher_id"
	}

	var stats []models.StatusStat
	err := t.db.Model(&models.Booking{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(price), 0) AS total_earnings").
		Where(column+" = ?", userID).
		Group("status").
		Order("status").
		Scan(&stats).Error
	return stats, translate(err)
}

func (t *gormTx) CreateReview(ctx context.Context, r *models.Review) error {
	return translate(t.db.Create(r).Error)
}

func (t *gormTx) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var r models.Review
	if err := t.db.First(&r, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (t *gormTx) FindReview(ctx context.Context, bookingID uuid.UUID, reviewType models.ReviewType) (*models.Review, error) {
	var r models.Review
	if err := t.db.Where("booking_id = ? AND review_type = ?", bookingID, reviewType).First(&r).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (t *gormTx) SaveReview(ctx context.Context, r *models.Review) error {
	return translate(t.db.Save(r).Error)
}

func (t *gormTx) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	query := t.db.Model(&models.Review{})
	if f.TeacherID != nil {
		query = query.Where("teacher_id = ?", *f.TeacherID)
	}
	if f.SkillID != nil {
		query = query.Where("skill_id = ?", *f.SkillID)
	}
	if f.Type != "" {
		query = query.Where("review_type = ?", f.Type)
	}
	if f.VisibleOnly {
		query = query.Where("is_public = ? AND is_hidden = ?", true, false)
	}
	if f.ReportedOnly {
		query = query.Where("report_count > 0")
	}

	var reviews []models.Review
	err := query.Order("created_at desc").Find(&reviews).Error
	return reviews, translate(err)
}

func (t *gormTx) RatingDistribution(ctx context.Context, teacherID uuid.UUID) ([]models.RatingBucket, error) {
	var buckets []models.RatingBucket
	err := t.db.Model(&models.Review{}).
		Select("rating, COUNT(*) AS count").
		Where("teacher_id = ? AND review_type = ? AND is_hidden = ?", teacherID, models.ReviewStudentToTeacher, false).
		Group("rating").
		Order("rating desc").
		Scan(&buckets).Error
	return buckets, translate(err)
}

func (t *gormTx) CreateMessage(ctx context.Context, m *models.Message) error {
	return translate(t.db.Create(m).Error)
}

func (t *gormTx) ListMessages(ctx context.Context, room string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	query := t.db.Where("room = ?", room).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&msgs).Error; err != nil {
		return nil, translate(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (t *gormTx) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return translate(t.db.Create(rt).Error)
}

func (t *gormTx) GetRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := t.db.First(&rt, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

func (t *gormTx) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	return translate(t.db.Save(rt).Error)
}
