package store

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anjiri1684/skillazon/models"
	"github.com/google/uuid"
)

var errReadOnly = errors.New("write attempted inside a read-only view")

type memData struct {
	users    map[uuid.UUID]models.User
	skills   map[uuid.UUID]models.Skill
	bookings map[uuid.UUID]models.Booking
	reviews  map[uuid.UUID]models.Review
	messages []models.Message
	refresh  map[uuid.UUID]models.RefreshToken
}

func (d *memData) clone() *memData {
	return &memData{
		users:    maps.Clone(d.users),
		skills:   maps.Clone(d.skills),
		bookings: maps.Clone(d.bookings),
		reviews:  maps.Clone(d.reviews),
		messages: append([]models.Message(nil), d.messages...),
		refresh:  maps.Clone(d.refresh),
	}
}

// MemoryStore keeps everything in process. Transactions are serialised and
// applied copy-on-write, so a failed transaction leaves no trace.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memData
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: &memData{
			users:    map[uuid.UUID]models.User{},
			skills:   map[uuid.UUID]models.Skill{},
			bookings: map[uuid.UUID]models.Booking{},
			reviews:  map[uuid.UUID]models.Review{},
			refresh:  map[uuid.UUID]models.RefreshToken{},
		},
		now: time.Now,
	}
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memTx{data: s.data, readOnly: true, now: s.now})
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.data.clone()
	if err := fn(&memTx{data: working, now: s.now}); err != nil {
		return err
	}
	s.data = working
	return nil
}

type memTx struct {
	data     *memData
	readOnly bool
	now      func() time.Time
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

func (t *memTx) stamp(created *time.Time, updated *time.Time) {
	now := t.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func (t *memTx) CreateUser(ctx context.Context, u *models.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, existing := range t.data.users {
		if existing.ID == u.ID || strings.EqualFold(existing.Email, u.Email) || strings.EqualFold(existing.Username, u.Username) {
			return ErrDuplicate
		}
	}
	t.stamp(&u.CreatedAt, &u.UpdatedAt)
	t.data.users[u.ID] = *u
	return nil
}

func (t *memTx) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := t.data.users[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &u, nil
}

func (t *memTx) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range t.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (t *memTx) SaveUser(ctx context.Context, u *models.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.data.users[u.ID]; !ok {
		return ErrRecordNotFound
	}
	t.stamp(nil, &u.UpdatedAt)
	t.data.users[u.ID] = *u
	return nil
}

func (t *memTx) ListUsers(ctx context.Context) ([]models.User, error) {
	users := make([]models.User, 0, len(t.data.users))
	for _, u := range t.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (t *memTx) IncrementUserStats(ctx context.Context, id uuid.UUID, delta models.StatsDelta) error {
	if err := t.writable(); err != nil {
		return err
	}
	u, ok := t.data.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	u.Stats.TotalSessionsAsTeacher += delta.SessionsAsTeacher
	u.Stats.TotalSessionsAsStudent += delta.SessionsAsStudent
	u.Stats.TotalEarnings += delta.Earnings
	t.data.users[id] = u
	return nil
}

func (t *memTx) ApplyUserRating(ctx context.Context, id uuid.UUID, role models.Role, rating int) error {
	if err := t.writable(); err != nil {
		return err
	}
	u, ok := t.data.users[id]
	if !ok {
		return ErrRecordNotFound
	}
	if role == models.RoleTeacher {
		u.Stats.AverageRatingAsTeacher, u.Stats.TotalReviewsAsTeacher = models.RunningAverage(u.Stats.AverageRatingAsTeacher, u.Stats.TotalReviewsAsTeacher, float64(rating))
	} else {
		u.Stats.AverageRatingAsStudent, u.Stats.TotalReviewsAsStudent = models.RunningAverage(u.Stats.AverageRatingAsStudent, u.Stats.TotalReviewsAsStudent, float64(rating))
	}
	t.data.users[id] = u
	return nil
}

func (t *memTx) CreateSkill(ctx context.Context, s *models.Skill) error {
	if err := t.writable(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if _, ok := t.data.skills[s.ID]; ok {
		return ErrDuplicate
	}
	t.stamp(&s.CreatedAt, &s.UpdatedAt)
	t.data.skills[s.ID] = *s
	return nil
}

func (t *memTx) GetSkill(ctx context.Context, id uuid.UUID) (*models.Skill, error) {
	s, ok := t.data.skills[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &s, nil
}

func (t *memTx) SaveSkill(ctx context.Context, s *models.Skill) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.data.skills[s.ID]; !ok {
		return ErrRecordNotFound
	}
	t.stamp(nil, &s.UpdatedAt)
	t.data.skills[s.ID] = *s
	return nil
}

func (t *memTx) ListSkills(ctx context.Context, f SkillFilter) ([]models.Skill, error) {
	var skills []models.Skill
	for _, s := range t.data.skills {
		switch {
		case f.ActiveOnly && !s.IsActive:
			continue
		case f.TeacherID != nil && s.TeacherID != *f.TeacherID:
			continue
		case f.Category != "" && s.Category != f.Category:
			continue
		case f.Level != "" && s.Level != f.Level:
			continue
		case f.MinPrice != nil && s.Price < *f.MinPrice:
			continue
		case f.MaxPrice != nil && s.Price > *f.MaxPrice:
			continue
		}
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool {
		if f.TopRated {
			a, b := skills[i].Rating, skills[j].Rating
			if a.Average != b.Average {
				return a.Average > b.Average
			}
			return a.Count > b.Count
		}
		return skills[i].CreatedAt.After(skills[j].CreatedAt)
	})
	if f.Limit > 0 && len(skills) > f.Limit {
		skills = skills[:f.Limit]
	}
	return skills, nil
}

func (t *memTx) IncrementSkillSessions(ctx context.Context, id uuid.UUID) error {
	if err := t.writable(); err != nil {
		return err
	}
	s, ok := t.data.skills[id]
	if !ok {
		return ErrRecordNotFound
	}
	s.TotalSessions++
	t.data.skills[id] = s
	return nil
}

func (t *memTx) ApplySkillRating(ctx context.Context, id uuid.UUID, rating int) error {
	if err := t.writable(); err != nil {
		return err
	}
	s, ok := t.data.skills[id]
	if !ok {
		return ErrRecordNotFound
	}
	s.Rating.Average, s.Rating.Count = models.RunningAverage(s.Rating.Average, s.Rating.Count, float64(rating))
	t.data.skills[id] = s
	return nil
}

// LockTeacherSchedule only checks the teacher exists; the store-wide
// transaction lock already serialises schedule changes.
func (t *memTx) LockTeacherSchedule(ctx context.Context, teacherID uuid.UUID) error {
	if _, ok := t.data.users[teacherID]; !ok {
		return ErrRecordNotFound
	}
	return nil
}

func (t *memTx) HasConflict(ctx context.Context, teacherID uuid.UUID, date time.Time, durationMinutes int) (bool, error) {
	for _, b := range t.data.bookings {
		if b.TeacherID == teacherID && models.Conflicts(&b, date, durationMinutes) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	if err := t.writable(); err != nil {
		return err
	}
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if _, ok := t.data.bookings[b.ID]; ok {
		return ErrDuplicate
	}
	t.stamp(&b.CreatedAt, &b.UpdatedAt)
	t.data.bookings[b.ID] = stripSummaries(*b)
	return nil
}

func (t *memTx) GetBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	b, ok := t.data.bookings[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &b, nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *memTx) SaveBooking(ctx context.Context, b *models.Booking) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.data.bookings[b.ID]; !ok {
		return ErrRecordNotFound
	}
	t.stamp(nil, &b.UpdatedAt)
	t.data.bookings[b.ID] = stripSummaries(*b)
	return nil
}

func stripSummaries(b models.Booking) models.Booking {
	b.Skill, b.Teacher, b.Student = nil, nil, nil
	return b
}

func (t *memTx) ListBookings(ctx context.Context, f BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	for _, b := range t.data.bookings {
		switch {
		case f.TeacherID != nil && b.TeacherID != *f.TeacherID:
			continue
		case f.StudentID != nil && b.StudentID != *f.StudentID:
			continue
		case f.ParticipantID != nil && b.TeacherID != *f.ParticipantID && b.StudentID != *f.ParticipantID:
			continue
		case len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status):
			continue
		case f.ScheduledAfter != nil && !b.ScheduledDate.After(*f.ScheduledAfter):
			continue
		case f.ScheduledBefore != nil && !b.ScheduledDate.Before(*f.ScheduledBefore):
			continue
		case f.ScheduledUntil != nil && b.ScheduledDate.After(*f.ScheduledUntil):
			continue
		case f.ReminderSent != nil && b.ReminderSent != *f.ReminderSent:
			continue
		}
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if f.Ascending {
			return bookings[i].ScheduledDate.Before(bookings[j].ScheduledDate)
		}
		return bookings[i].ScheduledDate.After(bookings[j].ScheduledDate)
	})
	if f.Limit > 0 && len(bookings) > f.Limit {
		bookings = bookings[:f.Limit]
	}
	return bookings, nil
}

func (t *memTx) BookingStats(ctx context.Context, userID uuid.UUID, role models.Role) ([]models.StatusStat, error) {
	buckets := map[models.BookingStatus]*models.StatusStat{}
	for _, b := range t.data.bookings {
		owner := b.StudentID
		if role == models.RoleTeacher {
			owner = b.TeacherID
		}
		if owner != userID {
			continue
		}
		stat, ok := buckets[b.Status]
		if !ok {
			stat = &models.StatusStat{Status: b.Status}
			buckets[b.Status] = stat
		}
		stat.Count++
		stat.TotalEarnings += b.Price
	}
	stats := make([]models.StatusStat, 0, len(buckets))
	for _, s := range buckets {
		stats = append(stats, *s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Status < stats[j].Status })
	return stats, nil
}

func (t *memTx) CreateReview(ctx context.Context, r *models.Review) error {
	if err := t.writable(); err != nil {
		return err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	for _, existing := range t.data.reviews {
		if existing.ID == r.ID || (existing.BookingID == r.BookingID && existing.ReviewType == r.ReviewType) {
			return ErrDuplicate
		}
	}
	t.stamp(&r.CreatedAt, &r.UpdatedAt)
	t.data.reviews[r.ID] = *r
	return nil
}

func (t *memTx) GetReview(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	r, ok := t.data.reviews[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &r, nil
}

func (t *memTx) FindReview(ctx context.Context, bookingID uuid.UUID, reviewType models.ReviewType) (*models.Review, error) {
	for _, r := range t.data.reviews {
		if r.BookingID == bookingID && r.ReviewType == reviewType {
			return &r, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (t *memTx) SaveReview(ctx context.Context, r *models.Review) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.data.reviews[r.ID]; !ok {
		return ErrRecordNotFound
	}
	t.stamp(nil, &r.UpdatedAt)
	t.data.reviews[r.ID] = *r
	return nil
}

func (t *memTx) ListReviews(ctx context.Context, f ReviewFilter) ([]models.Review, error) {
	var reviews []models.Review
	for _, r := range t.data.reviews {
		switch {
		case f.TeacherID != nil && r.TeacherID != *f.TeacherID:
			continue
		case f.SkillID != nil && r.SkillID != *f.SkillID:
			continue
		case f.Type != "" && r.ReviewType != f.Type:
			continue
		case f.VisibleOnly && (!r.IsPublic || r.IsHidden):
			continue
		case f.ReportedOnly && r.ReportCount == 0:
			continue
		}
		reviews = append(reviews, r)
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	return reviews, nil
}

func (t *memTx) RatingDistribution(ctx context.Context, teacherID uuid.UUID) ([]models.RatingBucket, error) {
	counts := map[int]int64{}
	for _, r := range t.data.reviews {
		if r.TeacherID == teacherID && r.ReviewType == models.ReviewStudentToTeacher && !r.IsHidden {
			counts[r.Rating]++
		}
	}
	buckets := make([]models.RatingBucket, 0, len(counts))
	for rating, n := range counts {
		buckets = append(buckets, models.RatingBucket{Rating: rating, Count: n})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Rating > buckets[j].Rating })
	return buckets, nil
}

func (t *memTx) CreateMessage(ctx context.Context, m *models.Message) error {
	if err := t.writable(); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	t.stamp(&m.CreatedAt, nil)
	t.data.messages = append(t.data.messages, *m)
	return nil
}

func (t *memTx) ListMessages(ctx context.Context, room string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	for _, m := range t.data.messages {
		if m.Room == room {
			msgs = append(msgs, m)
		}
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (t *memTx) CreateRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if err := t.writable(); err != nil {
		return err
	}
	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}
	if _, ok := t.data.refresh[rt.ID]; ok {
		return ErrDuplicate
	}
	t.stamp(&rt.CreatedAt, nil)
	t.data.refresh[rt.ID] = *rt
	return nil
}

func (t *memTx) GetRefreshToken(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	rt, ok := t.data.refresh[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rt, nil
}

func (t *memTx) SaveRefreshToken(ctx context.Context, rt *models.RefreshToken) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.data.refresh[rt.ID]; !ok {
		return ErrRecordNotFound
	}
	t.data.refresh[rt.ID] = *rt
	return nil
}
