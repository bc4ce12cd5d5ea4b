package filestore

import (
	"context"
	"sort"
	"time"

	"github.com/SAP-F-2025/proctored-quiz-service/internal/models"
	"github.com/SAP-F-2025/proctored-quiz-service/internal/repositories"
)

// ===== USERS =====

type userRepository struct {
	acc access
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := r.acc.read(func(d *document) error {
		for _, u := range d.Users {
			if u.Email == email {
				c := *u
				user = &c
				return nil
			}
		}
		return repositories.ErrNotFound
	})
	return user, err
}

func (r *userRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := r.acc.read(func(d *document) error {
		users = make([]*models.User, 0, len(d.Users))
		for _, u := range d.Users {
			c := *u
			users = append(users, &c)
		}
		return nil
	})
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.acc.read(func(d *document) error {
		n = int64(len(d.Users))
		return nil
	})
	return n, err
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.acc.write(func(d *document) error {
		for _, u := range d.Users {
			if u.Email == user.Email {
				return repositories.ErrDuplicate
			}
		}
		if user.CreatedAt.IsZero() {
			user.CreatedAt = time.Now()
		}
		c := *user
		c.Blocked = false
		d.Users = append(d.Users, &c)
		return nil
	})
}

// ===== BLOCK LIST =====

type blockRepository struct {
	acc access
}

func (r *blockRepository) IsBlocked(ctx context.Context, email string) (bool, error) {
	var blocked bool
	err := r.acc.read(func(d *document) error {
		blocked = indexBlocked(d, email) >= 0
		return nil
	})
	return blocked, err
}

func (r *blockRepository) Block(ctx context.Context, email string, at time.Time) (bool, error) {
	var changed bool
	err := r.acc.write(func(d *document) error {
		if indexBlocked(d, email) >= 0 {
			return nil
		}
		d.BlockedUsers = append(d.BlockedUsers, &models.BlockedUser{Email: email, BlockedAt: at})
		changed = true
		return nil
	})
	return changed, err
}

func (r *blockRepository) Unblock(ctx context.Context, email string) (bool, error) {
	var changed bool
	err := r.acc.write(func(d *document) error {
		i := indexBlocked(d, email)
		if i < 0 {
			return nil
		}
		d.BlockedUsers = append(d.BlockedUsers[:i], d.BlockedUsers[i+1:]...)
		changed = true
		return nil
	})
	return changed, err
}

func (r *blockRepository) List(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.acc.read(func(d *document) error {
		emails = make([]string, 0, len(d.BlockedUsers))
		for _, b := range d.BlockedUsers {
			emails = append(emails, b.Email)
		}
		return nil
	})
	return emails, err
}

func indexBlocked(d *document, email string) int {
	for i, b := range d.BlockedUsers {
		if b.Email == email {
			return i
		}
	}
	return -1
}

// ===== SESSIONS =====

type sessionRepository struct {
	acc access
}

func (r *sessionRepository) Get(ctx context.Context, email string) (int, error) {
	var count int
	err := r.acc.read(func(d *document) error {
		count = d.Sessions[email]
		return nil
	})
	return count, err
}

func (r *sessionRepository) Increment(ctx context.Context, email string, limit int) (int, error) {
	var count int
	err := r.acc.write(func(d *document) error {
		current := d.Sessions[email]
		if current >= limit {
			return repositories.ErrSessionLimit
		}
		count = current + 1
		d.Sessions[email] = count
		return nil
	})
	return count, err
}

func (r *sessionRepository) All(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	err := r.acc.read(func(d *document) error {
		for k, v := range d.Sessions {
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (r *sessionRepository) DeleteAll(ctx context.Context) error {
	return r.acc.write(func(d *document) error {
		d.Sessions = map[string]int{}
		return nil
	})
}

// ===== ATTEMPTS =====

type attemptRepository struct {
	acc access
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	if a.EndTime != nil {
		t := *a.EndTime
		c.EndTime = &t
	}
	if a.Score != nil {
		v := *a.Score
		c.Score = &v
	}
	if a.TotalQuestions != nil {
		v := *a.TotalQuestions
		c.TotalQuestions = &v
	}
	if a.EndReason != nil {
		v := *a.EndReason
		c.EndReason = &v
	}
	return &c
}

func (r *attemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	return r.acc.write(func(d *document) error {
		for _, a := range d.Attempts {
			if a.Email == attempt.Email && !a.Completed {
				return repositories.ErrDuplicate
			}
			if a.ID == attempt.ID {
				return repositories.ErrDuplicate
			}
		}
		if attempt.CreatedAt.IsZero() {
			attempt.CreatedAt = time.Now()
		}
		d.Attempts = append(d.Attempts, copyAttempt(attempt))
		return nil
	})
}

func (r *attemptRepository) GetByID(ctx context.Context, id string) (*models.Attempt, error) {
	return r.find(func(a *models.Attempt) bool { return a.ID == id })
}

func (r *attemptRepository) GetActive(ctx context.Context, email string) (*models.Attempt, error) {
	return r.find(func(a *models.Attempt) bool { return a.Email == email && !a.Completed })
}

func (r *attemptRepository) find(match func(*models.Attempt) bool) (*models.Attempt, error) {
	var found *models.Attempt
	err := r.acc.read(func(d *document) error {
		// newest first, so a legacy document with several open attempts resolves to the latest
		for i := len(d.Attempts) - 1; i >= 0; i-- {
			if match(d.Attempts[i]) {
				found = copyAttempt(d.Attempts[i])
				return nil
			}
		}
		return repositories.ErrNotFound
	})
	return found, err
}

func (r *attemptRepository) HasCompleted(ctx context.Context, email string) (bool, error) {
	var completed bool
	err := r.acc.read(func(d *document) error {
		for _, a := range d.Attempts {
			if a.Email == email && a.Completed {
				completed = true
				break
			}
		}
		return nil
	})
	return completed, err
}

func (r *attemptRepository) UpdateActive(ctx context.Context, id string, update repositories.AttemptUpdate) error {
	return r.acc.write(func(d *document) error {
		for _, a := range d.Attempts {
			if a.ID == id && !a.Completed {
				update.Apply(a)
				return nil
			}
		}
		return repositories.ErrNotFound
	})
}

func (r *attemptRepository) List(ctx context.Context) ([]*models.Attempt, error) {
	attempts, err := r.filter(func(*models.Attempt) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].StartTime.Before(attempts[j].StartTime)
	})
	return attempts, nil
}

func (r *attemptRepository) ListCompleted(ctx context.Context) ([]*models.Attempt, error) {
	attempts, err := r.filter(func(a *models.Attempt) bool { return a.Completed })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return endTime(attempts[i]).Before(endTime(attempts[j]))
	})
	return attempts, nil
}

func (r *attemptRepository) ListActive(ctx context.Context) ([]*models.Attempt, error) {
	attempts, err := r.filter(func(a *models.Attempt) bool { return !a.Completed })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].StartTime.Before(attempts[j].StartTime)
	})
	return attempts, nil
}

func (r *attemptRepository) ListStale(ctx context.Context, startedBefore time.Time) ([]*models.Attempt, error) {
	return r.filter(func(a *models.Attempt) bool {
		return !a.Completed && a.StartTime.Before(startedBefore)
	})
}

func (r *attemptRepository) filter(match func(*models.Attempt) bool) ([]*models.Attempt, error) {
	var out []*models.Attempt
	err := r.acc.read(func(d *document) error {
		out = make([]*models.Attempt, 0, len(d.Attempts))
		for _, a := range d.Attempts {
			if match(a) {
				out = append(out, copyAttempt(a))
			}
		}
		return nil
	})
	return out, err
}

func (r *attemptRepository) Counts(ctx context.Context) (*repositories.AttemptCounts, error) {
	counts := &repositories.AttemptCounts{}
	err := r.acc.read(func(d *document) error {
		for _, a := range d.Attempts {
			if a.Completed {
				counts.Completed++
			} else {
				counts.Active++
			}
		}
		return nil
	})
	return counts, err
}

func (r *attemptRepository) DeleteAll(ctx context.Context) error {
	return r.acc.write(func(d *document) error {
		d.Attempts = nil
		return nil
	})
}

func endTime(a *models.Attempt) time.Time {
	if a.EndTime == nil {
		return a.StartTime
	}
	return *a.EndTime
}

// ===== VIOLATION EVENTS =====

type violationRepository struct {
	acc access
}

func (r *violationRepository) Append(ctx context.Context, event *models.ViolationEvent) error {
	return r.acc.write(func(d *document) error {
		c := *event
		d.Violations = append(d.Violations, &c)
		return nil
	})
}

func (r *violationRepository) CountCounted(ctx context.Context, attemptID string) (int, error) {
	var n int
	err := r.acc.read(func(d *document) error {
		for _, e := range d.Violations {
			if e.AttemptID == attemptID && e.Counted {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *violationRepository) ListByAttempt(ctx context.Context, attemptID string) ([]*models.ViolationEvent, error) {
	var events []*models.ViolationEvent
	err := r.acc.read(func(d *document) error {
		for _, e := range d.Violations {
			if e.AttemptID == attemptID {
				c := *e
				events = append(events, &c)
			}
		}
		return nil
	})
	return events, err
}

func (r *violationRepository) DeleteAll(ctx context.Context) error {
	return r.acc.write(func(d *document) error {
		d.Violations = nil
		return nil
	})
}

// ===== QUESTIONS =====

type questionRepository struct {
	acc access
}

func copyQuestion(q *models.Question) *models.Question {
	c := *q
	c.Options = append([]string(nil), q.Options...)
	return &c
}

func (r *questionRepository) List(ctx context.Context) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.acc.read(func(d *document) error {
		questions = make([]*models.Question, 0, len(d.Questions))
		for _, q := range d.Questions {
			questions = append(questions, copyQuestion(q))
		}
		return nil
	})
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, err
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.acc.write(func(d *document) error {
		var maxID uint
		for _, q := range d.Questions {
			if q.ID > maxID {
				maxID = q.ID
			}
		}
		question.ID = maxID + 1
		if question.CreatedAt.IsZero() {
			question.CreatedAt = time.Now()
		}
		d.Questions = append(d.Questions, copyQuestion(question))
		return nil
	})
}

func (r *questionRepository) Delete(ctx context.Context, id uint) error {
	return r.acc.write(func(d *document) error {
		for i, q := range d.Questions {
			if q.ID == id {
				d.Questions = append(d.Questions[:i], d.Questions[i+1:]...)
				return nil
			}
		}
		return repositories.ErrNotFound
	})
}

// ===== NOTIFICATIONS =====

type notificationRepository struct {
	acc access
}

func (r *notificationRepository) List(ctx context.Context) ([]*models.Notification, error) {
	var out []*models.Notification
	err := r.acc.read(func(d *document) error {
		out = make([]*models.Notification, 0, len(d.Notifications))
		for _, n := range d.Notifications {
			c := *n
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.acc.write(func(d *document) error {
		var maxID uint
		for _, n := range d.Notifications {
			if n.ID > maxID {
				maxID = n.ID
			}
		}
		notification.ID = maxID + 1
		c := *notification
		d.Notifications = append(d.Notifications, &c)
		return nil
	})
}

// ===== AUDIT LOG =====

type logRepository struct {
	acc access
}

func (r *logRepository) Append(ctx context.Context, entry *models.LogEntry) error {
	return r.acc.write(func(d *document) error {
		var maxID uint
		if n := len(d.Logs); n > 0 {
			maxID = d.Logs[n-1].ID
		}
		entry.ID = maxID + 1
		c := *entry
		d.Logs = append(d.Logs, &c)
		return nil
	})
}

func (r *logRepository) List(ctx context.Context) ([]*models.LogEntry, error) {
	var out []*models.LogEntry
	err := r.acc.read(func(d *document) error {
		out = make([]*models.LogEntry, 0, len(d.Logs))
		for i := len(d.Logs) - 1; i >= 0; i-- {
			c := *d.Logs[i]
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}
