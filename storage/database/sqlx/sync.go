// Package sqlxsync mirrors local entities to the hosted Postgres backend.
// Pure mapping + transport: no business logic, no retries (the outbox owns
// those). Every call resolves the current identity first and silently no-ops
// when nobody is logged in.
package sqlxsync

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/sync/errgroup"

	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
)

type Syncer struct {
	db       *sqlx.DB
	identity core.Identity
}

var _ study.Syncer = (*Syncer)(nil)

func NewSyncer(db *sqlx.DB, identity core.Identity) *Syncer {
	return &Syncer{db: db, identity: identity}
}

// userID resolves the current identity; ok is false when not logged in.
func (s *Syncer) userID() (uid string, ok bool, err error) {
	uid, err = s.identity.CurrentUserID()
	if err != nil {
		if errors.Cause(err) == core.ErrNoIdentity {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "resolving identity")
	}
	return uid, true, nil
}

// Row shapes (snake_case columns)

type courseRow struct {
	ID         string      `db:"id"`
	UserID     string      `db:"user_id"`
	Name       string      `db:"name"`
	Professor  null.String `db:"professor"`
	RoomNumber null.String `db:"room_number"`
	Color      null.String `db:"color"`
	Schedule   null.String `db:"schedule"`
	Credits    int         `db:"credits"`
}

type taskRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	CourseID    null.String  `db:"course_id"`
	Title       string       `db:"title"`
	Description null.String  `db:"description"`
	Status      string       `db:"status"`
	Priority    string       `db:"priority"`
	DueDate     null.String  `db:"due_date"`
	Type        string       `db:"type"`
	Grade       null.Float64 `db:"grade"`
}

type noteRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	CourseID  null.String `db:"course_id"`
	Title     string      `db:"title"`
	Content   string      `db:"content"`
	CreatedAt null.String `db:"created_at"`
	UpdatedAt null.String `db:"updated_at"`
}

type habitRow struct {
	ID             string         `db:"id"`
	UserID         string         `db:"user_id"`
	Title          string         `db:"title"`
	Streak         int            `db:"streak"`
	CompletedDates pq.StringArray `db:"completed_dates"`
}

type profileRow struct {
	FullName null.String `db:"full_name"`
	Role     string      `db:"role"`
	XP       int         `db:"xp"`
	Level    int         `db:"level"`
	Streak   int         `db:"streak"`
}

// Mappers

func packCourse(c study.Course, userID string) courseRow {
	return courseRow{
		ID:         c.ID,
		UserID:     userID,
		Name:       c.Name,
		Professor:  null.NewString(c.Professor, c.Professor != ""),
		RoomNumber: null.NewString(c.RoomNumber, c.RoomNumber != ""),
		Color:      null.NewString(c.Color, c.Color != ""),
		Schedule:   null.NewString(c.Schedule, c.Schedule != ""),
		Credits:    c.Credits,
	}
}

func unpackCourse(r courseRow) study.Course {
	return study.Course{
		ID:         r.ID,
		Name:       r.Name,
		Professor:  r.Professor.String,
		RoomNumber: r.RoomNumber.String,
		Color:      r.Color.String,
		Schedule:   r.Schedule.String,
		Credits:    r.Credits,
		Resources:  []study.CourseResource{}, // local-only, never mirrored
	}
}

func packTask(t study.Task, userID string) taskRow {
	priority := string(t.Priority)
	if priority == "" {
		priority = string(study.PriorityMedium)
	}
	return taskRow{
		ID:          t.ID,
		UserID:      userID,
		CourseID:    null.NewString(t.CourseID, t.CourseID != ""),
		Title:       t.Title,
		Description: null.NewString(t.Description, t.Description != ""),
		Status:      string(t.Status),
		Priority:    priority,
		DueDate:     null.NewString(t.DueDate, t.DueDate != ""),
		Type:        string(t.Type),
		Grade:       null.Float64FromPtr(t.Grade),
	}
}

func unpackTask(r taskRow) study.Task {
	return study.Task{
		ID:          r.ID,
		CourseID:    r.CourseID.String,
		Title:       r.Title,
		Description: r.Description.String,
		Status:      study.TaskStatus(r.Status),
		Priority:    study.TaskPriority(r.Priority),
		DueDate:     r.DueDate.String,
		Type:        study.TaskType(r.Type),
		Grade:       r.Grade.Ptr(),
	}
}

func packNote(n study.CourseNote, userID string) noteRow {
	return noteRow{
		ID:        n.ID,
		UserID:    userID,
		CourseID:  null.NewString(n.CourseID, n.CourseID != ""),
		Title:     n.Title,
		Content:   n.Content,
		CreatedAt: null.NewString(n.CreatedAt, n.CreatedAt != ""),
		UpdatedAt: null.NewString(n.UpdatedAt, n.UpdatedAt != ""),
	}
}

func unpackNote(r noteRow) study.CourseNote {
	return study.CourseNote{
		ID:        r.ID,
		CourseID:  r.CourseID.String,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: r.CreatedAt.String,
		UpdatedAt: r.UpdatedAt.String,
	}
}

func packHabit(h study.Habit, userID string) habitRow {
	return habitRow{
		ID:             h.ID,
		UserID:         userID,
		Title:          h.Title,
		Streak:         h.Streak,
		CompletedDates: pq.StringArray(h.CompletedDates),
	}
}

func unpackHabit(r habitRow) study.Habit {
	dates := []string(r.CompletedDates)
	if dates == nil {
		dates = []string{}
	}
	return study.Habit{
		ID:             r.ID,
		Title:          r.Title,
		Streak:         r.Streak,
		CompletedDates: dates,
	}
}

// Upserts / deletes

const upsertCourseSQL = `
INSERT INTO courses (id, user_id, name, professor, room_number, color, schedule, credits, updated_at)
VALUES (:id, :user_id, :name, :professor, :room_number, :color, :schedule, :credits, now())
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    professor = EXCLUDED.professor,
    room_number = EXCLUDED.room_number,
    color = EXCLUDED.color,
    schedule = EXCLUDED.schedule,
    credits = EXCLUDED.credits,
    updated_at = now()`

func (s *Syncer) UpsertCourse(ctx context.Context, c study.Course) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.NamedExecContext(ctx, upsertCourseSQL, packCourse(c, uid)); err != nil {
		return errors.Wrap(err, "upserting course")
	}
	return nil
}

func (s *Syncer) DeleteCourse(ctx context.Context, id string) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND user_id = $2`, id, uid); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

const upsertTaskSQL = `
INSERT INTO tasks (id, user_id, course_id, title, description, status, priority, due_date, type, grade, updated_at)
VALUES (:id, :user_id, :course_id, :title, :description, :status, :priority, :due_date, :type, :grade, now())
ON CONFLICT (id) DO UPDATE SET
    course_id = EXCLUDED.course_id,
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    status = EXCLUDED.status,
    priority = EXCLUDED.priority,
    due_date = EXCLUDED.due_date,
    type = EXCLUDED.type,
    grade = EXCLUDED.grade,
    updated_at = now()`

func (s *Syncer) UpsertTask(ctx context.Context, t study.Task) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.NamedExecContext(ctx, upsertTaskSQL, packTask(t, uid)); err != nil {
		return errors.Wrap(err, "upserting task")
	}
	return nil
}

func (s *Syncer) DeleteTask(ctx context.Context, id string) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, uid); err != nil {
		return errors.Wrap(err, "deleting task")
	}
	return nil
}

const upsertNoteSQL = `
INSERT INTO notes (id, user_id, course_id, title, content, created_at, updated_at)
VALUES (:id, :user_id, :course_id, :title, :content, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
    course_id = EXCLUDED.course_id,
    title = EXCLUDED.title,
    content = EXCLUDED.content,
    updated_at = EXCLUDED.updated_at`

func (s *Syncer) UpsertNote(ctx context.Context, n study.CourseNote) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.NamedExecContext(ctx, upsertNoteSQL, packNote(n, uid)); err != nil {
		return errors.Wrap(err, "upserting note")
	}
	return nil
}

func (s *Syncer) DeleteNote(ctx context.Context, id string) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, uid); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return nil
}

const upsertHabitSQL = `
INSERT INTO habits (id, user_id, title, streak, completed_dates, updated_at)
VALUES (:id, :user_id, :title, :streak, :completed_dates, now())
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    streak = EXCLUDED.streak,
    completed_dates = EXCLUDED.completed_dates,
    updated_at = now()`

func (s *Syncer) UpsertHabit(ctx context.Context, h study.Habit) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.NamedExecContext(ctx, upsertHabitSQL, packHabit(h, uid)); err != nil {
		return errors.Wrap(err, "upserting habit")
	}
	return nil
}

func (s *Syncer) DeleteHabit(ctx context.Context, id string) error {
	uid, ok, err := s.userID()
	if !ok {
		return err
	}
	if _, err = s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, uid); err != nil {
		return errors.Wrap(err, "deleting habit")
	}
	return nil
}

// FetchAll reads the four mirrored tables plus the profile row concurrently,
// all scoped to the current identity, and maps rows back to local shapes.
// Returns core.ErrNoIdentity when nobody is logged in.
func (s *Syncer) FetchAll(ctx context.Context) (*study.RemoteData, error) {
	uid, err := s.identity.CurrentUserID()
	if err != nil {
		return nil, err
	}

	data := &study.RemoteData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var rows []courseRow
		if err := s.db.SelectContext(gctx, &rows, `SELECT id, user_id, name, professor, room_number, color, schedule, credits FROM courses WHERE user_id = $1`, uid); err != nil {
			return errors.Wrap(err, "fetching courses")
		}
		data.Courses = make([]study.Course, 0, len(rows))
		for _, r := range rows {
			data.Courses = append(data.Courses, unpackCourse(r))
		}
		return nil
	})

	g.Go(func() error {
		var rows []taskRow
		if err := s.db.SelectContext(gctx, &rows, `SELECT id, user_id, course_id, title, description, status, priority, due_date, type, grade FROM tasks WHERE user_id = $1`, uid); err != nil {
			return errors.Wrap(err, "fetching tasks")
		}
		data.Tasks = make([]study.Task, 0, len(rows))
		for _, r := range rows {
			data.Tasks = append(data.Tasks, unpackTask(r))
		}
		return nil
	})

	g.Go(func() error {
		var rows []noteRow
		if err := s.db.SelectContext(gctx, &rows, `SELECT id, user_id, course_id, title, content, created_at, updated_at FROM notes WHERE user_id = $1`, uid); err != nil {
			return errors.Wrap(err, "fetching notes")
		}
		data.Notes = make([]study.CourseNote, 0, len(rows))
		for _, r := range rows {
			data.Notes = append(data.Notes, unpackNote(r))
		}
		return nil
	})

	g.Go(func() error {
		var rows []habitRow
		if err := s.db.SelectContext(gctx, &rows, `SELECT id, user_id, title, streak, completed_dates FROM habits WHERE user_id = $1`, uid); err != nil {
			return errors.Wrap(err, "fetching habits")
		}
		data.Habits = make([]study.Habit, 0, len(rows))
		for _, r := range rows {
			data.Habits = append(data.Habits, unpackHabit(r))
		}
		return nil
	})

	g.Go(func() error {
		var row profileRow
		err := s.db.GetContext(gctx, &row, `SELECT full_name, role, xp, level, streak FROM profiles WHERE id = $1`, uid)
		if err == sql.ErrNoRows {
			return nil // no profile row yet; local profile stays as is
		}
		if err != nil {
			return errors.Wrap(err, "fetching profile")
		}
		data.Profile = &study.RemoteProfile{
			Name:   row.FullName.String,
			Role:   row.Role,
			XP:     row.XP,
			Level:  row.Level,
			Streak: row.Streak,
		}
		return nil
	})

	if err = g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}
