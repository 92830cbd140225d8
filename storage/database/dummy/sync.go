// Package dummysync is an in-memory study.Syncer used in tests and when no
// mirror database is configured.
package dummysync

import (
	"context"
	"sync"

	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
)

type Syncer struct {
	mu       sync.Mutex
	identity core.Identity

	Courses map[string]study.Course
	Tasks   map[string]study.Task
	Notes   map[string]study.CourseNote
	Habits  map[string]study.Habit
	Profile *study.RemoteProfile

	// Err, when set, is returned by every call; lets tests exercise the
	// fire-and-forget failure paths.
	Err error
}

var _ study.Syncer = (*Syncer)(nil)

func New(identity core.Identity) *Syncer {
	return &Syncer{
		identity: identity,
		Courses:  make(map[string]study.Course),
		Tasks:    make(map[string]study.Task),
		Notes:    make(map[string]study.CourseNote),
		Habits:   make(map[string]study.Habit),
	}
}

// check resolves identity the way the real adapter does: not logged in means
// silently do nothing.
func (s *Syncer) check() (ok bool, err error) {
	if s.Err != nil {
		return false, s.Err
	}
	if s.identity == nil {
		return true, nil
	}
	if _, err = s.identity.CurrentUserID(); err == core.ErrNoIdentity {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Syncer) UpsertCourse(_ context.Context, c study.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	s.Courses[c.ID] = c
	return nil
}

func (s *Syncer) DeleteCourse(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	delete(s.Courses, id)
	return nil
}

func (s *Syncer) UpsertTask(_ context.Context, t study.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	s.Tasks[t.ID] = t
	return nil
}

func (s *Syncer) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	delete(s.Tasks, id)
	return nil
}

func (s *Syncer) UpsertNote(_ context.Context, n study.CourseNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	s.Notes[n.ID] = n
	return nil
}

func (s *Syncer) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	delete(s.Notes, id)
	return nil
}

func (s *Syncer) UpsertHabit(_ context.Context, h study.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	s.Habits[h.ID] = h
	return nil
}

func (s *Syncer) DeleteHabit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok, err := s.check(); !ok {
		return err
	}
	delete(s.Habits, id)
	return nil
}

func (s *Syncer) FetchAll(_ context.Context) (*study.RemoteData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.identity != nil {
		if _, err := s.identity.CurrentUserID(); err != nil {
			return nil, err
		}
	}

	data := &study.RemoteData{Profile: s.Profile}
	for _, c := range s.Courses {
		data.Courses = append(data.Courses, c)
	}
	for _, t := range s.Tasks {
		data.Tasks = append(data.Tasks, t)
	}
	for _, n := range s.Notes {
		data.Notes = append(data.Notes, n)
	}
	for _, h := range s.Habits {
		data.Habits = append(data.Habits, h)
	}
	return data, nil
}
