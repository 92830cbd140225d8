package study

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BlackishOne/StudySync/core"
)

// xpTaskCompleted is granted once when a task transitions into COMPLETED.
const xpTaskCompleted = 50

// xpPerStudyMinute is granted per full minute of a logged study session.
const xpPerStudyMinute = 10

type (
	// StatePersistence is the durable local storage port. Save is called after
	// every mutation with the whole state tree; Load returns (nil, nil) when no
	// state has been saved yet.
	StatePersistence interface {
		Load() (*State, error)
		Save(*State) error
	}

	// Syncer is the remote mirror port: pure mapping + transport, one call per
	// (entity x operation), plus the bulk read used by reconciliation. Every
	// call resolves the current identity first and no-ops without error when
	// there is none (FetchAll returns core.ErrNoIdentity instead, so the caller
	// can tell "not logged in" from an empty account).
	Syncer interface {
		UpsertCourse(ctx context.Context, c Course) error
		DeleteCourse(ctx context.Context, id string) error
		UpsertTask(ctx context.Context, t Task) error
		DeleteTask(ctx context.Context, id string) error
		UpsertNote(ctx context.Context, n CourseNote) error
		DeleteNote(ctx context.Context, id string) error
		UpsertHabit(ctx context.Context, h Habit) error
		DeleteHabit(ctx context.Context, id string) error
		FetchAll(ctx context.Context) (*RemoteData, error)
	}

	// RemoteProfile holds the profile fields the remote tracks; everything else
	// on StudentProfile stays local.
	RemoteProfile struct {
		Name   string
		Role   string
		XP     int
		Level  int
		Streak int
	}

	RemoteData struct {
		Courses []Course
		Tasks   []Task
		Notes   []CourseNote
		Habits  []Habit
		Profile *RemoteProfile
	}

	// Store is the single source of truth for all collections during a session.
	// Mutations apply to memory synchronously, persist the whole state tree and
	// enqueue a best-effort remote mirror write; the mirror's outcome is never
	// reflected back (no rollback, no error surfacing).
	Store struct {
		mu      sync.RWMutex
		state   State
		persist StatePersistence
		syncer  Syncer
		outbox  *outbox
		log     core.Logger
		now     func() time.Time
	}
)

func NewStore(persist StatePersistence, syncer Syncer, logger core.Logger, conf *core.Config) (*Store, error) {
	s := &Store{
		state:   defaultState(),
		persist: persist,
		syncer:  syncer,
		log:     logger,
		now:     time.Now,
	}
	s.outbox = newOutbox(syncer, logger, conf.Sync.QueueSize, conf.Sync.MaxAttempts)

	if persist != nil {
		saved, err := persist.Load()
		if err != nil {
			return nil, errors.Wrap(err, "loading saved state")
		}
		if saved != nil {
			s.state = *saved
			// level is derived; heal any drift from older saved states
			s.state.Profile.Level = LevelForXP(s.state.Profile.XP)
		}
	}
	return s, nil
}

// Start launches the outbound sync worker. It stops when ctx is cancelled.
func (s *Store) Start(ctx context.Context) {
	s.outbox.start(ctx)
}

// Wait blocks until the sync worker has exited.
func (s *Store) Wait() {
	s.outbox.wait()
}

// persistLocked saves the state tree. A failed save is logged and otherwise
// ignored: the in-memory state remains authoritative for the session.
func (s *Store) persistLocked() {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(&s.state); err != nil {
		s.log.Error("persisting state", err)
	}
}

// Reads (copies; callers cannot mutate store state)

func (s *Store) Courses() []Course {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Course(nil), s.state.Courses...)
}

func (s *Store) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Task(nil), s.state.Tasks...)
}

func (s *Store) Notes() []CourseNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CourseNote(nil), s.state.Notes...)
}

func (s *Store) Habits() []Habit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Habit(nil), s.state.Habits...)
}

func (s *Store) ClassSessions() []ClassSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ClassSession(nil), s.state.ClassSessions...)
}

func (s *Store) Decks() []FlashcardDeck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]FlashcardDeck(nil), s.state.Decks...)
}

func (s *Store) Cards() []Flashcard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Flashcard(nil), s.state.Cards...)
}

func (s *Store) StudySessions() []StudySession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]StudySession(nil), s.state.StudySessions...)
}

func (s *Store) Profile() StudentProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Profile
}

func (s *Store) Timer() TimerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Timer
}

// Courses

func (s *Store) AddCourse(c Course) Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Courses = append(s.state.Courses, c)
	s.persistLocked()
	s.outbox.enqueue(upsertCourse(c))
	return c
}

func (s *Store) UpdateCourse(id string, u CourseUpdate) (Course, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Courses {
		if s.state.Courses[i].ID != id {
			continue
		}
		u.apply(&s.state.Courses[i])
		c := s.state.Courses[i]
		s.persistLocked()
		s.outbox.enqueue(upsertCourse(c))
		return c, true
	}
	return Course{}, false
}

// DeleteCourse cascades: dependent tasks lose their courseId, dependent class
// sessions and decks (and those decks' cards) are removed, all within the same
// mutation. Deleting an absent id is a no-op.
func (s *Store) DeleteCourse(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	courses := s.state.Courses[:0]
	found := false
	for _, c := range s.state.Courses {
		if c.ID == id {
			found = true
			continue
		}
		courses = append(courses, c)
	}
	if !found {
		return
	}
	s.state.Courses = courses

	for i := range s.state.Tasks {
		if s.state.Tasks[i].CourseID == id {
			s.state.Tasks[i].CourseID = ""
		}
	}

	sessions := s.state.ClassSessions[:0]
	for _, cs := range s.state.ClassSessions {
		if cs.CourseID != id {
			sessions = append(sessions, cs)
		}
	}
	s.state.ClassSessions = sessions

	deadDecks := make(map[string]struct{})
	decks := s.state.Decks[:0]
	for _, d := range s.state.Decks {
		if d.CourseID == id {
			deadDecks[d.ID] = struct{}{}
			continue
		}
		decks = append(decks, d)
	}
	s.state.Decks = decks

	cards := s.state.Cards[:0]
	for _, c := range s.state.Cards {
		if _, dead := deadDecks[c.DeckID]; !dead {
			cards = append(cards, c)
		}
	}
	s.state.Cards = cards

	s.persistLocked()
	s.outbox.enqueue(deleteCourse(id))
}

// Tasks

func (s *Store) AddTask(t Task) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Tasks = append(s.state.Tasks, t)
	s.persistLocked()
	s.outbox.enqueue(upsertTask(t))
	return t
}

func (s *Store) UpdateTask(id string, u TaskUpdate) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Tasks {
		if s.state.Tasks[i].ID != id {
			continue
		}
		u.apply(&s.state.Tasks[i])
		t := s.state.Tasks[i]
		s.persistLocked()
		s.outbox.enqueue(upsertTask(t))
		return t, true
	}
	return Task{}, false
}

// MoveTask changes a task's status. A transition into COMPLETED from any other
// status grants a fixed XP reward atomically with the status change; all other
// transitions grant nothing.
func (s *Store) MoveTask(id string, newStatus TaskStatus) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Tasks {
		if s.state.Tasks[i].ID != id {
			continue
		}
		if s.state.Tasks[i].Status != StatusCompleted && newStatus == StatusCompleted {
			s.state.Profile.XP += xpTaskCompleted
			s.state.Profile.Level = LevelForXP(s.state.Profile.XP)
		}
		s.state.Tasks[i].Status = newStatus
		t := s.state.Tasks[i]
		s.persistLocked()
		s.outbox.enqueue(upsertTask(t))
		return t, true
	}
	return Task{}, false
}

func (s *Store) DeleteTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.state.Tasks[:0]
	found := false
	for _, t := range s.state.Tasks {
		if t.ID == id {
			found = true
			continue
		}
		tasks = append(tasks, t)
	}
	if !found {
		return
	}
	s.state.Tasks = tasks
	s.persistLocked()
	s.outbox.enqueue(deleteTask(id))
}

// Notes

func (s *Store) AddNote(n CourseNote) CourseNote {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Notes = append(s.state.Notes, n)
	s.persistLocked()
	s.outbox.enqueue(upsertNote(n))
	return n
}

func (s *Store) UpdateNote(id string, u NoteUpdate) (CourseNote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Notes {
		if s.state.Notes[i].ID != id {
			continue
		}
		u.apply(&s.state.Notes[i])
		n := s.state.Notes[i]
		s.persistLocked()
		s.outbox.enqueue(upsertNote(n))
		return n, true
	}
	return CourseNote{}, false
}

func (s *Store) DeleteNote(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.state.Notes[:0]
	found := false
	for _, n := range s.state.Notes {
		if n.ID == id {
			found = true
			continue
		}
		notes = append(notes, n)
	}
	if !found {
		return
	}
	s.state.Notes = notes
	s.persistLocked()
	s.outbox.enqueue(deleteNote(id))
}

// Habits

func (s *Store) AddHabit(h Habit) Habit {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Habits = append(s.state.Habits, h)
	s.persistLocked()
	s.outbox.enqueue(upsertHabit(h))
	return h
}

func (s *Store) UpdateHabit(id string, u HabitUpdate) (Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Habits {
		if s.state.Habits[i].ID != id {
			continue
		}
		u.apply(&s.state.Habits[i])
		h := s.state.Habits[i]
		s.persistLocked()
		s.outbox.enqueue(upsertHabit(h))
		return h, true
	}
	return Habit{}, false
}

func (s *Store) DeleteHabit(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	habits := s.state.Habits[:0]
	found := false
	for _, h := range s.state.Habits {
		if h.ID == id {
			found = true
			continue
		}
		habits = append(habits, h)
	}
	if !found {
		return
	}
	s.state.Habits = habits
	s.persistLocked()
	s.outbox.enqueue(deleteHabit(id))
}

// ToggleHabit flips the habit's completion for the given YYYY-MM-DD day and
// re-derives the streak from scratch.
func (s *Store) ToggleHabit(id, date string) (Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Habits {
		h := &s.state.Habits[i]
		if h.ID != id {
			continue
		}

		dates := make([]string, 0, len(h.CompletedDates)+1)
		removed := false
		for _, d := range h.CompletedDates {
			if d == date {
				removed = true
				continue
			}
			dates = append(dates, d)
		}
		if !removed {
			dates = append(dates, date)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(dates))) // newest first

		h.CompletedDates = dates
		h.Streak = HabitStreak(dates, s.now())

		s.persistLocked()
		s.outbox.enqueue(upsertHabit(*h))
		return *h, true
	}
	return Habit{}, false
}

// Gamification

func (s *Store) AddXP(amount int) StudentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Profile.XP += amount
	s.state.Profile.Level = LevelForXP(s.state.Profile.XP)
	s.persistLocked()
	return s.state.Profile
}

// LogSession appends a study session, advances the study streak (day
// granularity against lastStudyDate) and grants XP per full minute studied.
func (s *Store) LogSession(duration int, courseID string) StudySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	session := StudySession{
		ID:       uuid.New().String(),
		Date:     now.UTC().Format(time.RFC3339),
		Duration: duration,
		CourseID: courseID,
	}
	s.state.StudySessions = append(s.state.StudySessions, session)

	p := &s.state.Profile
	p.Streak = nextStudyStreak(p.LastStudyDate, p.Streak, now)
	p.LastStudyDate = session.Date
	p.XP += (duration / 60) * xpPerStudyMinute
	p.Level = LevelForXP(p.XP)

	s.persistLocked()
	return session
}

func (s *Store) UpdateProfile(u ProfileUpdate) StudentProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.apply(&s.state.Profile)
	s.persistLocked()
	return s.state.Profile
}

// Class sessions, decks, cards (local-only collections)

func (s *Store) AddClassSession(cs ClassSession) ClassSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ClassSessions = append(s.state.ClassSessions, cs)
	s.persistLocked()
	return cs
}

func (s *Store) UpdateClassSession(id string, u ClassSessionUpdate) (ClassSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.ClassSessions {
		if s.state.ClassSessions[i].ID != id {
			continue
		}
		u.apply(&s.state.ClassSessions[i])
		s.persistLocked()
		return s.state.ClassSessions[i], true
	}
	return ClassSession{}, false
}

func (s *Store) DeleteClassSession(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.state.ClassSessions[:0]
	found := false
	for _, cs := range s.state.ClassSessions {
		if cs.ID == id {
			found = true
			continue
		}
		sessions = append(sessions, cs)
	}
	if !found {
		return
	}
	s.state.ClassSessions = sessions
	s.persistLocked()
}

func (s *Store) AddDeck(d FlashcardDeck) FlashcardDeck {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Decks = append(s.state.Decks, d)
	s.persistLocked()
	return d
}

func (s *Store) UpdateDeck(id string, u DeckUpdate) (FlashcardDeck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Decks {
		if s.state.Decks[i].ID != id {
			continue
		}
		u.apply(&s.state.Decks[i])
		s.persistLocked()
		return s.state.Decks[i], true
	}
	return FlashcardDeck{}, false
}

// DeleteDeck removes the deck and all of its cards atomically.
func (s *Store) DeleteDeck(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	decks := s.state.Decks[:0]
	found := false
	for _, d := range s.state.Decks {
		if d.ID == id {
			found = true
			continue
		}
		decks = append(decks, d)
	}
	if !found {
		return
	}
	s.state.Decks = decks

	cards := s.state.Cards[:0]
	for _, c := range s.state.Cards {
		if c.DeckID != id {
			cards = append(cards, c)
		}
	}
	s.state.Cards = cards
	s.persistLocked()
}

func (s *Store) AddCard(c Flashcard) Flashcard {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Confidence = clampConfidence(c.Confidence)
	s.state.Cards = append(s.state.Cards, c)
	s.persistLocked()
	return c
}

func (s *Store) UpdateCard(id string, u CardUpdate) (Flashcard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Cards {
		if s.state.Cards[i].ID != id {
			continue
		}
		u.apply(&s.state.Cards[i])
		s.persistLocked()
		return s.state.Cards[i], true
	}
	return Flashcard{}, false
}

func (s *Store) UpdateCardConfidence(id string, confidence int) (Flashcard, bool) {
	c := clampConfidence(confidence)
	return s.UpdateCard(id, CardUpdate{Confidence: &c})
}

func (s *Store) DeleteCard(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.state.Cards[:0]
	found := false
	for _, c := range s.state.Cards {
		if c.ID == id {
			found = true
			continue
		}
		cards = append(cards, c)
	}
	if !found {
		return
	}
	s.state.Cards = cards
	s.persistLocked()
}

// Timer

func (s *Store) SetTimer(t TimerState) TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Timer = t
	s.persistLocked()
	return s.state.Timer
}

// TickTimer decrements timeLeft by one second, floored at 0 (idempotent at 0).
func (s *Store) TickTimer() TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Timer.TimeLeft > 0 {
		s.state.Timer.TimeLeft--
	}
	s.persistLocked()
	return s.state.Timer
}

// SwitchMode resets timeLeft to the target mode's configured duration and
// always pauses the timer.
func (s *Store) SwitchMode(mode TimerMode) TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.state.Timer.Settings
	if settings == (TimerSettings{}) {
		settings = DefaultTimerSettings()
	}
	duration := settings.WorkDuration
	switch mode {
	case ModeShortBreak:
		duration = settings.ShortBreakDuration
	case ModeLongBreak:
		duration = settings.LongBreakDuration
	}

	s.state.Timer.Mode = mode
	s.state.Timer.TimeLeft = duration * 60
	s.state.Timer.IsActive = false
	s.state.Timer.Settings = settings
	s.persistLocked()
	return s.state.Timer
}

func (s *Store) UpdateTimerSettings(u TimerSettingsUpdate) TimerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.apply(&s.state.Timer.Settings)
	s.persistLocked()
	return s.state.Timer
}

// Backup

// Export snapshots the five backup collections.
func (s *Store) Export() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Courses:       append([]Course(nil), s.state.Courses...),
		Tasks:         append([]Task(nil), s.state.Tasks...),
		Profile:       s.state.Profile,
		StudySessions: append([]StudySession(nil), s.state.StudySessions...),
		Timer:         s.state.Timer,
	}
}

// ImportData replaces the bundle's present collections wholesale; absent (nil)
// fields are left untouched. No schema validation, no merge.
func (s *Store) ImportData(b ImportBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.Courses != nil {
		s.state.Courses = b.Courses
	}
	if b.Tasks != nil {
		s.state.Tasks = b.Tasks
	}
	if b.Notes != nil {
		s.state.Notes = b.Notes
	}
	if b.Habits != nil {
		s.state.Habits = b.Habits
	}
	if b.ClassSessions != nil {
		s.state.ClassSessions = b.ClassSessions
	}
	if b.Decks != nil {
		s.state.Decks = b.Decks
	}
	if b.Cards != nil {
		s.state.Cards = b.Cards
	}
	if b.StudySessions != nil {
		s.state.StudySessions = b.StudySessions
	}
	if b.Profile != nil {
		s.state.Profile = *b.Profile
	}
	if b.Timer != nil {
		s.state.Timer = *b.Timer
	}
	s.persistLocked()
}

// Reconciliation

// SyncFromCloud pulls the remote courses, tasks, notes and habits plus the
// profile row and merges them into local state id-keyed: remote rows win per
// id, local-only records survive. Not logged in is a no-op, not an error;
// local persisted state stays authoritative.
func (s *Store) SyncFromCloud(ctx context.Context) error {
	data, err := s.syncer.FetchAll(ctx)
	if err != nil {
		if errors.Cause(err) == core.ErrNoIdentity {
			s.log.Debug("sync from cloud skipped: not logged in")
			return nil
		}
		return errors.Wrap(err, "fetching remote data")
	}
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Courses = mergeByID(s.state.Courses, data.Courses, func(c Course) string { return c.ID })
	s.state.Tasks = mergeByID(s.state.Tasks, data.Tasks, func(t Task) string { return t.ID })
	s.state.Notes = mergeByID(s.state.Notes, data.Notes, func(n CourseNote) string { return n.ID })
	s.state.Habits = mergeByID(s.state.Habits, data.Habits, func(h Habit) string { return h.ID })

	if rp := data.Profile; rp != nil {
		p := &s.state.Profile
		p.Name = rp.Name
		p.Role = rp.Role
		p.XP = rp.XP
		p.Streak = rp.Streak
		p.Level = LevelForXP(p.XP)
	}

	s.persistLocked()
	return nil
}

// PushAll mirrors every synced collection synchronously, one upsert per record.
// Complements the best-effort outbox: recovers dropped intents or a mirror that
// was offline for a while. Not logged in is a no-op (the adapter skips writes).
func (s *Store) PushAll(ctx context.Context) error {
	if s.syncer == nil {
		return nil
	}

	s.mu.RLock()
	courses := append([]Course(nil), s.state.Courses...)
	tasks := append([]Task(nil), s.state.Tasks...)
	notes := append([]CourseNote(nil), s.state.Notes...)
	habits := append([]Habit(nil), s.state.Habits...)
	s.mu.RUnlock()

	for _, c := range courses {
		if err := s.syncer.UpsertCourse(ctx, c); err != nil {
			return errors.Wrapf(err, "pushing course %s", c.ID)
		}
	}
	for _, t := range tasks {
		if err := s.syncer.UpsertTask(ctx, t); err != nil {
			return errors.Wrapf(err, "pushing task %s", t.ID)
		}
	}
	for _, n := range notes {
		if err := s.syncer.UpsertNote(ctx, n); err != nil {
			return errors.Wrapf(err, "pushing note %s", n.ID)
		}
	}
	for _, h := range habits {
		if err := s.syncer.UpsertHabit(ctx, h); err != nil {
			return errors.Wrapf(err, "pushing habit %s", h.ID)
		}
	}
	return nil
}

// mergeByID upserts remote records into local: matching ids are replaced in
// place, new remote records are appended, local-only records are kept (they may
// simply not have reached the mirror yet).
func mergeByID[T any](local, remote []T, id func(T) string) []T {
	byID := make(map[string]int, len(local))
	merged := append([]T(nil), local...)
	for i, rec := range merged {
		byID[id(rec)] = i
	}
	for _, rec := range remote {
		if i, ok := byID[id(rec)]; ok {
			merged[i] = rec
			continue
		}
		byID[id(rec)] = len(merged)
		merged = append(merged, rec)
	}
	return merged
}
