package study

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BlackishOne/StudySync/core"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type memPersist struct {
	saved *State
	saves int
}

func (p *memPersist) Load() (*State, error) { return p.saved, nil }

// Save keeps a deep copy so later in-place mutations of the live state cannot
// rewrite the recorded snapshot.
func (p *memPersist) Save(s *State) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}
	cp := new(State)
	if err = json.Unmarshal(buf, cp); err != nil {
		return err
	}
	p.saved = cp
	p.saves++
	return nil
}

// fakeSyncer records calls; err (when set) fails every write and fetchErr
// fails FetchAll.
type fakeSyncer struct {
	mu       sync.Mutex
	calls    []string
	fetch    *RemoteData
	fetchErr error
	err      error
}

func (f *fakeSyncer) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, call)
	return nil
}

func (f *fakeSyncer) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSyncer) UpsertCourse(_ context.Context, c Course) error {
	return f.record("upsertCourse:" + c.ID)
}
func (f *fakeSyncer) DeleteCourse(_ context.Context, id string) error {
	return f.record("deleteCourse:" + id)
}
func (f *fakeSyncer) UpsertTask(_ context.Context, t Task) error {
	return f.record("upsertTask:" + t.ID)
}
func (f *fakeSyncer) DeleteTask(_ context.Context, id string) error {
	return f.record("deleteTask:" + id)
}
func (f *fakeSyncer) UpsertNote(_ context.Context, n CourseNote) error {
	return f.record("upsertNote:" + n.ID)
}
func (f *fakeSyncer) DeleteNote(_ context.Context, id string) error {
	return f.record("deleteNote:" + id)
}
func (f *fakeSyncer) UpsertHabit(_ context.Context, h Habit) error {
	return f.record("upsertHabit:" + h.ID)
}
func (f *fakeSyncer) DeleteHabit(_ context.Context, id string) error {
	return f.record("deleteHabit:" + id)
}

func (f *fakeSyncer) FetchAll(context.Context) (*RemoteData, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetch, nil
}

func testConf() *core.Config {
	return &core.Config{Sync: core.SyncConfig{QueueSize: 16, MaxAttempts: 1}}
}

func newTestStore(t *testing.T) (*Store, *memPersist, *fakeSyncer) {
	t.Helper()
	p := &memPersist{}
	fs := &fakeSyncer{}
	s, err := NewStore(p, fs, nopLogger{}, testConf())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return s, p, fs
}

func TestNewStore_restoresSavedState(t *testing.T) {
	p := &memPersist{saved: &State{
		Courses: []Course{{ID: "c1", Name: "Calculus"}},
		Profile: StudentProfile{Name: "Awe", XP: 2500, Level: 1}, // stale level
		Timer:   DefaultTimer(),
	}}
	s, err := NewStore(p, &fakeSyncer{}, nopLogger{}, testConf())
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	if len(s.Courses()) != 1 {
		t.Errorf("Courses() = %v, want the saved course", s.Courses())
	}
	if lvl := s.Profile().Level; lvl != 3 {
		t.Errorf("Profile().Level = %d, want 3 (derived from xp)", lvl)
	}
}

func TestStore_MoveTask_grantsXPOnce(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddTask(Task{ID: "t1", Title: "Read ch. 4", Status: StatusTodo})

	if _, ok := s.MoveTask("t1", StatusCompleted); !ok {
		t.Fatal("MoveTask() ok = false, want true")
	}
	if xp := s.Profile().XP; xp != 50 {
		t.Errorf("XP after completion = %d, want 50", xp)
	}

	// completed -> completed grants nothing
	s.MoveTask("t1", StatusCompleted)
	if xp := s.Profile().XP; xp != 50 {
		t.Errorf("XP after re-completion = %d, want 50", xp)
	}

	// but a round trip through TODO grants again
	s.MoveTask("t1", StatusTodo)
	s.MoveTask("t1", StatusCompleted)
	if xp := s.Profile().XP; xp != 100 {
		t.Errorf("XP after round trip = %d, want 100", xp)
	}

	if _, ok := s.MoveTask("nope", StatusCompleted); ok {
		t.Error("MoveTask(unknown) ok = true, want false")
	}
}

func TestStore_AddXP_levelsUp(t *testing.T) {
	s, _, _ := newTestStore(t)

	p := s.AddXP(999)
	if p.Level != 1 {
		t.Errorf("Level at 999 xp = %d, want 1", p.Level)
	}
	p = s.AddXP(1)
	if p.Level != 2 {
		t.Errorf("Level at 1000 xp = %d, want 2", p.Level)
	}
}

func TestStore_DeleteCourse_cascades(t *testing.T) {
	s, _, fs := newTestStore(t)

	s.AddCourse(Course{ID: "c1", Name: "Calculus"})
	s.AddCourse(Course{ID: "c2", Name: "Physics"})
	s.AddTask(Task{ID: "t1", CourseID: "c1", Title: "Problem set"})
	s.AddTask(Task{ID: "t2", CourseID: "c2", Title: "Lab report"})
	s.AddClassSession(ClassSession{ID: "s1", CourseID: "c1"})
	s.AddClassSession(ClassSession{ID: "s2", CourseID: "c2"})
	s.AddDeck(FlashcardDeck{ID: "d1", CourseID: "c1", Title: "Derivatives"})
	s.AddDeck(FlashcardDeck{ID: "d2", CourseID: DeckGeneral, Title: "Misc"})
	s.AddCard(Flashcard{ID: "f1", DeckID: "d1", Front: "q", Back: "a"})
	s.AddCard(Flashcard{ID: "f2", DeckID: "d2", Front: "q", Back: "a"})

	s.DeleteCourse("c1")

	if got := s.Courses(); len(got) != 1 || got[0].ID != "c2" {
		t.Errorf("Courses() = %v, want only c2", got)
	}
	tasks := s.Tasks()
	if tasks[0].CourseID != "" {
		t.Errorf("task t1 courseId = %q, want cleared", tasks[0].CourseID)
	}
	if tasks[1].CourseID != "c2" {
		t.Errorf("task t2 courseId = %q, want untouched", tasks[1].CourseID)
	}
	if got := s.ClassSessions(); len(got) != 1 || got[0].ID != "s2" {
		t.Errorf("ClassSessions() = %v, want only s2", got)
	}
	if got := s.Decks(); len(got) != 1 || got[0].ID != "d2" {
		t.Errorf("Decks() = %v, want only d2", got)
	}
	if got := s.Cards(); len(got) != 1 || got[0].ID != "f2" {
		t.Errorf("Cards() = %v, want only f2", got)
	}

	// a single delete intent covers the cascade; dependents were never mirrored
	// individually
	if n := len(fs.recorded()); n != 0 {
		t.Errorf("syncer calls before worker start = %d, want 0", n)
	}
	if got := len(s.outbox.queue); got != 5 { // c1, c2, t1, t2 upserts + deleteCourse
		t.Errorf("queued intents = %d, want 5", got)
	}
}

func TestStore_DeleteTask_absentIsNoop(t *testing.T) {
	s, p, _ := newTestStore(t)
	saves := p.saves

	s.DeleteTask("nope")
	if p.saves != saves {
		t.Errorf("saves = %d, want %d (no persist on no-op delete)", p.saves, saves)
	}
}

func TestStore_LogSession(t *testing.T) {
	s, _, _ := newTestStore(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sess := s.LogSession(125, "c1")
	if sess.CourseID != "c1" || sess.Duration != 125 {
		t.Errorf("LogSession() = %+v", sess)
	}
	p := s.Profile()
	if p.XP != 20 { // 2 full minutes
		t.Errorf("XP = %d, want 20", p.XP)
	}
	if p.Streak != 1 {
		t.Errorf("Streak = %d, want 1", p.Streak)
	}
	if p.LastStudyDate != "2024-01-10T15:00:00Z" {
		t.Errorf("LastStudyDate = %q", p.LastStudyDate)
	}

	// same day: streak unchanged
	s.LogSession(60, "")
	if got := s.Profile().Streak; got != 1 {
		t.Errorf("Streak after same-day log = %d, want 1", got)
	}

	// next day: streak advances
	now = now.AddDate(0, 0, 1)
	s.LogSession(60, "")
	if got := s.Profile().Streak; got != 2 {
		t.Errorf("Streak next day = %d, want 2", got)
	}

	// a missed day resets
	now = now.AddDate(0, 0, 2)
	s.LogSession(60, "")
	if got := s.Profile().Streak; got != 1 {
		t.Errorf("Streak after gap = %d, want 1", got)
	}

	if got := len(s.StudySessions()); got != 4 {
		t.Errorf("StudySessions() len = %d, want 4", got)
	}
}

func TestStore_LogSession_sameDayAcrossZones(t *testing.T) {
	s, _, _ := newTestStore(t)
	// local clock past midnight while the UTC day has not rolled over yet
	now := time.Date(2024, 1, 10, 1, 0, 0, 0, time.FixedZone("EET", 2*3600))
	s.now = func() time.Time { return now }

	s.LogSession(60, "")
	s.LogSession(60, "")
	if got := s.Profile().Streak; got != 1 {
		t.Errorf("Streak after same-day double log = %d, want 1", got)
	}
}

func TestStore_persistedSnapshotIsDetached(t *testing.T) {
	s, p, _ := newTestStore(t)
	s.AddCourse(Course{ID: "c1", Name: "Algebra"})
	s.AddCourse(Course{ID: "c2", Name: "Chemistry"})

	snap := p.saved
	s.DeleteCourse("c1")

	if len(snap.Courses) != 2 || snap.Courses[0].ID != "c1" {
		t.Errorf("snapshot courses = %+v, want [c1 c2]", snap.Courses)
	}
}

func TestStore_ToggleHabit(t *testing.T) {
	s, _, _ := newTestStore(t)
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.AddHabit(Habit{ID: "h1", Title: "Review notes", CompletedDates: []string{}})

	h, ok := s.ToggleHabit("h1", "2024-01-10")
	if !ok {
		t.Fatal("ToggleHabit() ok = false, want true")
	}
	if h.Streak != 1 {
		t.Errorf("Streak = %d, want 1", h.Streak)
	}

	h, _ = s.ToggleHabit("h1", "2024-01-09")
	if h.Streak != 2 {
		t.Errorf("Streak = %d, want 2", h.Streak)
	}
	if len(h.CompletedDates) != 2 || h.CompletedDates[0] != "2024-01-10" {
		t.Errorf("CompletedDates = %v, want newest first", h.CompletedDates)
	}

	// toggling today off leaves yesterday's run intact
	h, _ = s.ToggleHabit("h1", "2024-01-10")
	if len(h.CompletedDates) != 1 || h.CompletedDates[0] != "2024-01-09" {
		t.Errorf("CompletedDates = %v, want [2024-01-09]", h.CompletedDates)
	}
	if h.Streak != 1 {
		t.Errorf("Streak = %d, want 1", h.Streak)
	}

	if _, ok = s.ToggleHabit("nope", "2024-01-10"); ok {
		t.Error("ToggleHabit(unknown) ok = true, want false")
	}
}

func TestStore_Timer(t *testing.T) {
	s, _, _ := newTestStore(t)

	tm := s.SwitchMode(ModeShortBreak)
	if tm.Mode != ModeShortBreak || tm.TimeLeft != 5*60 || tm.IsActive {
		t.Errorf("SwitchMode(SHORT_BREAK) = %+v", tm)
	}

	tm = s.SetTimer(TimerState{Mode: ModeWork, TimeLeft: 1, IsActive: true, Settings: DefaultTimerSettings()})
	tm = s.TickTimer()
	if tm.TimeLeft != 0 {
		t.Errorf("TimeLeft after tick = %d, want 0", tm.TimeLeft)
	}
	tm = s.TickTimer() // floored
	if tm.TimeLeft != 0 {
		t.Errorf("TimeLeft after tick at 0 = %d, want 0", tm.TimeLeft)
	}

	tm = s.UpdateTimerSettings(TimerSettingsUpdate{WorkDuration: iptr(50)})
	if tm.Settings.WorkDuration != 50 || tm.Settings.ShortBreakDuration != 5 {
		t.Errorf("UpdateTimerSettings() = %+v", tm.Settings)
	}
	tm = s.SwitchMode(ModeWork)
	if tm.TimeLeft != 50*60 {
		t.Errorf("TimeLeft after switch = %d, want %d", tm.TimeLeft, 50*60)
	}
}

func iptr(i int) *int { return &i }

func TestStore_ImportExport(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddCourse(Course{ID: "c1", Name: "Calculus"})
	s.AddTask(Task{ID: "t1", Title: "Problem set"})
	s.AddNote(CourseNote{ID: "n1", CourseID: "c1", Title: "Week 1"})

	snap := s.Export()
	if len(snap.Courses) != 1 || len(snap.Tasks) != 1 {
		t.Errorf("Export() = %+v", snap)
	}

	// partial bundle: only courses are replaced
	s.ImportData(ImportBundle{Courses: []Course{{ID: "c9", Name: "Physics"}}})
	if got := s.Courses(); len(got) != 1 || got[0].ID != "c9" {
		t.Errorf("Courses() after import = %v, want only c9", got)
	}
	if got := s.Tasks(); len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("Tasks() after import = %v, want untouched", got)
	}
	if got := s.Notes(); len(got) != 1 {
		t.Errorf("Notes() after import = %v, want untouched", got)
	}

	// profile and timer replace only when present
	s.ImportData(ImportBundle{Profile: &StudentProfile{Name: "Awe", XP: 300, Level: 1}})
	if got := s.Profile().Name; got != "Awe" {
		t.Errorf("Profile().Name = %q, want Awe", got)
	}
}

func TestStore_SyncFromCloud_merge(t *testing.T) {
	s, _, fs := newTestStore(t)
	s.AddCourse(Course{ID: "a", Name: "local v1"})
	s.AddCourse(Course{ID: "b", Name: "local only"})

	fs.fetch = &RemoteData{
		Courses: []Course{{ID: "a", Name: "remote v2"}, {ID: "c", Name: "remote only"}},
		Profile: &RemoteProfile{Name: "Awe", Role: "student", XP: 2300, Level: 1, Streak: 7},
	}

	if err := s.SyncFromCloud(context.Background()); err != nil {
		t.Fatalf("SyncFromCloud() failed: %v", err)
	}

	courses := s.Courses()
	ids := make([]string, 0, len(courses))
	byID := make(map[string]Course, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	if byID["a"].Name != "remote v2" {
		t.Errorf("course a = %q, want remote version", byID["a"].Name)
	}
	if byID["b"].Name != "local only" {
		t.Errorf("course b = %q, want kept", byID["b"].Name)
	}

	p := s.Profile()
	if p.Name != "Awe" || p.XP != 2300 || p.Streak != 7 {
		t.Errorf("Profile() = %+v", p)
	}
	if p.Level != 3 { // derived from xp, remote level ignored
		t.Errorf("Profile().Level = %d, want 3", p.Level)
	}
}

func TestStore_SyncFromCloud_notLoggedIn(t *testing.T) {
	s, _, fs := newTestStore(t)
	s.AddCourse(Course{ID: "a", Name: "local"})
	fs.fetchErr = core.ErrNoIdentity

	if err := s.SyncFromCloud(context.Background()); err != nil {
		t.Fatalf("SyncFromCloud() = %v, want nil (not logged in is a no-op)", err)
	}
	if got := s.Courses(); len(got) != 1 || got[0].Name != "local" {
		t.Errorf("Courses() = %v, want untouched", got)
	}
}

func TestStore_SyncFromCloud_fetchError(t *testing.T) {
	s, _, fs := newTestStore(t)
	fs.fetchErr = context.DeadlineExceeded

	if err := s.SyncFromCloud(context.Background()); err == nil {
		t.Error("SyncFromCloud() = nil, want error")
	}
}

func TestStore_PushAll(t *testing.T) {
	s, _, fs := newTestStore(t)
	s.AddCourse(Course{ID: "c1", Name: "Calculus"})
	s.AddTask(Task{ID: "t1", Title: "Problem set"})
	s.AddNote(CourseNote{ID: "n1", CourseID: "c1", Title: "Week 1"})
	s.AddHabit(Habit{ID: "h1", Title: "Review notes"})
	s.AddClassSession(ClassSession{ID: "s1", CourseID: "c1"}) // local-only, never pushed

	if err := s.PushAll(context.Background()); err != nil {
		t.Fatalf("PushAll() failed: %v", err)
	}

	want := []string{"upsertCourse:c1", "upsertTask:t1", "upsertNote:n1", "upsertHabit:h1"}
	assert.ElementsMatch(t, want, fs.recorded())
}

func TestStore_workerMirrorsMutations(t *testing.T) {
	s, _, fs := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	s.AddCourse(Course{ID: "c1", Name: "Calculus"})
	s.AddHabit(Habit{ID: "h1", Title: "Review notes"})
	s.DeleteHabit("h1")

	deadline := time.Now().Add(2 * time.Second)
	for len(fs.recorded()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	s.Wait()

	want := []string{"upsertCourse:c1", "upsertHabit:h1", "deleteHabit:h1"}
	got := fs.recorded()
	if len(got) != len(want) {
		t.Fatalf("syncer calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q (in order)", i, got[i], want[i])
		}
	}
}
