package study

// Task lifecycle
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"
)

type TaskType string

const (
	TypeAssignment   TaskType = "ASSIGNMENT"
	TypeExam         TaskType = "EXAM"
	TypeStudySession TaskType = "STUDY_SESSION"
	TypeOther        TaskType = "OTHER"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

type SessionType string

const (
	SessionLecture  SessionType = "LECTURE"
	SessionLab      SessionType = "LAB"
	SessionTutorial SessionType = "TUTORIAL"
)

// DeckGeneral is the courseId sentinel for decks not tied to a course.
const DeckGeneral = "GENERAL"

type TimerMode string

const (
	ModeWork       TimerMode = "WORK"
	ModeShortBreak TimerMode = "SHORT_BREAK"
	ModeLongBreak  TimerMode = "LONG_BREAK"
)

type CourseResource struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Type    string `json:"type"` // LINK | NOTE
	Content string `json:"content,omitempty"`
}

type Course struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Professor  string           `json:"professor"`
	RoomNumber string           `json:"roomNumber"`
	Color      string           `json:"color"` // hex code
	Schedule   string           `json:"schedule,omitempty"`
	Credits    int              `json:"credits"`
	Resources  []CourseResource `json:"resources,omitempty"`
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Task struct {
	ID          string       `json:"id"`
	CourseID    string       `json:"courseId,omitempty"` // empty for general tasks
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	DueDate     string       `json:"dueDate"` // ISO date string
	Status      TaskStatus   `json:"status"`
	Type        TaskType     `json:"type"`
	Priority    TaskPriority `json:"priority,omitempty"`
	Grade       *float64     `json:"grade,omitempty"` // 0-100; only meaningful on completed exams/assignments
	Subtasks    []Subtask    `json:"subtasks,omitempty"`
}

type ClassSession struct {
	ID        string      `json:"id"`
	CourseID  string      `json:"courseId"`
	DayOfWeek int         `json:"dayOfWeek"` // 1 = Monday .. 5 = Friday
	StartTime string      `json:"startTime"` // HH:MM
	EndTime   string      `json:"endTime"`   // HH:MM
	Type      SessionType `json:"type"`
	Room      string      `json:"room,omitempty"`
}

type FlashcardDeck struct {
	ID          string `json:"id"`
	CourseID    string `json:"courseId"` // DeckGeneral if no course
	Title       string `json:"title"`
	LastStudied string `json:"lastStudied,omitempty"`
}

type Flashcard struct {
	ID         string `json:"id"`
	DeckID     string `json:"deckId"`
	Front      string `json:"front"`
	Back       string `json:"back"`
	Confidence int    `json:"confidence"` // 0-5
}

type CourseNote struct {
	ID        string `json:"id"`
	CourseID  string `json:"courseId"`
	Title     string `json:"title"`
	Content   string `json:"content"` // markdown
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Habit struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Streak         int      `json:"streak"`
	CompletedDates []string `json:"completedDates"` // YYYY-MM-DD, newest first
}

type StudySession struct {
	ID       string `json:"id"`
	Date     string `json:"date"`     // ISO string
	Duration int    `json:"duration"` // seconds
	CourseID string `json:"courseId,omitempty"`
}

type StudentProfile struct {
	Name          string  `json:"name"`
	Email         string  `json:"email,omitempty"`
	AvatarURL     string  `json:"avatar_url,omitempty"`
	TargetGPA     float64 `json:"targetGpa"`
	CurrentGPA    float64 `json:"currentGpa"`
	IsDarkMode    bool    `json:"isDarkMode"`
	XP            int     `json:"xp"`
	Level         int     `json:"level"`
	Streak        int     `json:"streak"`
	LastStudyDate string  `json:"lastStudyDate,omitempty"` // ISO string; empty = never
	Role          string  `json:"role,omitempty"`          // student | admin
}

type TimerSettings struct {
	WorkDuration       int `json:"workDuration"` // minutes
	ShortBreakDuration int `json:"shortBreakDuration"`
	LongBreakDuration  int `json:"longBreakDuration"`
}

type TimerState struct {
	Mode     TimerMode     `json:"mode"`
	TimeLeft int           `json:"timeLeft"` // seconds
	IsActive bool          `json:"isActive"`
	Settings TimerSettings `json:"settings"`
}

func DefaultTimerSettings() TimerSettings {
	return TimerSettings{WorkDuration: 25, ShortBreakDuration: 5, LongBreakDuration: 15}
}

func DefaultTimer() TimerState {
	settings := DefaultTimerSettings()
	return TimerState{
		Mode:     ModeWork,
		TimeLeft: settings.WorkDuration * 60,
		Settings: settings,
	}
}

func DefaultProfile() StudentProfile {
	return StudentProfile{
		Name:       "Student",
		TargetGPA:  4.0,
		CurrentGPA: 3.5,
		Level:      1,
	}
}

// State is the whole local state tree, persisted as one unit after every mutation.
type State struct {
	Courses       []Course        `json:"courses"`
	Tasks         []Task          `json:"tasks"`
	Notes         []CourseNote    `json:"notes"`
	Habits        []Habit         `json:"habits"`
	ClassSessions []ClassSession  `json:"classSessions"`
	Decks         []FlashcardDeck `json:"decks"`
	Cards         []Flashcard     `json:"cards"`
	StudySessions []StudySession  `json:"studySessions"`
	Profile       StudentProfile  `json:"profile"`
	Timer         TimerState      `json:"timer"`
}

func defaultState() State {
	return State{
		Profile: DefaultProfile(),
		Timer:   DefaultTimer(),
	}
}

// Snapshot is the user-facing backup format: exactly these five keys.
type Snapshot struct {
	Courses       []Course       `json:"courses"`
	Tasks         []Task         `json:"tasks"`
	Profile       StudentProfile `json:"profile"`
	StudySessions []StudySession `json:"studySessions"`
	Timer         TimerState     `json:"timer"`
}

// ImportBundle carries collections to restore. A nil field is left untouched;
// replacement is last-write-wins at collection granularity, no merge.
type ImportBundle struct {
	Courses       []Course        `json:"courses"`
	Tasks         []Task          `json:"tasks"`
	Notes         []CourseNote    `json:"notes"`
	Habits        []Habit         `json:"habits"`
	ClassSessions []ClassSession  `json:"classSessions"`
	Decks         []FlashcardDeck `json:"decks"`
	Cards         []Flashcard     `json:"cards"`
	StudySessions []StudySession  `json:"studySessions"`
	Profile       *StudentProfile `json:"profile"`
	Timer         *TimerState     `json:"timer"`
}

// Partial updates; nil fields are left as is.

type CourseUpdate struct {
	Name       *string          `json:"name"`
	Professor  *string          `json:"professor"`
	RoomNumber *string          `json:"roomNumber"`
	Color      *string          `json:"color"`
	Schedule   *string          `json:"schedule"`
	Credits    *int             `json:"credits"`
	Resources  []CourseResource `json:"resources"`
}

func (u CourseUpdate) apply(c *Course) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Professor != nil {
		c.Professor = *u.Professor
	}
	if u.RoomNumber != nil {
		c.RoomNumber = *u.RoomNumber
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
	if u.Schedule != nil {
		c.Schedule = *u.Schedule
	}
	if u.Credits != nil {
		c.Credits = *u.Credits
	}
	if u.Resources != nil {
		c.Resources = u.Resources
	}
}

type TaskUpdate struct {
	CourseID    *string       `json:"courseId"`
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	DueDate     *string       `json:"dueDate"`
	Status      *TaskStatus   `json:"status"`
	Type        *TaskType     `json:"type"`
	Priority    *TaskPriority `json:"priority"`
	Grade       *float64      `json:"grade"`
	Subtasks    []Subtask     `json:"subtasks"`
}

func (u TaskUpdate) apply(t *Task) {
	if u.CourseID != nil {
		t.CourseID = *u.CourseID
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.DueDate != nil {
		t.DueDate = *u.DueDate
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Type != nil {
		t.Type = *u.Type
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Grade != nil {
		t.Grade = u.Grade
	}
	if u.Subtasks != nil {
		t.Subtasks = u.Subtasks
	}
}

type NoteUpdate struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	UpdatedAt *string `json:"updatedAt"`
}

func (u NoteUpdate) apply(n *CourseNote) {
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = *u.Content
	}
	if u.UpdatedAt != nil {
		n.UpdatedAt = *u.UpdatedAt
	}
}

type HabitUpdate struct {
	Title *string `json:"title"`
}

func (u HabitUpdate) apply(h *Habit) {
	if u.Title != nil {
		h.Title = *u.Title
	}
}

type ClassSessionUpdate struct {
	CourseID  *string      `json:"courseId"`
	DayOfWeek *int         `json:"dayOfWeek"`
	StartTime *string      `json:"startTime"`
	EndTime   *string      `json:"endTime"`
	Type      *SessionType `json:"type"`
	Room      *string      `json:"room"`
}

func (u ClassSessionUpdate) apply(s *ClassSession) {
	if u.CourseID != nil {
		s.CourseID = *u.CourseID
	}
	if u.DayOfWeek != nil {
		s.DayOfWeek = *u.DayOfWeek
	}
	if u.StartTime != nil {
		s.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		s.EndTime = *u.EndTime
	}
	if u.Type != nil {
		s.Type = *u.Type
	}
	if u.Room != nil {
		s.Room = *u.Room
	}
}

type DeckUpdate struct {
	CourseID    *string `json:"courseId"`
	Title       *string `json:"title"`
	LastStudied *string `json:"lastStudied"`
}

func (u DeckUpdate) apply(d *FlashcardDeck) {
	if u.CourseID != nil {
		d.CourseID = *u.CourseID
	}
	if u.Title != nil {
		d.Title = *u.Title
	}
	if u.LastStudied != nil {
		d.LastStudied = *u.LastStudied
	}
}

type CardUpdate struct {
	Front      *string `json:"front"`
	Back       *string `json:"back"`
	Confidence *int    `json:"confidence"`
}

func (u CardUpdate) apply(c *Flashcard) {
	if u.Front != nil {
		c.Front = *u.Front
	}
	if u.Back != nil {
		c.Back = *u.Back
	}
	if u.Confidence != nil {
		c.Confidence = clampConfidence(*u.Confidence)
	}
}

type ProfileUpdate struct {
	Name       *string  `json:"name"`
	Email      *string  `json:"email"`
	AvatarURL  *string  `json:"avatar_url"`
	TargetGPA  *float64 `json:"targetGpa"`
	CurrentGPA *float64 `json:"currentGpa"`
	IsDarkMode *bool    `json:"isDarkMode"`
}

func (u ProfileUpdate) apply(p *StudentProfile) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	if u.TargetGPA != nil {
		p.TargetGPA = *u.TargetGPA
	}
	if u.CurrentGPA != nil {
		p.CurrentGPA = *u.CurrentGPA
	}
	if u.IsDarkMode != nil {
		p.IsDarkMode = *u.IsDarkMode
	}
}

type TimerSettingsUpdate struct {
	WorkDuration       *int `json:"workDuration"`
	ShortBreakDuration *int `json:"shortBreakDuration"`
	LongBreakDuration  *int `json:"longBreakDuration"`
}

func (u TimerSettingsUpdate) apply(s *TimerSettings) {
	if u.WorkDuration != nil {
		s.WorkDuration = *u.WorkDuration
	}
	if u.ShortBreakDuration != nil {
		s.ShortBreakDuration = *u.ShortBreakDuration
	}
	if u.LongBreakDuration != nil {
		s.LongBreakDuration = *u.LongBreakDuration
	}
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 5 {
		return 5
	}
	return c
}
