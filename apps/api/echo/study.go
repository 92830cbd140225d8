package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/BlackishOne/StudySync/core/study"
)

// studyApi serves the synced collections: courses, tasks, notes and habits.
type studyApi struct {
	store    *study.Store
	validate *validator.Validate
}

func registerStudyAPI(g *echo.Group, store *study.Store, validate *validator.Validate) {
	api := studyApi{store: store, validate: validate}

	cg := g.Group("/courses")
	cg.GET("", api.courseList)
	cg.POST("", api.courseCreate)
	cg.PATCH("/:id", api.courseUpdate)
	cg.DELETE("/:id", api.courseDelete)

	tg := g.Group("/tasks")
	tg.GET("", api.taskList)
	tg.POST("", api.taskCreate)
	tg.PATCH("/:id", api.taskUpdate)
	tg.POST("/:id/move", api.taskMove)
	tg.DELETE("/:id", api.taskDelete)

	ng := g.Group("/notes")
	ng.GET("", api.noteList)
	ng.POST("", api.noteCreate)
	ng.PATCH("/:id", api.noteUpdate)
	ng.DELETE("/:id", api.noteDelete)

	hg := g.Group("/habits")
	hg.GET("", api.habitList)
	hg.POST("", api.habitCreate)
	hg.PATCH("/:id", api.habitUpdate)
	hg.POST("/:id/toggle", api.habitToggle)
	hg.DELETE("/:id", api.habitDelete)
}

// orNewID keeps a client-generated id (offline-first clients mint their own)
// or mints one.
func orNewID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

type (
	CourseRequest struct {
		ID         string                 `json:"id" validate:"omitempty,uuid4"`
		Name       string                 `json:"name" validate:"required"`
		Professor  string                 `json:"professor"`
		RoomNumber string                 `json:"roomNumber"`
		Color      string                 `json:"color" validate:"omitempty,hexcolor"`
		Schedule   string                 `json:"schedule"`
		Credits    int                    `json:"credits" validate:"min=1,max=10"`
		Resources  []study.CourseResource `json:"resources"`
	}

	TaskRequest struct {
		ID          string             `json:"id" validate:"omitempty,uuid4"`
		CourseID    string             `json:"courseId" validate:"omitempty,uuid4"`
		Title       string             `json:"title" validate:"required"`
		Description string             `json:"description"`
		DueDate     string             `json:"dueDate"`
		Status      study.TaskStatus   `json:"status" validate:"omitempty,oneof=TODO IN_PROGRESS COMPLETED"`
		Type        study.TaskType     `json:"type" validate:"omitempty,oneof=ASSIGNMENT EXAM STUDY_SESSION OTHER"`
		Priority    study.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
		Grade       *float64           `json:"grade" validate:"omitempty,min=0,max=100"`
		Subtasks    []study.Subtask    `json:"subtasks"`
	}

	MoveTaskRequest struct {
		Status study.TaskStatus `json:"status" validate:"required,oneof=TODO IN_PROGRESS COMPLETED"`
	}

	NoteRequest struct {
		ID       string `json:"id" validate:"omitempty,uuid4"`
		CourseID string `json:"courseId" validate:"required,uuid4"`
		Title    string `json:"title" validate:"required"`
		Content  string `json:"content"`
	}

	HabitRequest struct {
		ID    string `json:"id" validate:"omitempty,uuid4"`
		Title string `json:"title" validate:"required"`
	}

	ToggleHabitRequest struct {
		Date string `json:"date" validate:"required,day"`
	}
)

func (r CourseRequest) course() study.Course {
	return study.Course{
		ID:         orNewID(r.ID),
		Name:       r.Name,
		Professor:  r.Professor,
		RoomNumber: r.RoomNumber,
		Color:      r.Color,
		Schedule:   r.Schedule,
		Credits:    r.Credits,
		Resources:  r.Resources,
	}
}

func (r TaskRequest) task() study.Task {
	t := study.Task{
		ID:          orNewID(r.ID),
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Status:      r.Status,
		Type:        r.Type,
		Priority:    r.Priority,
		Grade:       r.Grade,
		Subtasks:    r.Subtasks,
	}
	if t.Status == "" {
		t.Status = study.StatusTodo
	}
	if t.Type == "" {
		t.Type = study.TypeOther
	}
	if t.Priority == "" {
		t.Priority = study.PriorityMedium
	}
	return t
}

func (r NoteRequest) note(now time.Time) study.CourseNote {
	ts := now.UTC().Format(time.RFC3339)
	return study.CourseNote{
		ID:        orNewID(r.ID),
		CourseID:  r.CourseID,
		Title:     r.Title,
		Content:   r.Content,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func (r HabitRequest) habit() study.Habit {
	return study.Habit{
		ID:             orNewID(r.ID),
		Title:          r.Title,
		CompletedDates: []string{},
	}
}

// Courses

func (a studyApi) courseList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Courses())
}

func (a studyApi) courseCreate(ctx echo.Context) error {
	var req CourseRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddCourse(req.course()))
}

func (a studyApi) courseUpdate(ctx echo.Context) error {
	var u study.CourseUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	course, ok := a.store.UpdateCourse(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, course)
}

func (a studyApi) courseDelete(ctx echo.Context) error {
	a.store.DeleteCourse(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// Tasks

func (a studyApi) taskList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Tasks())
}

func (a studyApi) taskCreate(ctx echo.Context) error {
	var req TaskRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddTask(req.task()))
}

func (a studyApi) taskUpdate(ctx echo.Context) error {
	var u study.TaskUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	task, ok := a.store.UpdateTask(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, task)
}

func (a studyApi) taskMove(ctx echo.Context) error {
	var req MoveTaskRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	task, ok := a.store.MoveTask(ctx.Param("id"), req.Status)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, task)
}

func (a studyApi) taskDelete(ctx echo.Context) error {
	a.store.DeleteTask(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// Notes

func (a studyApi) noteList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Notes())
}

func (a studyApi) noteCreate(ctx echo.Context) error {
	var req NoteRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddNote(req.note(time.Now())))
}

func (a studyApi) noteUpdate(ctx echo.Context) error {
	var u study.NoteUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	if u.UpdatedAt == nil {
		ts := time.Now().UTC().Format(time.RFC3339)
		u.UpdatedAt = &ts
	}
	note, ok := a.store.UpdateNote(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, note)
}

func (a studyApi) noteDelete(ctx echo.Context) error {
	a.store.DeleteNote(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// Habits

func (a studyApi) habitList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Habits())
}

func (a studyApi) habitCreate(ctx echo.Context) error {
	var req HabitRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddHabit(req.habit()))
}

func (a studyApi) habitUpdate(ctx echo.Context) error {
	var u study.HabitUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	habit, ok := a.store.UpdateHabit(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, habit)
}

func (a studyApi) habitToggle(ctx echo.Context) error {
	var req ToggleHabitRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	habit, ok := a.store.ToggleHabit(ctx.Param("id"), req.Date)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, habit)
}

func (a studyApi) habitDelete(ctx echo.Context) error {
	a.store.DeleteHabit(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}
