package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
)

// plannerApi serves the local-only collections: weekly schedule, flashcards,
// the pomodoro timer and logged study sessions.
type plannerApi struct {
	store    *study.Store
	validate *validator.Validate
}

func registerPlannerAPI(g *echo.Group, store *study.Store, validate *validator.Validate) {
	api := plannerApi{store: store, validate: validate}

	sg := g.Group("/class-sessions")
	sg.GET("", api.sessionList)
	sg.POST("", api.sessionCreate)
	sg.PATCH("/:id", api.sessionUpdate)
	sg.DELETE("/:id", api.sessionDelete)

	dg := g.Group("/decks")
	dg.GET("", api.deckList)
	dg.POST("", api.deckCreate)
	dg.PATCH("/:id", api.deckUpdate)
	dg.DELETE("/:id", api.deckDelete)

	fg := g.Group("/cards")
	fg.GET("", api.cardList)
	fg.POST("", api.cardCreate)
	fg.PATCH("/:id", api.cardUpdate)
	fg.POST("/:id/confidence", api.cardConfidence)
	fg.DELETE("/:id", api.cardDelete)

	tg := g.Group("/timer")
	tg.GET("", api.timerGet)
	tg.PUT("", api.timerSet)
	tg.POST("/tick", api.timerTick)
	tg.POST("/mode", api.timerMode)
	tg.PATCH("/settings", api.timerSettings)

	g.GET("/study-sessions", api.studySessionList)
	g.POST("/study-sessions", api.studySessionLog)
}

type (
	ClassSessionRequest struct {
		ID        string            `json:"id" validate:"omitempty,uuid4"`
		CourseID  string            `json:"courseId" validate:"required,uuid4"`
		DayOfWeek int               `json:"dayOfWeek" validate:"min=1,max=5"`
		StartTime string            `json:"startTime" validate:"required,clock"`
		EndTime   string            `json:"endTime" validate:"required,clock"`
		Type      study.SessionType `json:"type" validate:"omitempty,oneof=LECTURE LAB TUTORIAL"`
		Room      string            `json:"room"`
	}

	DeckRequest struct {
		ID       string `json:"id" validate:"omitempty,uuid4"`
		CourseID string `json:"courseId"`
		Title    string `json:"title" validate:"required"`
	}

	CardRequest struct {
		ID         string `json:"id" validate:"omitempty,uuid4"`
		DeckID     string `json:"deckId" validate:"required,uuid4"`
		Front      string `json:"front" validate:"required"`
		Back       string `json:"back" validate:"required"`
		Confidence int    `json:"confidence" validate:"min=0,max=5"`
	}

	ConfidenceRequest struct {
		Confidence int `json:"confidence" validate:"min=0,max=5"`
	}

	TimerRequest struct {
		Mode     study.TimerMode     `json:"mode" validate:"required,oneof=WORK SHORT_BREAK LONG_BREAK"`
		TimeLeft int                 `json:"timeLeft" validate:"min=0"`
		IsActive bool                `json:"isActive"`
		Settings study.TimerSettings `json:"settings"`
	}

	TimerModeRequest struct {
		Mode study.TimerMode `json:"mode" validate:"required,oneof=WORK SHORT_BREAK LONG_BREAK"`
	}

	LogSessionRequest struct {
		Duration int    `json:"duration" validate:"min=1"` // seconds
		CourseID string `json:"courseId" validate:"omitempty,uuid4"`
	}
)

// HH:MM strings order lexicographically, so a plain compare works.
func (r ClassSessionRequest) checkTimes() error {
	if r.EndTime <= r.StartTime {
		return core.NewValidationError(
			errors.New("invalid time range"),
			core.FieldError{Field: "endTime", Error: "must be after startTime"},
		)
	}
	return nil
}

func (r ClassSessionRequest) session() study.ClassSession {
	s := study.ClassSession{
		ID:        orNewID(r.ID),
		CourseID:  r.CourseID,
		DayOfWeek: r.DayOfWeek,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Type:      r.Type,
		Room:      r.Room,
	}
	if s.Type == "" {
		s.Type = study.SessionLecture
	}
	return s
}

func (r DeckRequest) deck() study.FlashcardDeck {
	d := study.FlashcardDeck{
		ID:       orNewID(r.ID),
		CourseID: r.CourseID,
		Title:    r.Title,
	}
	if d.CourseID == "" {
		d.CourseID = study.DeckGeneral
	}
	return d
}

func (r CardRequest) card() study.Flashcard {
	return study.Flashcard{
		ID:         orNewID(r.ID),
		DeckID:     r.DeckID,
		Front:      r.Front,
		Back:       r.Back,
		Confidence: r.Confidence,
	}
}

func (r TimerRequest) timer() study.TimerState {
	return study.TimerState{
		Mode:     r.Mode,
		TimeLeft: r.TimeLeft,
		IsActive: r.IsActive,
		Settings: r.Settings,
	}
}

// Class sessions

func (a plannerApi) sessionList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.ClassSessions())
}

func (a plannerApi) sessionCreate(ctx echo.Context) error {
	var req ClassSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	if err := req.checkTimes(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddClassSession(req.session()))
}

func (a plannerApi) sessionUpdate(ctx echo.Context) error {
	var u study.ClassSessionUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	session, ok := a.store.UpdateClassSession(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, session)
}

func (a plannerApi) sessionDelete(ctx echo.Context) error {
	a.store.DeleteClassSession(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// Decks

func (a plannerApi) deckList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Decks())
}

func (a plannerApi) deckCreate(ctx echo.Context) error {
	var req DeckRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddDeck(req.deck()))
}

func (a plannerApi) deckUpdate(ctx echo.Context) error {
	var u study.DeckUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	deck, ok := a.store.UpdateDeck(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, deck)
}

func (a plannerApi) deckDelete(ctx echo.Context) error {
	a.store.DeleteDeck(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// Cards

func (a plannerApi) cardList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Cards())
}

func (a plannerApi) cardCreate(ctx echo.Context) error {
	var req CardRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.AddCard(req.card()))
}

func (a plannerApi) cardUpdate(ctx echo.Context) error {
	var u study.CardUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	card, ok := a.store.UpdateCard(ctx.Param("id"), u)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, card)
}

func (a plannerApi) cardConfidence(ctx echo.Context) error {
	var req ConfidenceRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	card, ok := a.store.UpdateCardConfidence(ctx.Param("id"), req.Confidence)
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, card)
}

func (a plannerApi) cardDelete(ctx echo.Context) error {
	a.store.DeleteCard(ctx.Param("id"))
	return ctx.NoContent(http.StatusNoContent)
}

// Timer

func (a plannerApi) timerGet(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Timer())
}

func (a plannerApi) timerSet(ctx echo.Context) error {
	var req TimerRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a.store.SetTimer(req.timer()))
}

func (a plannerApi) timerTick(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.TickTimer())
}

func (a plannerApi) timerMode(ctx echo.Context) error {
	var req TimerModeRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a.store.SwitchMode(req.Mode))
}

func (a plannerApi) timerSettings(ctx echo.Context) error {
	var u study.TimerSettingsUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a.store.UpdateTimerSettings(u))
}

// Study sessions

func (a plannerApi) studySessionList(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.StudySessions())
}

func (a plannerApi) studySessionLog(ctx echo.Context) error {
	var req LogSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, a.store.LogSession(req.Duration, req.CourseID))
}
