package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BlackishOne/StudySync/core"
	"github.com/BlackishOne/StudySync/core/study"
)

// profileApi serves the student profile, gamification, analytics, backup and
// the pull-reconciliation trigger.
type profileApi struct {
	store    *study.Store
	identity core.Identity
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, store *study.Store, identity core.Identity, validate *validator.Validate) {
	api := profileApi{store: store, identity: identity, validate: validate}

	g.GET("/me", api.me)
	g.GET("/profile", api.profileGet)
	g.PATCH("/profile", api.profileUpdate)
	g.POST("/profile/xp", api.addXP)
	g.GET("/analytics/gpa", api.gpaReport)
	g.GET("/export", api.export)
	g.POST("/import", api.importData)
	g.POST("/sync", api.sync)
}

type (
	XPRequest struct {
		Amount int `json:"amount" validate:"required,min=1"`
	}

	SessionInfo struct {
		LoggedIn bool   `json:"loggedIn"`
		UserID   string `json:"userId,omitempty"`
	}

	CourseGPA struct {
		CourseID string  `json:"courseId"`
		Name     string  `json:"name"`
		Credits  int     `json:"credits"`
		Average  float64 `json:"average"`
		Points   float64 `json:"points"`
		Graded   bool    `json:"graded"`
	}

	GPAReport struct {
		GPA     float64     `json:"gpa"`
		Courses []CourseGPA `json:"courses"`
	}
)

func (a profileApi) me(ctx echo.Context) error {
	uid, err := a.identity.CurrentUserID()
	if err != nil {
		if errors.Cause(err) == core.ErrNoIdentity {
			return ctx.JSON(http.StatusOK, SessionInfo{})
		}
		return err
	}
	return ctx.JSON(http.StatusOK, SessionInfo{LoggedIn: true, UserID: uid})
}

func (a profileApi) profileGet(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Profile())
}

func (a profileApi) profileUpdate(ctx echo.Context) error {
	var u study.ProfileUpdate
	if err := ctx.Bind(&u); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a.store.UpdateProfile(u))
}

func (a profileApi) addXP(ctx echo.Context) error {
	var req XPRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := a.validate.Struct(req); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a.store.AddXP(req.Amount))
}

func (a profileApi) gpaReport(ctx echo.Context) error {
	courses := a.store.Courses()
	tasks := a.store.Tasks()

	report := GPAReport{
		GPA:     study.OverallGPA(courses, tasks),
		Courses: make([]CourseGPA, 0, len(courses)),
	}
	for _, c := range courses {
		avg, ok := study.CourseAverage(c.ID, tasks)
		entry := CourseGPA{
			CourseID: c.ID,
			Name:     c.Name,
			Credits:  c.Credits,
			Graded:   ok,
		}
		if ok {
			entry.Average = avg
			entry.Points = study.GradePoint(avg)
		}
		report.Courses = append(report.Courses, entry)
	}
	return ctx.JSON(http.StatusOK, report)
}

func (a profileApi) export(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, a.store.Export())
}

func (a profileApi) importData(ctx echo.Context) error {
	var bundle study.ImportBundle
	if err := ctx.Bind(&bundle); err != nil {
		return err
	}
	a.store.ImportData(bundle)
	return ctx.NoContent(http.StatusNoContent)
}

func (a profileApi) sync(ctx echo.Context) error {
	if err := a.store.SyncFromCloud(ctx.Request().Context()); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
