package codes

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"codegate/entity"
	"codegate/impl/core"
	"codegate/lib/api/response"
	"codegate/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Core defines the registry operations the code handlers depend on.
type Core interface {
	AddCode(value string) (*entity.Code, error)
	GenerateCode() (*entity.Code, error)
	DeleteCode(value string) error
	CheckCode(value string) (*entity.Code, error)
	UseCode(value string) error
	ListCodes() ([]*entity.Code, error)
	PurgeExpired() (int64, error)
	Now() time.Time
}

// codeView is a code row with its derived status attached for API consumers.
type codeView struct {
	Code     string            `json:"code"`
	AddedAt  time.Time         `json:"added_at"`
	Used     bool              `json:"used"`
	Status   string            `json:"status"`
	State    entity.CodeState  `json:"state"`
	DaysLeft int               `json:"days_left"`
}

func view(code *entity.Code, now time.Time) codeView {
	status := code.Status(now)
	return codeView{
		Code:     code.Code,
		AddedAt:  code.AddedAt,
		Used:     code.Used,
		Status:   status.Label(),
		State:    status.State,
		DaysLeft: status.DaysLeft,
	}
}

// List returns all codes with derived statuses.
func List(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := c.ListCodes()
		if err != nil {
			logger.Error("list codes", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to list codes"))
			return
		}
		now := c.Now()
		views := make([]codeView, 0, len(codes))
		for _, code := range codes {
			views = append(views, view(code, now))
		}
		render.JSON(w, r, response.Ok(views))
	}
}

// Add registers (or resets) a code from the request body.
func Add(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		req := &entity.Code{}
		if err := render.Bind(r, req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}
		code, err := c.AddCode(req.Code)
		if err != nil {
			logger.Error("add code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to add code"))
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(view(code, c.Now())))
	}
}

// Generate issues a random code.
func Generate(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		code, err := c.GenerateCode()
		if err != nil {
			logger.Error("generate code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to generate code"))
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(view(code, c.Now())))
	}
}

// Status returns a single code with its derived status.
func Status(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		value := chi.URLParam(r, "code")
		code, err := c.CheckCode(value)
		if errors.Is(err, core.ErrCodeNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Code not found"))
			return
		}
		if err != nil {
			logger.Error("check code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to check code"))
			return
		}
		render.JSON(w, r, response.Ok(view(code, c.Now())))
	}
}

// Delete removes a code; a missing code is reported as 404.
func Delete(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		value := chi.URLParam(r, "code")
		err := c.DeleteCode(value)
		if errors.Is(err, core.ErrCodeNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Code not found"))
			return
		}
		if err != nil {
			logger.Error("delete code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to delete code"))
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}

// Use marks a code used after the validity check. The rejection reasons map
// to distinct status codes so clients can tell terminal states apart.
func Use(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		value := chi.URLParam(r, "code")
		err := c.UseCode(value)
		switch {
		case err == nil:
			render.JSON(w, r, response.Ok(nil))
		case errors.Is(err, core.ErrCodeNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("Code not found"))
		case errors.Is(err, core.ErrCodeUsed):
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("Code already used"))
		case errors.Is(err, core.ErrCodeExpired):
			render.Status(r, http.StatusGone)
			render.JSON(w, r, response.Error("Code expired"))
		default:
			logger.Error("use code", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to use code"))
		}
	}
}

// Purge triggers the retention sweep.
func Purge(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.codes"))
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := c.PurgeExpired()
		if err != nil {
			logger.Error("purge codes", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to purge codes"))
			return
		}
		render.JSON(w, r, response.Ok(map[string]int64{"removed": removed}))
	}
}
