package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"codegate/entity"
	"codegate/lib/api/response"
	"codegate/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Core defines the access-control operations the user handlers depend on.
type Core interface {
	ListUsers() ([]*entity.AllowedUser, error)
	Grant(userId int64) error
	Revoke(userId int64) error
}

// List returns the allow-list membership.
func List(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.users"))
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := c.ListUsers()
		if err != nil {
			logger.Error("list users", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to list users"))
			return
		}
		render.JSON(w, r, response.Ok(users))
	}
}

// Grant adds a user to the allow-list. Idempotent.
func Grant(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.users"))
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid user ID"))
			return
		}
		if err = c.Grant(userId); err != nil {
			logger.Error("grant user", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to grant user"))
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.Ok(nil))
	}
}

// Revoke removes a user from the allow-list. Idempotent.
func Revoke(log *slog.Logger, c Core) http.HandlerFunc {
	logger := log.With(sl.Module("handlers.users"))
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid user ID"))
			return
		}
		if err = c.Revoke(userId); err != nil {
			logger.Error("revoke user", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("Failed to revoke user"))
			return
		}
		render.JSON(w, r, response.Ok(nil))
	}
}
