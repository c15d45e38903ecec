package userstats

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"groupwarden/entity"
	"groupwarden/lib/api/response"
	"groupwarden/lib/sl"
)

type Core interface {
	UserStats(userId int64) (*entity.InvitationStats, error)
	UserMembers(userId int64, page int) (*entity.MemberPage, error)
}

// Stats serves GET /v1/users/{id}/stats.
func Stats(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.userstats")
		userId := chi.URLParam(r, "id")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", userId),
		)

		if handler == nil {
			log.Error("invite service not available")
			render.JSON(w, r, response.Error("Stats not available"))
			return
		}

		id, err := strconv.ParseInt(userId, 10, 64)
		if err != nil {
			log.Warn("invalid user id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid user id"))
			return
		}

		stats, err := handler.UserStats(id)
		if err != nil {
			log.Error("stats lookup", sl.Err(err))
			render.JSON(w, r, response.Error("Request failed"))
			return
		}

		render.JSON(w, r, response.Ok(stats))
	}
}

// Members serves GET /v1/users/{id}/members?page=N.
func Members(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.userstats")
		userId := chi.URLParam(r, "id")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("user_id", userId),
		)

		if handler == nil {
			log.Error("invite service not available")
			render.JSON(w, r, response.Error("Stats not available"))
			return
		}

		id, err := strconv.ParseInt(userId, 10, 64)
		if err != nil {
			log.Warn("invalid user id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid user id"))
			return
		}

		// out-of-range pages are clamped, not rejected
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			if page, err = strconv.Atoi(p); err != nil {
				log.Warn("invalid page")
				render.Status(r, 400)
				render.JSON(w, r, response.Error("Invalid page"))
				return
			}
		}

		members, err := handler.UserMembers(id, page)
		if err != nil {
			log.Error("members lookup", sl.Err(err))
			render.JSON(w, r, response.Error("Request failed"))
			return
		}

		render.JSON(w, r, response.Ok(members))
	}
}
