package ranking

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
	Ranking(kind entity.RankingKind) ([]entity.RankEntry, error)
	Position(kind entity.RankingKind, userId int64) (*entity.RankPosition, error)
}

// List serves GET /v1/rankings/{kind}.
func List(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.ranking")
		kind := entity.RankingKind(chi.URLParam(r, "kind"))

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("kind", string(kind)),
		)

		if handler == nil {
			log.Error("stats service not available")
			render.JSON(w, r, response.Error("Rankings not available"))
			return
		}

		if !kind.Valid() {
			log.Warn("invalid ranking kind")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid ranking kind"))
			return
		}

		entries, err := handler.Ranking(kind)
		if err != nil {
			log.Error("ranking lookup", sl.Err(err))
			render.JSON(w, r, response.Error("Request failed"))
			return
		}

		render.JSON(w, r, response.Ok(entries))
	}
}

// Position serves GET /v1/rankings/{kind}/users/{id}.
func Position(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.ranking")
		kind := entity.RankingKind(chi.URLParam(r, "kind"))
		userId := chi.URLParam(r, "id")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("kind", string(kind)),
			slog.String("user_id", userId),
		)

		if handler == nil {
			log.Error("stats service not available")
			render.JSON(w, r, response.Error("Rankings not available"))
			return
		}

		if !kind.Valid() {
			log.Warn("invalid ranking kind")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid ranking kind"))
			return
		}

		id, err := strconv.ParseInt(userId, 10, 64)
		if err != nil {
			log.Warn("invalid user id")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid user id"))
			return
		}

		pos, err := handler.Position(kind, id)
		if err != nil {
			log.Error("position lookup", sl.Err(err))
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		if pos == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("User not ranked"))
			return
		}

		render.JSON(w, r, response.Ok(pos))
	}
}
