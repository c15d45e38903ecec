package invitations

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"groupwarden/entity"
	"groupwarden/impl/invite"
	"groupwarden/lib/api/response"
	"groupwarden/lib/sl"
)

type Core interface {
	RecomputeInvitation(code string) (*entity.Invitation, error)
}

// Recompute serves POST /v1/invitations/{code}/recompute: rebuilds one
// invitation's counters from its member rows.
func Recompute(logger *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.invitations")
		code := chi.URLParam(r, "code")

		log := logger.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("code", code),
		)

		if handler == nil {
			log.Error("invite service not available")
			render.JSON(w, r, response.Error("Invitations not available"))
			return
		}

		if invite.ParseCode(code) == "" {
			log.Warn("invalid invite code")
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Invalid invite code"))
			return
		}

		inv, err := handler.RecomputeInvitation(code)
		if err != nil {
			log.Error("recompute", sl.Err(err))
			render.JSON(w, r, response.Error("Request failed"))
			return
		}
		if inv == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Invitation not found"))
			return
		}

		log.Info("invitation counters recomputed")
		render.JSON(w, r, response.Ok(inv))
	}
}
