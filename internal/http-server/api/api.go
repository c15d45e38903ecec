package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"groupwarden/internal/config"
	"groupwarden/internal/http-server/handlers/errors"
	"groupwarden/internal/http-server/handlers/invitations"
	"groupwarden/internal/http-server/handlers/ranking"
	"groupwarden/internal/http-server/handlers/userstats"
	"groupwarden/internal/http-server/middleware/authenticate"
	"groupwarden/internal/http-server/middleware/timeout"
	"groupwarden/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	ranking.Core
	userstats.Core
	invitations.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(5))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Route("/v1", func(rootApi chi.Router) {
		rootApi.Use(authenticate.New(log, handler))
		rootApi.Route("/rankings", func(rk chi.Router) {
			rk.Get("/{kind}", ranking.List(log, handler))
			rk.Get("/{kind}/users/{id}", ranking.Position(log, handler))
		})
		rootApi.Route("/users", func(us chi.Router) {
			us.Get("/{id}/stats", userstats.Stats(log, handler))
			us.Get("/{id}/members", userstats.Members(log, handler))
		})
		rootApi.Post("/invitations/{code}/recompute", invitations.Recompute(log, handler))
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:      router,
		ErrorLog:     httpLog,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIp, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
