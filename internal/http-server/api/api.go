package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"codegate/internal/config"
	"codegate/internal/http-server/handlers/codes"
	"codegate/internal/http-server/handlers/errors"
	"codegate/internal/http-server/handlers/users"
	"codegate/internal/http-server/middleware/authenticate"
	"codegate/internal/http-server/middleware/timeout"
	"codegate/lib/sl"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

// Handler is the full set of operations the API exposes; satisfied by
// impl/core.
type Handler interface {
	codes.Core
	users.Core
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
		rootApi.Use(authenticate.New(log, conf.Api.Token))
		rootApi.Route("/codes", func(c chi.Router) {
			c.Get("/", codes.List(log, handler))
			c.Post("/", codes.Add(log, handler))
			c.Post("/generate", codes.Generate(log, handler))
			c.Get("/{code}", codes.Status(log, handler))
			c.Delete("/{code}", codes.Delete(log, handler))
			c.Post("/{code}/use", codes.Use(log, handler))
		})
		rootApi.Route("/users", func(u chi.Router) {
			u.Get("/", users.List(log, handler))
			u.Post("/{id}", users.Grant(log, handler))
			u.Delete("/{id}", users.Revoke(log, handler))
		})
		rootApi.Post("/purge", codes.Purge(log, handler))
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
