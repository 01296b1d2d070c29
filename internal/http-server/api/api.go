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

	"vatbill/internal/config"
	"vatbill/internal/http-server/handlers/errors"
	"vatbill/internal/http-server/handlers/invoice"
	"vatbill/internal/http-server/handlers/stripehandler"
	"vatbill/internal/http-server/middleware/authenticate"
	"vatbill/internal/http-server/middleware/timeout"
	"vatbill/lib/api/response"
	"vatbill/lib/sl"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	authenticate.Authenticate
	invoice.Core
	stripehandler.Core
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

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, response.Ok(nil))
	})

	router.Route("/invoices", func(inv chi.Router) {
		inv.Use(authenticate.New(log, handler))
		inv.Post("/", invoice.Create(log, handler))
		inv.Get("/", invoice.List(log, handler))
		inv.Get("/summary", invoice.Summary(log, handler))
		inv.Post("/{id}/pay", invoice.Pay(log, handler))
	})
	router.Route("/webhook", func(rootWH chi.Router) {
		rootWH.Post("/event", stripehandler.Event(log, handler))
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
