package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/wfm-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/wfm-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterConfig struct {
	AppName        string
	Version        string
	Env            string
	AllowedOrigins []string
}

type Handlers struct {
	Auth      AuthHandler
	Tick      TickHandler
	Coverage  CoverageHandler
	Vacancy   VacancyHandler
	WorkerDay WorkerDayHandler
	Events    EventsHandler
}

func NewRouter(JWTService jwt.Service, h Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env == "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.AppName),
		slog.String("version", cfg.Version),
		slog.String("env", cfg.Env),
	)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	// Shop-IP terminals are matched on the client address.
	r.Use(chiMiddleware.RealIP)

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/terminal", h.Auth.TerminalLogin)
			r.With(jwtauth.Verifier(JWTService.JWTAuth()), middleware.AuthRequired(JWTService)).
				Post("/logout", h.Auth.Logout)
		})

		// Stream token travels in the query string
		r.Get("/events/stream", h.Events.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService))

			r.With(chiMiddleware.AllowContentType("application/json", "multipart/form-data")).
				Post("/ticks", h.Tick.Create)

			r.Post("/events/token", h.Events.StreamToken)

			r.Get("/coverage", h.Coverage.Get)

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.AdminOnly)

				r.Put("/forecast", h.Coverage.WriteForecast)
				r.Post("/worker-days/{id}/override", h.WorkerDay.Override)

				r.Route("/vacancies", func(r chi.Router) {
					r.Get("/", h.Vacancy.List)
					r.Post("/run", h.Vacancy.Run)
					r.Post("/{id}/assign", h.Vacancy.Assign)
					r.Post("/{id}/confirm", h.Vacancy.Confirm)
					r.Post("/{id}/cancel", h.Vacancy.Cancel)
				})
			})
		})
	})
	return r
}
