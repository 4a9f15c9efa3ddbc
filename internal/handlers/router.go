package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter mounts the shift API and the Slack slash command endpoint.
func NewRouter(shifts *ShiftHandler, slackHandler *SlackHandler, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))

	r.Get("/health", shifts.HandleHealth)
	r.Get("/status", shifts.HandleStatus)

	r.Route("/shifts", func(r chi.Router) {
		r.Post("/", shifts.HandleSubmit)
		r.Delete("/", shifts.HandleClear)
	})

	if slackHandler != nil {
		r.Post("/slack/commands", slackHandler.HandleSlashCommand)
	}

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	log = log.With().Str("comp", "http").Logger()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("took", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
