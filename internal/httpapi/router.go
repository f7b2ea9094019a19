package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hasna/convo/internal/metrics"
)

// NewRouter wires the API routes, request logging, and the optional
// websocket feed handler.
func NewRouter(svc *Service, wsHandler http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(svc.log))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", svc.handleStatus)

		r.Get("/messages", svc.handleListMessages)
		r.Post("/messages", svc.handleSendMessage)
		r.Post("/messages/read", svc.handleMarkRead)

		r.Get("/sessions", svc.handleListSessions)
		r.Get("/sessions/{id}", svc.handleGetSession)
		r.Post("/sessions/{id}/read", svc.handleMarkSessionRead)

		r.Get("/channels", svc.handleListChannels)
		r.Post("/channels", svc.handleCreateChannel)
		r.Get("/channels/{name}", svc.handleGetChannel)
		r.Get("/channels/{name}/members", svc.handleChannelMembers)
		r.Post("/channels/{name}/join", svc.handleJoinChannel)
		r.Post("/channels/{name}/leave", svc.handleLeaveChannel)
		r.Post("/channels/{name}/read", svc.handleMarkChannelRead)
	})

	r.Handle("/metrics", promhttp.Handler())
	if wsHandler != nil {
		r.Get("/ws", wsHandler)
	}
	return r
}

// requestLogger emits one structured line per request and feeds the
// request counter.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				metrics.HTTPRequestsTotal.WithLabelValues(
					r.Method, r.URL.Path, strconv.Itoa(ww.Status()),
				).Inc()
				log.Info().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", chimw.GetReqID(r.Context())).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
