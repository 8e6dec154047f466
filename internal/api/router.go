// Package api is the REST backend used by web clients: voices, background
// tracks, meditation generation and group activities.
package api

import (
	"context"
	"net/http"
	"time"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/meditation"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ActivityStore interface {
	CreateActivity(ctx context.Context, a activity.Activity, maxParticipants int) error
	ListActivities(ctx context.Context) ([]activity.Activity, error)
	GetActivity(ctx context.Context, id string) (activity.Activity, error)
	GetRoster(ctx context.Context, id string) (activity.Roster, error)
	Join(ctx context.Context, id string, m activity.Member) (activity.Roster, error)
	Leave(ctx context.Context, id string, userID int64) (activity.Roster, error)
	Cancel(ctx context.Context, id string, organizerID int64) (activity.Roster, error)
}

type Handler struct {
	service    *meditation.Service
	activities ActivityStore
	logger     *zap.Logger
}

func NewRouter(service *meditation.Service, activities ActivityStore, logger *zap.Logger) *mux.Router {
	h := &Handler{service: service, activities: activities, logger: logger}

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))
	r.HandleFunc("/health", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/voices", h.ListVoices).Methods("GET")
	api.HandleFunc("/users/{userID}/backgrounds", h.ListBackgrounds).Methods("GET")
	api.HandleFunc("/backgrounds", h.UploadBackground).Methods("POST")
	api.HandleFunc("/backgrounds/{id}", h.DeleteBackground).Methods("DELETE")
	api.HandleFunc("/meditations/text", h.GenerateText).Methods("POST")
	api.HandleFunc("/meditations/audio", h.GenerateAudio).Methods("POST")

	api.HandleFunc("/activities", h.ListActivities).Methods("GET")
	api.HandleFunc("/activities", h.CreateActivity).Methods("POST")
	api.HandleFunc("/activities/{id}", h.GetActivity).Methods("GET")
	api.HandleFunc("/activities/{id}/join", h.JoinActivity).Methods("POST")
	api.HandleFunc("/activities/{id}/leave", h.LeaveActivity).Methods("POST")
	api.HandleFunc("/activities/{id}/cancel", h.CancelActivity).Methods("POST")
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
