// internal/api/server.go
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
	"portal-notifier/internal/producer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CycleRunner runs one dispatch cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (models.DispatchSummary, error)
}

// ReminderScanner runs one reminder scan. Nil disables the scan endpoint.
type ReminderScanner interface {
	Scan(ctx context.Context) (producer.ScanSummary, error)
}

// AuthConfig carries the trigger caller credentials.
type AuthConfig struct {
	TriggerSecret      string
	SchedulerUserAgent string
}

type Server struct {
	auth     AuthConfig
	runner   CycleRunner
	scanner  ReminderScanner
	readyFns []func(ctx context.Context) error
	logger   logger.Logger
}

// NewServer builds the HTTP handler. readyFns are dependency pings surfaced
// on /ready.
func NewServer(auth AuthConfig, runner CycleRunner, scanner ReminderScanner, log logger.Logger, readyFns ...func(ctx context.Context) error) http.Handler {
	s := &Server{
		auth:     auth,
		runner:   runner,
		scanner:  scanner,
		readyFns: readyFns,
		logger:   log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireScheduler)
		r.Post("/internal/dispatch/run", s.runDispatch)
		r.Post("/internal/reminders/scan", s.runScan)
	})

	return r
}

// requireScheduler authenticates the trigger caller: either the shared
// secret as a bearer token, or the recognized scheduler user-agent prefix.
// Nothing is read or written on a rejected call.
func (s *Server) requireScheduler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.callerRecognized(r) {
			next.ServeHTTP(w, r)
			return
		}

		s.logger.Warn("unauthorized trigger call", map[string]interface{}{
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		})
		writeError(w, http.StatusUnauthorized, apperrors.NewUnauthorizedTriggerError("invalid credentials"))
	})
}

func (s *Server) callerRecognized(r *http.Request) bool {
	if s.auth.TriggerSecret != "" {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.auth.TriggerSecret)) == 1 {
				return true
			}
		}
	}
	if s.auth.SchedulerUserAgent != "" &&
		strings.HasPrefix(r.UserAgent(), s.auth.SchedulerUserAgent) {
		return true
	}
	return false
}

// runDispatch triggers one cycle. Any completed cycle, zero-work and locked
// ones included, answers 200 with the summary; only a selection failure is a
// 5xx.
func (s *Server) runDispatch(w http.ResponseWriter, r *http.Request) {
	summary, err := s.runner.RunCycle(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("dispatch cycle failed", nil)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) runScan(w http.ResponseWriter, r *http.Request) {
	if s.scanner == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "reminder scan disabled"})
		return
	}
	summary, err := s.scanner.Scan(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("reminder scan failed", nil)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, fn := range s.readyFns {
		if err := fn(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	var se *apperrors.StandardError
	if e, ok := err.(*apperrors.StandardError); ok {
		se = e
	} else {
		se = &apperrors.StandardError{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		}
	}
	writeJSON(w, status, map[string]interface{}{
		"error":   se.Code,
		"message": se.Message,
		"details": se.Details,
	})
}
