// Package api exposes the intent lifecycle over HTTP.
package api

import (
	"embed"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"intents/internal/intents"
)

//go:embed templates/form.html
var templatesFS embed.FS

var formTemplate = template.Must(template.ParseFS(templatesFS, "templates/form.html"))

// Server routes HTTP requests to an intents.Service.
type Server struct {
	svc    *intents.Service
	router *mux.Router
	log    *zap.Logger
}

// NewServer registers every intent route on a fresh router.
func NewServer(svc *intents.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, router: mux.NewRouter(), log: log}
	s.router.Use(s.logRequests)
	s.setupRoutes()
	return s
}

// Router returns the underlying router so other route groups can be mounted.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.handle("/", s.handleForm, http.MethodGet)
	s.handle("/health", s.handleHealth, http.MethodGet)

	s.handle("/generate", s.handleGenerate, http.MethodPost)
	s.handle("/read_intent", s.handleRead, http.MethodGet)
	s.handle("/delete_intent", s.handleDelete, http.MethodDelete)
	s.handle("/save_edited_code", s.handleSaveEdited, http.MethodPost)
	s.handle("/save_params", s.handleSaveParams, http.MethodPost)
	s.handle("/validate_intent", s.handleValidate, http.MethodGet)
	s.handle("/fix_errors", s.handleFixErrors, http.MethodPost)

	s.handle("/create_intent", s.handleCreate, http.MethodPost)
	s.handle("/intent_status", s.handleStatus, http.MethodGet)
	s.handle("/intent_events", s.handleEvents, http.MethodGet)
}

// handle registers path both with and without a trailing slash.
func (s *Server) handle(path string, h http.HandlerFunc, methods ...string) {
	s.router.HandleFunc(path, h).Methods(methods...)
	if path != "/" && !strings.HasSuffix(path, "/") {
		s.router.HandleFunc(path+"/", h).Methods(methods...)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("🌐 [API] request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
