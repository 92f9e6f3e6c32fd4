package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/spf13/afero"

	"coloft/internal/auth"
	"coloft/internal/config"
	appLog "coloft/internal/log"
	"coloft/internal/recurrence"
)

// Server previews the generated site and exposes the computed dates as
// JSON. Dates are computed per request so they move with the clock.
type Server struct {
	cfg   *config.Config
	sched *recurrence.Schedule
	fs    afero.Fs
	asOf  func() recurrence.Date
	creds auth.Credentials
	mux   *http.ServeMux

	// Rebuild regenerates the static pages. If nil, /api/rebuild is 404.
	Rebuild func() error
}

// NewServer constructs a new Server. asOf supplies "today"; nil means the
// local calendar day.
func NewServer(cfg *config.Config, sched *recurrence.Schedule, fsys afero.Fs, asOf func() recurrence.Date) *Server {
	if asOf == nil {
		asOf = func() recurrence.Date { return recurrence.FromTime(time.Now()) }
	}
	s := &Server{
		cfg:   cfg,
		sched: sched,
		fs:    fsys,
		asOf:  asOf,
		mux:   http.NewServeMux(),
	}
	if cfg.BasicAuth != nil {
		s.creds = auth.Credentials{Username: cfg.BasicAuth.Username, PasswordHash: cfg.BasicAuth.PasswordHash}
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return requestLog(s.mux)
}

// requireAuth wraps h with HTTP Basic Auth when credentials are
// configured. Without them, h is served as is.
func (s *Server) requireAuth(h http.HandlerFunc) http.HandlerFunc {
	if !s.creds.Enabled() {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !s.creds.Check(u, p) {
			w.Header().Set("WWW-Authenticate", `Basic realm="coloft", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h(w, r)
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

// requestLog tags every request with an X-Request-ID (kept if the client
// sent one) and logs it at debug level.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start).String(),
		)
	})
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("GET /api/events/{id}", s.handleEvent)
	s.mux.HandleFunc("POST /api/rebuild", s.requireAuth(s.handleRebuild))

	// Everything else is the generated site.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) staticFileServer() http.Handler {
	fileServer := http.FileServer(afero.NewHttpFs(s.fs).Dir(s.cfg.OutputDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

type eventJSON struct {
	ID      string                     `json:"id"`
	Name    string                     `json:"name"`
	Rule    string                     `json:"rule"`
	Cadence string                     `json:"cadence"`
	Next    mo.Option[recurrence.Date] `json:"next"`
	Dates   []recurrence.Date          `json:"dates"`
}

type eventsResponse struct {
	AsOf   recurrence.Date `json:"as_of"`
	Events []eventJSON     `json:"events"`
}

// resolveAsOf honors an ?as_of=YYYY-MM-DD override for previewing other
// days.
func (s *Server) resolveAsOf(r *http.Request) (recurrence.Date, error) {
	if q := r.URL.Query().Get("as_of"); q != "" {
		return recurrence.ParseDate(q)
	}
	return s.asOf(), nil
}

func (s *Server) eventJSON(id string, asOf recurrence.Date) (eventJSON, error) {
	entry, ok := s.sched.Entry(id)
	if !ok {
		return eventJSON{}, recurrence.ErrUnknownEvent
	}
	dates, err := s.sched.UpcomingOccurrences(id, asOf)
	if err != nil {
		return eventJSON{}, err
	}
	next := mo.None[recurrence.Date]()
	if len(dates) > 0 {
		next = mo.Some(dates[0])
	}
	return eventJSON{
		ID:      id,
		Name:    entry.Name,
		Rule:    entry.Rule.String(),
		Cadence: entry.Rule.Cadence().String(),
		Next:    next,
		Dates:   dates,
	}, nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.resolveAsOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := eventsResponse{AsOf: asOf, Events: make([]eventJSON, 0, s.sched.Len())}
	for _, id := range s.sched.IDs() {
		ev, err := s.eventJSON(id, asOf)
		if err != nil {
			appLog.Error("failed to compute occurrences", err, "event", id)
			writeError(w, http.StatusInternalServerError, "failed to compute occurrences")
			return
		}
		resp.Events = append(resp.Events, ev)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	asOf, err := s.resolveAsOf(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	ev, err := s.eventJSON(id, asOf)
	switch {
	case errors.Is(err, recurrence.ErrUnknownEvent):
		writeError(w, http.StatusNotFound, "unknown event: "+id)
	case err != nil:
		appLog.Error("failed to compute occurrences", err, "event", id)
		writeError(w, http.StatusInternalServerError, "failed to compute occurrences")
	default:
		writeJSON(w, http.StatusOK, ev)
	}
}

func (s *Server) handleRebuild(w http.ResponseWriter, _ *http.Request) {
	if s.Rebuild == nil {
		writeError(w, http.StatusNotFound, "rebuild not available")
		return
	}
	if err := s.Rebuild(); err != nil {
		appLog.Error("rebuild failed", err)
		writeError(w, http.StatusInternalServerError, "rebuild failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rebuilt"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
