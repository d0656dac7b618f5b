// Package admin serves the admin surface: sign-in and first-run
// initialization, a JSON API over every configured list, and schema
// introspection. Every route behind the access predicate requires a
// verified session when auth is configured.
package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/shelf-cms/shelf/adapters/metrics"
	"github.com/shelf-cms/shelf/core/engine"
	"github.com/shelf-cms/shelf/core/storage"
	"github.com/shelf-cms/shelf/domain/auth"
	"github.com/shelf-cms/shelf/domain/session"
)

// Server is the admin HTTP surface.
type Server struct {
	engine  *engine.Engine
	metrics *metrics.Collector
	logger  zerolog.Logger
	router  chi.Router
}

// New creates the admin server and mounts all routes.
func New(eng *engine.Engine, m *metrics.Collector, logger zerolog.Logger) *Server {
	s := &Server{
		engine:  eng,
		metrics: m,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(s.logRequests)
	if m != nil {
		r.Use(s.instrument)
	}
	r.Use(s.loadSession)

	r.Get("/healthz", s.handleHealth)

	cfg := eng.Config()
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	if eng.Sessions() != nil {
		r.Get("/signin", s.handleSignInPage)
		r.Post("/signin", s.handleSignIn)
		r.Post("/signout", s.handleSignOut)

		if cfg.Auth != nil && cfg.Auth.InitFirstItem != nil {
			r.Get("/init", s.handleInitPage)
			r.Post("/init", s.handleInit)
		}
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireAccess)

		r.Get("/", s.handleHome)

		r.Route("/api", func(r chi.Router) {
			r.Get("/lists", s.handleListSchemas)
			r.Route("/{list}", func(r chi.Router) {
				r.Get("/", s.handleListItems)
				r.Post("/", s.handleCreateItem)
				r.Get("/{id}", s.handleGetItem)
				r.Patch("/{id}", s.handleUpdateItem)
				r.Delete("/{id}", s.handleDeleteItem)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleSignIn verifies credentials and starts a session.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identity string `json:"identity"`
		Secret   string `json:"secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := auth.ValidateSignIn(auth.SignInRequest{Identity: req.Identity, Secret: req.Secret}); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.engine.Authenticate(r.Context(), req.Identity, req.Secret)
	if err != nil {
		// Uniform response: no hint whether the identity exists.
		writeError(w, http.StatusUnauthorized, "invalid identity or secret")
		return
	}

	if err := s.engine.Sessions().Start(w, *data); err != nil {
		s.logger.Error().Err(err).Msg("start session")
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"item": map[string]any{
			"id":   data.ItemID,
			"list": data.ListKey,
			"data": data.Data,
		},
	})
}

// handleSignOut ends the session. Idempotent.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.engine.Sessions().End(w)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleInit creates the first item in the auth list and signs the
// caller in. Gone once any item exists.
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.engine.InitFirstItem(r.Context(), data)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if err := s.engine.Sessions().Start(w, *sess); err != nil {
		s.logger.Error().Err(err).Msg("start session")
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"item": map[string]any{
			"id":   sess.ItemID,
			"list": sess.ListKey,
			"data": sess.Data,
		},
	})
}

// handleListSchemas exposes the derived schema of every list for the
// admin UI to render forms from.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	var lists []map[string]any
	for _, d := range s.engine.Lists() {
		fields := make([]map[string]any, 0, len(d.Fields))
		for _, f := range d.Fields {
			fields = append(fields, map[string]any{
				"name":       f.Name,
				"kind":       f.Kind,
				"isRequired": f.Validation.IsRequired,
				"index":      f.Index,
				"options":    f.Options,
				"ref":        f.Ref,
				"many":       f.Many,
				"ui":         f.UI,
			})
		}
		lists = append(lists, map[string]any{
			"key":     d.Source.Key,
			"fields":  fields,
			"lookups": d.Lookups,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"lists": lists})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	listKey := chi.URLParam(r, "list")

	opts := storage.ListOptions{Limit: 100}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if v := r.URL.Query().Get("orderBy"); v != "" {
		opts.OrderBy = v
	}
	opts.OrderDesc = r.URL.Query().Get("orderDesc") == "true"

	items, total, err := s.engine.ListItems(r.Context(), listKey, opts)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	listKey := chi.URLParam(r, "list")

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.engine.CreateItem(r.Context(), listKey, data)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	listKey := chi.URLParam(r, "list")
	id := chi.URLParam(r, "id")

	item, err := s.engine.GetItem(r.Context(), listKey, id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	listKey := chi.URLParam(r, "list")
	id := chi.URLParam(r, "id")

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := s.engine.UpdateItem(r.Context(), listKey, id, data)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	listKey := chi.URLParam(r, "list")
	id := chi.URLParam(r, "id")

	if err := s.engine.DeleteItem(r.Context(), listKey, id); err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// writeEngineError maps engine errors to HTTP responses.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	var vErr *engine.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": vErr.Result.Errors,
		})
	case errors.Is(err, engine.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrInitClosed):
		writeError(w, http.StatusGone, "initialization is closed")
	case errors.Is(err, engine.ErrAuthFailed):
		writeError(w, http.StatusUnauthorized, "invalid identity or secret")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// currentSession returns the verified session from the request
// context, or nil.
func currentSession(r *http.Request) *session.Data {
	data, _ := r.Context().Value(sessionKey{}).(*session.Data)
	return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
