package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/semloc/semloc/internal/bundle"
	"github.com/semloc/semloc/internal/keyword"
	"github.com/semloc/semloc/internal/models"
	"github.com/semloc/semloc/internal/resolve"
)

type resolveRequest struct {
	URL     string   `json:"url"`
	BuildID string   `json:"build_id"`
	Keys    []string `json:"keys,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" || req.BuildID == "" {
		s.respondError(w, http.StatusBadRequest, "url and build_id are required")
		return
	}
	s.logger.Debug("resolve request",
		zap.String("url", req.URL), zap.String("build_id", req.BuildID), zap.Int("keys", len(req.Keys)))

	results, err := s.engine.Resolve(r.Context(), resolve.Request{URL: req.URL, BuildID: req.BuildID, Keys: req.Keys})
	if err != nil {
		s.logger.Error("resolve failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, bundle.New(req.URL, req.BuildID, results))
}

type discoverRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	var req discoverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		s.respondError(w, http.StatusBadRequest, "url is required")
		return
	}
	discoveries, err := s.engine.Discover(r.Context(), req.URL)
	if err != nil {
		s.logger.Error("discover failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"url":         req.URL,
		"discoveries": discoveries,
	})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	stored, err := s.store.ListKeys(r.Context())
	if err != nil {
		s.logger.Error("list keys failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"targets": s.registry.Keys(),
		"stored":  stored,
	})
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	history, err := s.store.History(r.Context(), key, limit)
	if err != nil {
		s.logger.Error("history lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	annotations, err := s.store.Annotations(r.Context(), key)
	if err != nil {
		s.logger.Error("annotations lookup failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(history) == 0 && len(annotations) == 0 {
		s.respondError(w, http.StatusNotFound, "semantic key not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"semantic_key": key,
		"history":      history,
		"annotations":  annotations,
	})
}

type annotateRequest struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind := models.AnnotationKind(req.Kind)
	if kind != models.AnnotationNeverUseStrategy && kind != models.AnnotationBoostKeyword {
		s.respondError(w, http.StatusBadRequest, "kind must be never_use_strategy or boost_keyword")
		return
	}
	if req.Value == "" {
		s.respondError(w, http.StatusBadRequest, "value is required")
		return
	}
	if err := s.engine.Annotate(r.Context(), key, kind, req.Value); err != nil {
		s.logger.Error("annotate failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"semantic_key": key, "status": "annotated"})
}

func (s *Server) handleRevokeAnnotation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.engine.RevokeAnnotation(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			s.respondError(w, http.StatusNotFound, "annotation not found")
			return
		}
		s.logger.Error("revoke failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "revoked"})
}

type correctionRequest struct {
	BuildID       string `json:"build_id"`
	URL           string `json:"url"`
	Selector      string `json:"selector"`
	BlockStrategy string `json:"block_strategy,omitempty"`
	BoostKeyword  string `json:"boost_keyword,omitempty"`
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req correctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, err := s.engine.Correct(r.Context(), resolve.Correction{
		SemanticKey:   key,
		BuildID:       req.BuildID,
		URL:           req.URL,
		Selector:      req.Selector,
		BlockStrategy: models.Strategy(req.BlockStrategy),
		BoostKeyword:  req.BoostKeyword,
	})
	if err != nil {
		switch {
		case errors.Is(err, resolve.ErrSelectorNotUnique):
			s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		case strings.Contains(err.Error(), "required"):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("correction failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	opts := &keyword.SearchOptions{
		Status:       models.Status(r.URL.Query().Get("status")),
		FuzzyEnabled: r.URL.Query().Get("fuzzy") == "true",
	}
	results, err := s.keywords.Search(r.Context(), query, limit, opts)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"query":   query,
		"results": results,
	}
	if s.spell != nil {
		if suggested := s.spell.GetSuggestedQuery(query); suggested != query {
			resp["suggested_query"] = suggested
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Error("status: record count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	keys, err := s.store.ListKeys(ctx)
	if err != nil {
		s.logger.Error("status: key listing failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"records": records,
		"keys":    len(keys),
		"targets": s.registry.Len(),
	}
	if docs, err := s.keywords.DocCount(); err == nil {
		resp["indexed_records"] = docs
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
