package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/search"
	"github.com/hyperjump/ajwiba/internal/storage"
	"go.uber.org/zap"
)

// validSlug accepts lowercase, hyphen-delimited slugs in any script.
var validSlug = regexp.MustCompile(`^[\p{Ll}\p{Lo}\p{N}]+(-[\p{Ll}\p{Lo}\p{N}]+)*$`)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query, err := parseSearchQuery(r)
	if err != nil {
		s.writeSearch(w, query, nil, err)
		return
	}
	s.logger.Debug("search request",
		zap.String("query", query.Query),
		zap.Strings("tags", query.Tags),
		zap.Int("limit", query.Limit),
		zap.Int("offset", query.Offset))
	resp, err := s.service.Search(r.Context(), query)
	s.writeSearch(w, query, resp, err)
}

func (s *Server) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		respondJSON(w, http.StatusBadRequest, models.EmptyResponse("", "invalid request body"))
		return
	}
	resp, err := s.service.Search(r.Context(), &query)
	s.writeSearch(w, &query, resp, err)
}

func (s *Server) writeSearch(w http.ResponseWriter, query *models.SearchQuery, resp *models.SearchResponse, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		w.Header().Set("Cache-Control", "no-store")
		respondJSON(w, http.StatusBadRequest, models.EmptyResponse(query.Query, verr.Error()))
		return
	case err != nil:
		s.logger.Error("search failed", zap.Error(err))
		w.Header().Set("Cache-Control", "no-store")
		respondJSON(w, http.StatusInternalServerError, models.EmptyResponse(query.Query, search.MsgInternalError))
		return
	}

	ttl := int(s.service.CacheTTL().Seconds())
	if ttl > 0 && (resp.Message == "" || resp.Message == search.MsgNoResults) {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", ttl))
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	respondJSON(w, http.StatusOK, resp)
}

// parseSearchQuery reads q, tags (comma-separated or repeated tag), difficulty, limit,
// offset, sortBy and sortOrder from the URL.
func parseSearchQuery(r *http.Request) (*models.SearchQuery, error) {
	v := r.URL.Query()
	query := &models.SearchQuery{
		Query:      v.Get("q"),
		Difficulty: models.Difficulty(v.Get("difficulty")),
		SortBy:     models.SortBy(v.Get("sortBy")),
		SortOrder:  models.SortOrder(v.Get("sortOrder")),
	}
	for _, raw := range v["tags"] {
		query.Tags = append(query.Tags, strings.Split(raw, ",")...)
	}
	query.Tags = append(query.Tags, v["tag"]...)

	var err error
	if query.Limit, err = intParam(v.Get("limit"), "limit"); err != nil {
		return query, err
	}
	if query.Offset, err = intParam(v.Get("offset"), "offset"); err != nil {
		return query, err
	}
	return query, nil
}

func intParam(raw, field string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.ValidationError{Field: field, Message: "must be an integer"}
	}
	return n, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{
		"backend": s.service.BackendName(),
		"cache": map[string]interface{}{
			"entries":    s.service.CacheLen(),
			"ttlSeconds": int(s.service.CacheTTL().Seconds()),
		},
	}
	if s.indexer != nil {
		resp["index"] = s.indexer.Status()
	}
	if s.store != nil {
		count, err := s.store.CountQuestions(ctx)
		if err != nil {
			s.logger.Error("status: count questions failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["questions"] = count
	}

	if s.full != nil {
		resp["config"] = map[string]interface{}{
			"source":        s.full.Content.Source,
			"directory":     s.full.Content.Directory,
			"default_limit": s.full.Search.DefaultLimit,
			"max_limit":     s.full.Search.MaxLimit,
			"query_timeout": s.full.Search.QueryTimeout.String(),
		}
		paths := map[string]string{
			"snapshot": s.full.Storage.SnapshotPath,
		}
		if s.store != nil {
			paths["database"] = s.full.Storage.DatabasePath
		}
		switch s.service.BackendName() {
		case "sqlite":
			paths["fulltext"] = s.full.Storage.FulltextPath
		case "bleve":
			paths["bleve"] = s.full.Storage.BleveIndexPath
		}
		usage, err := storage.MeasureDiskUsage(paths)
		if err == nil {
			resp["disk_usage"] = usage
		} else {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		respondError(w, http.StatusNotImplemented, "indexer not configured")
		return
	}
	s.indexer.Trigger()
	s.logger.Info("reindex requested", zap.String("remote_addr", r.RemoteAddr))
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleUpsertQuestion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "content admin requires the sqlite content source")
		return
	}
	var q models.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q.Slug = strings.TrimSpace(q.Slug)
	if !validSlug.MatchString(q.Slug) {
		respondError(w, http.StatusBadRequest, "slug must be lowercase and hyphen-delimited")
		return
	}
	if _, err := indexer.BuildEntry(&q); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	q.Tags = models.NormalizeTags(q.Tags)
	if d, ok := models.ParseDifficulty(string(q.Difficulty)); ok {
		q.Difficulty = d
	}

	s.logger.Debug("upsert question request", zap.String("slug", q.Slug))
	if err := s.store.UpsertQuestion(r.Context(), &q); err != nil {
		s.logger.Error("upsert question failed", zap.String("slug", q.Slug), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.triggerRebuild()
	respondJSON(w, http.StatusCreated, map[string]string{"slug": q.Slug, "status": "saved"})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "content admin requires the sqlite content source")
		return
	}
	slug := chi.URLParam(r, "slug")
	q, err := s.store.GetQuestion(r.Context(), slug)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		s.logger.Error("get question failed", zap.String("slug", slug), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "content admin requires the sqlite content source")
		return
	}
	slug := chi.URLParam(r, "slug")
	s.logger.Debug("delete question request", zap.String("slug", slug))
	err := s.store.DeleteQuestion(r.Context(), slug)
	if errors.Is(err, storage.ErrNotFound) {
		respondError(w, http.StatusNotFound, "question not found")
		return
	}
	if err != nil {
		s.logger.Error("delete question failed", zap.String("slug", slug), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.triggerRebuild()
	respondJSON(w, http.StatusOK, map[string]string{"slug": slug, "status": "deleted"})
}

func (s *Server) triggerRebuild() {
	if s.indexer != nil {
		s.indexer.Trigger()
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
