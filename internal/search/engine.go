package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/ajwiba/internal/models"
	"go.uber.org/zap"
)

// Defaults for ServiceOption values left unset.
const (
	DefaultLimit   = 10
	DefaultMaxSize = 50
	DefaultTimeout = 2 * time.Second
)

// Service is the query engine boundary. It validates and guards input, serves repeated
// queries from cache, and turns every backend failure into an empty degraded response.
type Service struct {
	backend      Backend
	cache        *ResultCache
	timeout      time.Duration
	defaultLimit int
	maxLimit     int
	logger       *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for degraded queries and cache events.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithCache enables response caching.
func WithCache(c *ResultCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = d }
}

// WithLimits sets the page size used when none is given and the largest page served.
func WithLimits(defaultLimit, maxLimit int) ServiceOption {
	return func(s *Service) {
		if defaultLimit > 0 {
			s.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// NewService creates a search service over backend.
func NewService(backend Backend, opts ...ServiceOption) *Service {
	s := &Service{
		backend:      backend,
		timeout:      DefaultTimeout,
		defaultLimit: DefaultLimit,
		maxLimit:     DefaultMaxSize,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs query. Only a contract violation (*models.ValidationError) is returned as an
// error; guards, empty results, and backend failures all produce a response.
func (s *Service) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	msg, err := ProcessQuery(query, s.defaultLimit, s.maxLimit)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		resp := models.EmptyResponse(query.Query, msg)
		resp.QueryTime = time.Since(startTime).Milliseconds()
		return resp, nil
	}

	key := query.CacheKey()
	if cached, ok := s.cache.Get(key); ok {
		resp := *cached
		resp.Query = query.Query
		resp.QueryTime = time.Since(startTime).Milliseconds()
		return &resp, nil
	}

	generation := s.cache.Generation()
	page, err := s.run(ctx, query)
	if err != nil {
		s.logger.Warn("search degraded",
			zap.String("backend", s.backend.Name()),
			zap.String("query", query.Query),
			zap.Error(err))
		resp := models.EmptyResponse(query.Query, MsgSearchUnavailable)
		resp.QueryTime = time.Since(startTime).Milliseconds()
		return resp, nil
	}

	for _, item := range page.Items {
		item.Question = HighlightHTML(item.Question, query.Query)
		item.ShortAnswer = HighlightHTML(item.ShortAnswer, query.Query)
	}
	resp := &models.SearchResponse{
		Suggestions: page.Items,
		Query:       query.Query,
		Total:       page.Total,
		HasMore:     query.Offset+query.Limit < page.Total,
		QueryTime:   time.Since(startTime).Milliseconds(),
	}
	if resp.Suggestions == nil {
		resp.Suggestions = []*models.Suggestion{}
	}
	if page.Total == 0 {
		resp.Message = MsgNoResults
	}
	if s.cache != nil && !s.cache.Add(key, resp, generation) {
		s.logger.Debug("index rebuilt during search, result not cached", zap.String("query", query.Query))
	}
	s.logger.Debug("search completed",
		zap.String("backend", s.backend.Name()),
		zap.String("query", query.Query),
		zap.Int("total", resp.Total),
		zap.Int64("took_ms", resp.QueryTime))
	return resp, nil
}

type backendResult struct {
	page *models.ResultPage
	err  error
}

// run calls the backend under the configured timeout. The call runs on its own goroutine
// so a backend that ignores cancellation cannot hold the request past the deadline.
func (s *Service) run(ctx context.Context, query *models.SearchQuery) (*models.ResultPage, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	done := make(chan backendResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- backendResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		page, err := s.backend.Search(ctx, query)
		done <- backendResult{page: page, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, s.backend.Name(), res.err)
		}
		if res.page == nil {
			return &models.ResultPage{Items: []*models.Suggestion{}}, nil
		}
		return res.page, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendUnavailable, s.backend.Name(), ctx.Err())
	}
}

// Invalidate drops all cached responses. It runs after every index rebuild.
func (s *Service) Invalidate() {
	s.cache.Purge()
}

// BackendName returns the name of the active backend.
func (s *Service) BackendName() string {
	return s.backend.Name()
}

// CacheLen returns the number of cached responses.
func (s *Service) CacheLen() int {
	return s.cache.Len()
}

// CacheTTL returns how long successful responses may be reused.
func (s *Service) CacheTTL() time.Duration {
	return s.cache.TTL()
}
