package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/ajwiba/internal/models"
	"go.uber.org/zap"
)

// DefaultExtensions are the file types read by a DirSource.
var DefaultExtensions = []string{".md", ".mdx"}

// DirSource lists questions from Markdown files under a directory tree.
// A file's slug is its name without extension unless front matter overrides it.
type DirSource struct {
	dir        string
	extensions []string
	parser     *Parser
	logger     *zap.Logger
}

// Option configures a DirSource.
type Option func(*DirSource)

// WithLogger sets a logger for skipped files.
func WithLogger(l *zap.Logger) Option {
	return func(s *DirSource) { s.logger = l }
}

// WithExtensions overrides DefaultExtensions.
func WithExtensions(exts ...string) Option {
	return func(s *DirSource) {
		if len(exts) > 0 {
			s.extensions = exts
		}
	}
}

// NewDirSource creates a source reading from dir.
func NewDirSource(dir string, opts ...Option) *DirSource {
	s := &DirSource{
		dir:        dir,
		extensions: DefaultExtensions,
		parser:     NewParser(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the root directory.
func (s *DirSource) Dir() string { return s.dir }

// Extensions returns the file extensions read by the source.
func (s *DirSource) Extensions() []string { return s.extensions }

// ListQuestions parses every matching file. Unreadable or malformed files and drafts
// are skipped with a warning; only a failure to walk the directory is an error.
func (s *DirSource) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	var paths []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if MatchExtension(path, s.extensions) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk content dir %s: %w", s.dir, err)
	}
	sort.Strings(paths)

	questions := make([]*models.Question, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		q, draft, err := s.ParseFile(path)
		if err != nil {
			s.logger.Warn("skipping content file", zap.String("path", path), zap.Error(err))
			continue
		}
		if draft {
			s.logger.Debug("skipping draft", zap.String("path", path))
			continue
		}
		questions = append(questions, q)
	}
	return questions, nil
}

// ParseFile reads and parses a single content file.
func (s *DirSource) ParseFile(path string) (*models.Question, bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false, err
	}
	q, draft, err := s.parser.Parse(src, SlugFromPath(path))
	if err != nil {
		return nil, false, err
	}
	q.UpdatedAt = info.ModTime()
	return q, draft, nil
}

// SlugFromPath derives a slug from a file name: the base name without extension, lowercased,
// with spaces and underscores replaced by hyphens. index.md files take their directory name.
func SlugFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.EqualFold(name, "index") {
		name = filepath.Base(filepath.Dir(path))
	}
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(name)
}

// MatchExtension reports whether path has one of exts (case-insensitive, dot optional).
// An empty list matches everything.
func MatchExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range exts {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
