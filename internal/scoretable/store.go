// Package scoretable loads the per-instrument classification tables
// (*_table.jsonc) and keeps them in memory for the classifier.
package scoretable

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
)

// DefaultPattern matches the table files inside the store's file system
const DefaultPattern = "*_table.jsonc"

//go:embed tables/*.jsonc
var embeddedTables embed.FS

// Store reads every table file once and serves them from memory afterwards.
// Files that fail to parse are logged and left out.
type Store struct {
	fsys    fs.FS
	pattern string
	logger  *logrus.Logger

	mu     sync.Mutex
	loaded bool
	tables map[string]*Table
}

// StoreOption customizes a Store
type StoreOption func(*Store)

// WithPattern overrides the glob used to discover table files
func WithPattern(pattern string) StoreOption {
	return func(s *Store) {
		if pattern != "" {
			s.pattern = pattern
		}
	}
}

// NewStore creates a store over an arbitrary file system
func NewStore(fsys fs.FS, logger *logrus.Logger, opts ...StoreOption) *Store {
	s := &Store{
		fsys:    fsys,
		pattern: DefaultPattern,
		logger:  logger,
		tables:  make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDirStore creates a store reading from a directory on disk
func NewDirStore(dir string, logger *logrus.Logger, opts ...StoreOption) *Store {
	return NewStore(os.DirFS(dir), logger, opts...)
}

// NewEmbeddedStore creates a store over the tables shipped with the binary
func NewEmbeddedStore(logger *logrus.Logger, opts ...StoreOption) *Store {
	sub, err := fs.Sub(embeddedTables, "tables")
	if err != nil {
		// fs.Sub only fails on an invalid path literal
		panic(err)
	}
	return NewStore(sub, logger, opts...)
}

// LoadAll returns every table keyed by file name without the _table suffix.
// The first call reads the files; later calls return the cached tables.
func (s *Store) LoadAll() map[string]*Table {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.load()
		s.loaded = true
	}

	out := make(map[string]*Table, len(s.tables))
	for k, v := range s.tables {
		out[k] = v
	}
	return out
}

// Get returns one table, loading the store on first use
func (s *Store) Get(key string) (*Table, bool) {
	tables := s.LoadAll()
	t, ok := tables[key]
	return t, ok
}

// Keys lists the loaded table keys in sorted order
func (s *Store) Keys() []string {
	tables := s.LoadAll()
	keys := make([]string, 0, len(tables))
	for k := range tables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) load() {
	matches, err := doublestar.Glob(s.fsys, s.pattern)
	if err != nil {
		s.logger.WithError(err).WithField("pattern", s.pattern).Warn("Failed to list score tables")
		return
	}

	for _, name := range matches {
		table, err := s.loadFile(name)
		if err != nil {
			s.logger.WithError(err).WithField("file", name).Warn("Skipping score table that failed to parse")
			continue
		}
		s.tables[table.Key] = table
	}

	s.logger.WithFields(logrus.Fields{
		"pattern": s.pattern,
		"tables":  len(s.tables),
	}).Debug("Score tables loaded")
}

func (s *Store) loadFile(name string) (*Table, error) {
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return nil, err
	}

	table := &Table{}
	if err := json.Unmarshal([]byte(StripComments(string(data))), table); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	table.Key = TableKey(name)
	if err := table.Validate(); err != nil {
		s.logger.WithError(err).WithField("file", name).Warn("Score table has a rule set without numeric bounds")
	}
	return table, nil
}

// TableKey derives the lookup key from a file name: wisc_table.jsonc -> wisc
func TableKey(name string) string {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.Replace(stem, "_table", "", 1)
}

// StripComments removes // line comments that appear outside string literals
func StripComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return strings.Join(lines, "\n")
}

func stripLineComment(line string) string {
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == '/' && i+1 < len(line) && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}
