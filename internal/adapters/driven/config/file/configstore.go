package file

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/mailmind/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// DefaultConfigDirName is the directory under the user's home holding config.toml.
const DefaultConfigDirName = ".mailmind"

const fileName = "config.toml"

// ConfigStore keeps settings in a TOML file. Keys use dot notation
// ("embedding.model") in memory and are written back as nested tables.
// Every Set rewrites the file.
type ConfigStore struct {
	path string

	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore opens <configDir>/config.toml, creating configDir with mode
// 0700 if needed. An empty configDir means ~/.mailmind. A missing file is an
// empty config; a file that does not parse is an error.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		configDir = filepath.Join(home, DefaultConfigDirName)
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{path: filepath.Join(configDir, fileName)}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Path() string { return s.path }

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	v, ok := s.values[key]
	s.mu.RUnlock()
	return v, ok
}

func (s *ConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

// GetInt returns key as an int. Whole floats ("384.0") count as ints;
// anything else yields 0.
func (s *ConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	if f, ok := v.(float64); ok {
		if f != math.Trunc(f) {
			return 0
		}
		return int(f)
	}
	n, _ := number(v)
	return int(n)
}

func (s *ConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	n, _ := number(v)
	return n
}

// number widens the numeric types go-toml decodes (and callers may Set) to float64.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush()
}

// flush writes values to disk. s.mu must be held.
func (s *ConfigStore) flush() error {
	doc, err := toml.Marshal(nest(s.values))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return writeFileAtomic(s.path, doc)
}

// Load replaces the in-memory values with the file's contents.
func (s *ConfigStore) Load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		raw, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", s.path, err)
	}

	var tree map[string]any
	if err := toml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", s.path, err)
	}

	values := make(map[string]any)
	flatten(values, "", tree)

	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	return nil
}

// writeFileAtomic replaces path with data through a 0600 temp file in the
// same directory, so a crash never leaves a truncated config behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0o600)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// flatten copies tree into dst with dotted keys: {"a": {"b": 1}} becomes {"a.b": 1}.
func flatten(dst map[string]any, prefix string, tree map[string]any) {
	for k, v := range tree {
		if prefix != "" {
			k = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(dst, k, sub)
			continue
		}
		dst[k] = v
	}
}

// nest is the inverse of flatten. A key under a prefix that already holds a
// scalar keeps its dotted form.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// A prefix sorts before its sub-keys, so scalars are placed first.
	slices.Sort(keys)

	root := make(map[string]any)
	for _, k := range keys {
		if table, leaf := descend(root, k); table != nil {
			table[leaf] = flat[k]
		} else {
			root[k] = flat[k]
		}
	}
	return root
}

// descend walks root along the dotted key, creating tables as it goes, and
// returns the table that should hold the last segment. It returns nil when a
// segment is already taken by a scalar.
func descend(root map[string]any, key string) (map[string]any, string) {
	parts := strings.Split(key, ".")
	table := root
	for _, p := range parts[:len(parts)-1] {
		switch child := table[p].(type) {
		case nil:
			next := make(map[string]any)
			table[p] = next
			table = next
		case map[string]any:
			table = child
		default:
			return nil, ""
		}
	}
	return table, parts[len(parts)-1]
}
