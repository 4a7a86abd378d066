// Package store keeps intent source files in a single flat directory. The
// directory listing is the catalog; there is no index or cache.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Ext is the source extension every record carries on disk.
const Ext = ".py"

var (
	ErrNotFound     = errors.New("intent not found")
	ErrExists       = errors.New("intent already exists")
	ErrInvalidName  = errors.New("invalid intent name")
	ErrInvalidParam = errors.New("invalid parameter name")
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NotFoundError reports the file that was looked up.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("intent file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// Param is one user-supplied assignment appended to an intent.
type Param struct {
	Key   string
	Value string
}

// Store is a directory-backed key/value store of intent sources.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the backing directory.
func (s *Store) Dir() string { return s.dir }

// Normalize appends the source extension to a bare name.
func Normalize(name string) string {
	if strings.HasSuffix(name, Ext) {
		return name
	}
	return name + Ext
}

// Path returns the backing file for name after normalization.
func (s *Store) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, Normalize(name)), nil
}

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidName, name)
	}
	return nil
}

// Save writes code under name, creating the directory and truncating any
// existing file.
func (s *Store) Save(name, code string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create intent directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to write intent %s: %w", path, err)
	}
	return nil
}

// Create writes code under name only if no record exists yet.
func (s *Store) Create(name, code string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create intent directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("failed to create intent %s: %w", path, err)
	}
	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return fmt.Errorf("failed to write intent %s: %w", path, err)
	}
	return f.Close()
}

// Read returns the full source of name.
func (s *Store) Read(name string) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Path: path}
		}
		return "", fmt.Errorf("failed to read intent %s: %w", path, err)
	}
	return string(data), nil
}

// Replace overwrites an existing record.
func (s *Store) Replace(name, code string) error {
	path, err := s.existing(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		return fmt.Errorf("failed to write intent %s: %w", path, err)
	}
	return nil
}

// AppendParams appends a comment header and one `key = 'value'` line per
// param, in order. Values are escaped so quotes cannot break the literal.
func (s *Store) AppendParams(name string, params []Param) error {
	path, err := s.existing(name)
	if err != nil {
		return err
	}
	for _, p := range params {
		if !identifier.MatchString(p.Key) {
			return fmt.Errorf("%w: %q", ErrInvalidParam, p.Key)
		}
	}

	var b strings.Builder
	b.WriteString("\n\n# Parameters provided by the user:\n")
	for _, p := range params {
		fmt.Fprintf(&b, "%s = '%s'\n", p.Key, quote(p.Value))
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open intent %s: %w", path, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append parameters to %s: %w", path, err)
	}
	return f.Close()
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

func quote(v string) string { return literalEscaper.Replace(v) }

// Delete removes a record permanently.
func (s *Store) Delete(name string) error {
	path, err := s.existing(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete intent %s: %w", path, err)
	}
	return nil
}

// List returns the filenames of every record, sorted. A missing directory
// yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list intents in %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether name has a backing file.
func (s *Store) Exists(name string) (bool, error) {
	_, err := s.existing(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) existing(name string) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Path: path}
		}
		return "", fmt.Errorf("failed to stat intent %s: %w", path, err)
	}
	return path, nil
}
