// Package manifest resolves logical cache keys to concrete paths. A manifest
// document lists path-spec entries; file specs may hold positional
// placeholders ({0}, {1}, ...) filled in at resolution time, and may chain to
// parent directory entries.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Entry types. Directory entries exist to be referenced as parents; file
// entries are what GetPath resolves.
const (
	EntryTypeDir  = "dir"
	EntryTypeFile = "file"
)

// ErrUnknownKey is returned when a requested key has no manifest entry.
var ErrUnknownKey = errors.New("unknown manifest key")

// Entry is a single path specification inside a manifest document.
type Entry struct {
	Key    string `json:"key" yaml:"key"`
	Type   string `json:"type" yaml:"type"`
	Spec   string `json:"spec" yaml:"spec"`
	Parent string `json:"parent_key,omitempty" yaml:"parent_key,omitempty"`
}

// document is the on-disk shape: a top-level "manifest" key over entries.
type document struct {
	Manifest []Entry `json:"manifest" yaml:"manifest"`
}

// Manifest is an immutable, loaded collection of path specifications rooted
// at the directory holding the manifest file.
type Manifest struct {
	baseDir string
	order   []string
	entries map[string]Entry
	logger  zerolog.Logger
}

var placeholderPattern = regexp.MustCompile(`\{\d+}`)

// Load reads a manifest document. Documents ending in .yaml or .yml parse as
// YAML; everything else parses as JSON. The base directory for relative
// specs is the directory containing the file.
func Load(path string, logger zerolog.Logger) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var doc document
	if isYAMLPath(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	m, err := New(doc.Manifest, filepath.Dir(path), logger)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	m.logger.Debug().Str("path", path).Int("entries", len(doc.Manifest)).Msg("Manifest loaded.")
	return m, nil
}

// New builds a manifest from entries already in memory, rooted at baseDir.
func New(entries []Entry, baseDir string, logger zerolog.Logger) (*Manifest, error) {
	m := &Manifest{
		baseDir: baseDir,
		entries: make(map[string]Entry, len(entries)),
		logger:  logger.With().Str("component", "Manifest").Logger(),
	}
	for _, e := range entries {
		if e.Key == "" {
			return nil, errors.New("manifest entry has an empty key")
		}
		if _, ok := m.entries[e.Key]; ok {
			return nil, fmt.Errorf("duplicate manifest key %q", e.Key)
		}
		m.entries[e.Key] = e
		m.order = append(m.order, e.Key)
	}
	return m, nil
}

// BaseDir returns the directory relative specs resolve against.
func (m *Manifest) BaseDir() string {
	return m.baseDir
}

// Entries returns the path specifications in document order.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.entries[key])
	}
	return out
}

// GetPath resolves a key plus positional format args to a concrete path.
// Placeholders {0}..{n} in the spec are substituted with the corresponding
// args; the resolved spec joins against the parent entry's directory, or the
// base directory when no parent is set. Absolute specs pass through.
func (m *Manifest) GetPath(key string, args ...any) (string, error) {
	return m.resolve(key, args, make(map[string]bool))
}

func (m *Manifest) resolve(key string, args []any, visiting map[string]bool) (string, error) {
	entry, ok := m.entries[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if visiting[key] {
		return "", fmt.Errorf("manifest key %q has a circular parent chain", key)
	}
	visiting[key] = true

	spec, err := substitute(entry.Spec, args)
	if err != nil {
		return "", fmt.Errorf("manifest key %q: %w", key, err)
	}
	if filepath.IsAbs(spec) {
		return spec, nil
	}

	parentDir := m.baseDir
	if entry.Parent != "" {
		// Parent specs take no positional args of their own.
		parentDir, err = m.resolve(entry.Parent, nil, visiting)
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(parentDir, spec), nil
}

func substitute(spec string, args []any) (string, error) {
	out := spec
	for i, arg := range args {
		out = strings.ReplaceAll(out, "{"+strconv.Itoa(i)+"}", fmt.Sprint(arg))
	}
	if unresolved := placeholderPattern.FindString(out); unresolved != "" {
		return "", fmt.Errorf("spec %q needs more args: %s is unresolved", spec, unresolved)
	}
	return out, nil
}

// Write persists entries as a manifest document at path, in YAML or JSON
// depending on the extension. It is what Builder implementations use to lay
// down a default manifest.
func Write(path string, entries []Entry) error {
	doc := document{Manifest: entries}

	var data []byte
	var err error
	if isYAMLPath(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
