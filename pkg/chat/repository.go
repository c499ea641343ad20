package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Store is the persisted form of the chat state: session id → session.
type Store map[string]*Session

// PersistenceError indicates that the store file exists but could not be
// read, parsed or validated. A missing file is not an error.
type PersistenceError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PersistenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat store %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("chat store %s: %s", e.Path, e.Reason)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// storeSchema is the expected shape of the persisted store: a mapping from
// session id to session object. Validated on every load so a corrupt or
// foreign file surfaces as PersistenceError instead of silently producing
// broken sessions.
const storeSchema = `{
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["id", "title", "messages"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "title": {"type": "string"},
      "max_tokens": {"type": "integer", "minimum": 0},
      "created_at": {"type": "string"},
      "messages": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["role", "content"],
          "properties": {
            "role": {"enum": ["system", "user", "assistant"]},
            "content": {"type": "string"},
            "created_at": {"type": "string"}
          }
        }
      }
    }
  }
}`

// Repository persists the whole chat store as a single JSON document at a
// fixed path. Semantics are whole-store: no partial or incremental writes.
type Repository struct {
	path   string
	schema *gojsonschema.Schema
}

// NewRepository compiles the store schema and returns a repository bound to
// path. The file does not have to exist yet.
func NewRepository(path string) (*Repository, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(storeSchema))
	if err != nil {
		return nil, fmt.Errorf("compile store schema: %w", err)
	}
	return &Repository{path: path, schema: schema}, nil
}

// Path returns the store file path.
func (r *Repository) Path() string { return r.path }

// LoadAll reads and validates the store. A missing or empty file yields an
// empty store; anything present but invalid yields PersistenceError.
func (r *Repository) LoadAll() (Store, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Store{}, nil
	}
	if err != nil {
		return nil, &PersistenceError{Path: r.path, Reason: "read", Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Store{}, nil
	}

	result, err := r.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, &PersistenceError{Path: r.path, Reason: "not valid JSON", Err: err}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, &PersistenceError{Path: r.path, Reason: "schema violation: " + strings.Join(reasons, "; ")}
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, &PersistenceError{Path: r.path, Reason: "decode", Err: err}
	}
	for id, session := range store {
		if session.ID != id {
			return nil, &PersistenceError{Path: r.path, Reason: fmt.Sprintf("session %q stored under key %q", session.ID, id)}
		}
	}

	log.Debug().Int("sessions", len(store)).Str("path", r.path).Msg("chat store loaded")
	return store, nil
}

// SaveAll writes the whole store, replacing the previous file atomically:
// the document goes to a temp file in the same directory first and is then
// renamed over the target, so a crash mid-write never corrupts the last
// valid store.
func (r *Repository) SaveAll(store Store) error {
	data, err := json.MarshalIndent(store, "", "    ")
	if err != nil {
		return &PersistenceError{Path: r.path, Reason: "encode", Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return &PersistenceError{Path: r.path, Reason: "create store directory", Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".chats-*.json")
	if err != nil {
		return &PersistenceError{Path: r.path, Reason: "create temp file", Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistenceError{Path: r.path, Reason: "write temp file", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &PersistenceError{Path: r.path, Reason: "sync temp file", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: r.path, Reason: "close temp file", Err: err}
	}

	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return &PersistenceError{Path: r.path, Reason: "replace store file", Err: err}
	}

	log.Debug().Int("sessions", len(store)).Str("path", r.path).Msg("chat store saved")
	return nil
}
