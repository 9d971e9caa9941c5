package roster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// FileName is the roster document inside the data directory.
const FileName = "data.json"

// FileStore persists the roster as a single JSON document.
type FileStore struct {
	dir  string
	path string
}

// NewFileStore returns a store writing <dataPath>/data.json.
func NewFileStore(dataPath string) *FileStore {
	dir := strings.TrimSpace(dataPath)
	if dir == "" {
		dir = "."
	}
	dir = filepath.Clean(dir)
	return &FileStore{dir: dir, path: filepath.Join(dir, FileName)}
}

// Path returns the roster file location.
func (s *FileStore) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Load reads the roster. A missing file is created empty.
func (s *FileStore) Load(ctx context.Context) ([]User, error) {
	if s == nil {
		return nil, errors.New("roster: file store not initialized")
	}
	log.Infof("Loading Users from file: %s", s.path)
	data, errRead := os.ReadFile(s.path)
	if errRead != nil {
		if !errors.Is(errRead, os.ErrNotExist) {
			return nil, fmt.Errorf("roster: read %s: %w", s.path, errRead)
		}
		if errMkdir := os.MkdirAll(s.dir, 0o755); errMkdir != nil {
			return nil, fmt.Errorf("roster: create data dir: %w", errMkdir)
		}
		if errWrite := os.WriteFile(s.path, []byte("[]"), 0o644); errWrite != nil {
			return nil, fmt.Errorf("roster: create %s: %w", s.path, errWrite)
		}
		return []User{}, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []User{}, nil
	}
	var users []User
	if errUnmarshal := json.Unmarshal(data, &users); errUnmarshal != nil {
		return nil, fmt.Errorf("roster: parse %s: %w", s.path, errUnmarshal)
	}
	return users, nil
}

// Save rewrites the roster document via a temp file and rename.
func (s *FileStore) Save(ctx context.Context, users []User) error {
	if s == nil {
		return errors.New("roster: file store not initialized")
	}
	if users == nil {
		users = []User{}
	}
	log.Infof("Saving Users to file: %s", s.path)
	raw, errMarshal := json.Marshal(users)
	if errMarshal != nil {
		return fmt.Errorf("roster: encode users: %w", errMarshal)
	}
	formatted, errFormat := FormatDocument(raw)
	if errFormat != nil {
		return errFormat
	}

	if errMkdir := os.MkdirAll(s.dir, 0o755); errMkdir != nil {
		return fmt.Errorf("roster: create data dir: %w", errMkdir)
	}
	tmp, errTemp := os.CreateTemp(s.dir, FileName+".*.tmp")
	if errTemp != nil {
		return fmt.Errorf("roster: create temp file: %w", errTemp)
	}
	tmpName := tmp.Name()
	if _, errWrite := tmp.Write(formatted); errWrite != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("roster: write temp file: %w", errWrite)
	}
	if errClose := tmp.Close(); errClose != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("roster: close temp file: %w", errClose)
	}
	if errRename := os.Rename(tmpName, s.path); errRename != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("roster: replace %s: %w", s.path, errRename)
	}
	return nil
}

// FormatDocument pretty-prints JSON with two-space indentation while keeping
// arrays of scalars on a single line, e.g. "autoBookingDesksId": [42, -1, -1].
func FormatDocument(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	w := &documentWriter{dec: dec}
	tok, errTok := dec.Token()
	if errTok != nil {
		return nil, fmt.Errorf("roster: format document: %w", errTok)
	}
	if errValue := w.value(tok, 0); errValue != nil {
		return nil, fmt.Errorf("roster: format document: %w", errValue)
	}
	if _, errTail := dec.Token(); !errors.Is(errTail, io.EOF) {
		return nil, errors.New("roster: format document: trailing data")
	}
	return w.buf.Bytes(), nil
}

type documentWriter struct {
	dec *json.Decoder
	buf bytes.Buffer
}

func (w *documentWriter) value(tok json.Token, depth int) error {
	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return w.scalar(tok)
	}
	switch delim {
	case '{':
		return w.object(depth)
	case '[':
		return w.array(depth)
	}
	return fmt.Errorf("unexpected delimiter %q", delim)
}

func (w *documentWriter) scalar(tok json.Token) error {
	encoded, errMarshal := json.Marshal(tok)
	if errMarshal != nil {
		return errMarshal
	}
	w.buf.Write(encoded)
	return nil
}

func (w *documentWriter) newline(depth int) {
	w.buf.WriteByte('\n')
	w.buf.WriteString(strings.Repeat("  ", depth))
}

func (w *documentWriter) object(depth int) error {
	w.buf.WriteByte('{')
	count := 0
	for w.dec.More() {
		key, errKey := w.dec.Token()
		if errKey != nil {
			return errKey
		}
		if count > 0 {
			w.buf.WriteByte(',')
		}
		w.newline(depth + 1)
		if errScalar := w.scalar(key); errScalar != nil {
			return errScalar
		}
		w.buf.WriteString(": ")
		tok, errTok := w.dec.Token()
		if errTok != nil {
			return errTok
		}
		if errValue := w.value(tok, depth+1); errValue != nil {
			return errValue
		}
		count++
	}
	if _, errEnd := w.dec.Token(); errEnd != nil {
		return errEnd
	}
	if count > 0 {
		w.newline(depth)
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *documentWriter) array(depth int) error {
	var elems []json.Token
	for w.dec.More() {
		tok, errTok := w.dec.Token()
		if errTok != nil {
			return errTok
		}
		if _, isDelim := tok.(json.Delim); isDelim {
			return w.blockArray(elems, tok, depth)
		}
		elems = append(elems, tok)
	}
	if _, errEnd := w.dec.Token(); errEnd != nil {
		return errEnd
	}
	w.buf.WriteByte('[')
	for i, elem := range elems {
		if i > 0 {
			w.buf.WriteString(", ")
		}
		if errScalar := w.scalar(elem); errScalar != nil {
			return errScalar
		}
	}
	w.buf.WriteByte(']')
	return nil
}

// blockArray finishes an array containing a nested value, one element per line.
func (w *documentWriter) blockArray(scalars []json.Token, nested json.Token, depth int) error {
	w.buf.WriteByte('[')
	count := 0
	emit := func(tok json.Token) error {
		if count > 0 {
			w.buf.WriteByte(',')
		}
		w.newline(depth + 1)
		count++
		return w.value(tok, depth+1)
	}
	for _, tok := range scalars {
		if errEmit := emit(tok); errEmit != nil {
			return errEmit
		}
	}
	if errEmit := emit(nested); errEmit != nil {
		return errEmit
	}
	for w.dec.More() {
		tok, errTok := w.dec.Token()
		if errTok != nil {
			return errTok
		}
		if errEmit := emit(tok); errEmit != nil {
			return errEmit
		}
	}
	if _, errEnd := w.dec.Token(); errEnd != nil {
		return errEnd
	}
	w.newline(depth)
	w.buf.WriteByte(']')
	return nil
}
