// Package statefile persists the whole state tree as a single JSON document,
// replaced atomically on every save (the localStorage analog).
package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/BlackishOne/StudySync/core/study"
)

type Store struct {
	path string
}

var _ study.StatePersistence = (*Store)(nil)

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (*study.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "reading state file")
	}

	var state study.State
	if err = json.Unmarshal(data, &state); err != nil {
		return nil, errors.Wrap(err, "decoding state file")
	}
	return &state, nil
}

// Save serializes the whole tree and replaces the state file via a temp file
// and rename, so a crash mid-write never leaves a truncated tree behind.
func (s *Store) Save(state *study.State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}

	dir := filepath.Dir(s.path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating data dir")
	}

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "writing state")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp state file")
	}
	if err = os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replacing state file")
	}
	return nil
}
