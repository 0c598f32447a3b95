// Package identity keeps the participant id of this device in a small file so
// it survives restarts.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/phuslu/log"
	"github.com/spf13/viper"

	"nuha.dev/livetrace/internal/util"
)

const key = "participant_id"

type Store struct {
	log  log.Logger
	path string
}

// Open returns a store backed by path. The extension selects the format
// (.json, .yaml, .toml).
func Open(path string) *Store {
	s := &Store{path: path}
	s.log = log.DefaultLogger
	s.log.Context = log.NewContext(nil).Str("module", "identity").Value()
	return s
}

// ParticipantID returns the stored id, generating and persisting a new one
// on first use.
func (s *Store) ParticipantID() (string, error) {
	v := viper.New()
	v.SetConfigFile(s.path)
	err := v.ReadInConfig()
	switch {
	case err == nil:
		if id := v.GetString(key); id != "" {
			return id, nil
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return "", fmt.Errorf("read identity %s: %w", s.path, err)
	}

	id, err := util.GenUUID()
	if err != nil {
		return "", fmt.Errorf("generate participant id: %w", err)
	}
	v.Set(key, id)
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return "", fmt.Errorf("create identity dir: %w", err)
	}
	if err := v.WriteConfigAs(s.path); err != nil {
		return "", fmt.Errorf("write identity %s: %w", s.path, err)
	}
	s.log.Info().Str("participant", id).Str("file", s.path).Msg("new participant id")
	return id, nil
}
