package dictionary

import (
	"context"
	"sync/atomic"

	"atstailor/internal/errors"
	"atstailor/internal/keywords"
)

// Store holds the active extractor. Reads never block a reload.
type Store struct {
	current atomic.Pointer[keywords.Extractor]
	opts    keywords.Options
	logger  *errors.Logger
}

// NewStore starts with dict, or the built-in dictionary when dict is nil.
func NewStore(dict *keywords.Dictionary, opts keywords.Options, logger *errors.Logger) *Store {
	if logger == nil {
		logger = errors.Discard()
	}
	s := &Store{opts: opts, logger: logger}
	s.current.Store(keywords.NewExtractor(dict, opts))
	return s
}

// Open loads path into a new store. An empty path uses the built-in dictionary.
func Open(path string, opts keywords.Options, logger *errors.Logger) (*Store, error) {
	if path == "" {
		return NewStore(nil, opts, logger), nil
	}
	dict, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(dict, opts, logger), nil
}

func (s *Store) Extract(_ context.Context, text string, limit int) (keywords.Set, error) {
	return s.current.Load().Extract(text, limit), nil
}

func (s *Store) Dictionary() *keywords.Dictionary {
	return s.current.Load().Dictionary()
}

// Swap installs dict.
func (s *Store) Swap(dict *keywords.Dictionary) {
	prev := s.current.Swap(keywords.NewExtractor(dict, s.opts))
	s.logger.Info("dictionary swapped",
		"previous", prev.Dictionary().Fingerprint(),
		"current", dict.Fingerprint())
}

// Reload re-reads path. On error the current dictionary stays active.
func (s *Store) Reload(path string) error {
	dict, err := Load(path)
	if err != nil {
		s.logger.LogError(err, "dictionary reload failed, keeping previous dictionary", "path", path)
		return err
	}
	s.Swap(dict)
	return nil
}
