// Package dictionary loads keyword dictionaries from YAML files and keeps the
// active one hot-swappable.
package dictionary

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"atstailor/internal/errors"
	"atstailor/internal/keywords"
)

// Mode says how a file combines with the built-in lists.
type Mode string

const (
	// ModeMerge appends the file's entries to the built-in lists.
	ModeMerge Mode = "merge"
	// ModeReplace swaps every list the file names; lists it omits stay built-in.
	ModeReplace Mode = "replace"
)

// File is the on-disk dictionary format.
type File struct {
	Mode           Mode `yaml:"mode"`
	keywords.Lists `yaml:",inline"`
}

// Load reads and parses a dictionary file.
func Load(path string) (*keywords.Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound, "dictionary file not found", err).
				WithContext("path", path)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read dictionary file", err).
			WithContext("path", path)
	}
	dict, err := Parse(data)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return nil, appErr.WithContext("path", path)
		}
		return nil, err
	}
	return dict, nil
}

// Parse builds a dictionary from YAML bytes.
func Parse(data []byte) (*keywords.Dictionary, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, "invalid dictionary YAML", err)
	}
	lists, err := f.combine(keywords.DefaultLists())
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), nil)
	}
	return keywords.NewDictionary(lists), nil
}

func (f File) combine(base keywords.Lists) (keywords.Lists, error) {
	pick := func(builtin, file []string) []string {
		return append(builtin, file...)
	}
	switch f.Mode {
	case "", ModeMerge:
	case ModeReplace:
		pick = func(builtin, file []string) []string {
			if file == nil {
				return builtin
			}
			return file
		}
	default:
		return keywords.Lists{}, fmt.Errorf("unknown dictionary mode %q (must be merge or replace)", f.Mode)
	}

	out := keywords.Lists{
		StopWords:   pick(base.StopWords, f.StopWords),
		SoftSkills:  pick(base.SoftSkills, f.SoftSkills),
		Technical:   pick(base.Technical, f.Technical),
		Phrases:     pick(base.Phrases, f.Phrases),
		ActionVerbs: pick(base.ActionVerbs, f.ActionVerbs),
		Connectives: pick(base.Connectives, f.Connectives),
	}
	if len(out.Connectives) == 0 {
		return keywords.Lists{}, fmt.Errorf("dictionary needs at least one connective")
	}
	return out, nil
}
