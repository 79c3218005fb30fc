package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"golang.org/x/sync/singleflight"

	"atstailor/internal/keywords"
	"atstailor/internal/tailor"
)

// MemoExtractor wraps an extractor with the tiered cache. Concurrent misses
// for the same key share one extraction.
type MemoExtractor struct {
	next  tailor.Extractor
	cache *Tiered
	group singleflight.Group
}

// NewMemoExtractor returns next memoized through c.
func NewMemoExtractor(next tailor.Extractor, c *Tiered) *MemoExtractor {
	return &MemoExtractor{next: next, cache: c}
}

// ExtractionKey identifies one extraction: the keyword limit, the dictionary
// it was computed with and the exact job text. Texts that differ only in
// spacing can rank differently, so the text is not normalized.
func ExtractionKey(text string, limit int, dict *keywords.Dictionary) string {
	return Key(strconv.Itoa(limit), dict.Fingerprint(), text)
}

func (m *MemoExtractor) Extract(ctx context.Context, text string, limit int) (keywords.Set, error) {
	key := ExtractionKey(text, limit, m.next.Dictionary())

	if data, ok := m.cache.Get(ctx, key); ok {
		var set keywords.Set
		if err := json.Unmarshal(data, &set); err == nil {
			return set, nil
		}
	}

	v, err, _ := m.group.Do(key, func() (any, error) {
		set, err := m.next.Extract(ctx, text, limit)
		if err != nil {
			return keywords.Set{}, err
		}
		if data, err := json.Marshal(set); err == nil {
			m.cache.Set(ctx, key, data)
		}
		return set, nil
	})
	if err != nil {
		return keywords.Set{}, err
	}
	return v.(keywords.Set), nil
}

func (m *MemoExtractor) Dictionary() *keywords.Dictionary {
	return m.next.Dictionary()
}

// Stats exposes the underlying cache counters.
func (m *MemoExtractor) Stats() Stats {
	return m.cache.Stats()
}
