package domain

import (
	"errors"
	"strings"
	"sync"
)

// ErrInvalidKeyword is returned when a keyword is empty or already monitored
var ErrInvalidKeyword = errors.New("keyword already exists or is invalid")

// KeywordSet is the mutable set of monitored keywords.
// Keywords are stored trimmed and lowercased. Iteration follows insertion order.
type KeywordSet struct {
	mu    sync.RWMutex
	words map[string]struct{}
	order []string
}

// NewKeywordSet creates a keyword set seeded with the given words.
// Empty and duplicate words are skipped.
func NewKeywordSet(words ...string) *KeywordSet {
	s := &KeywordSet{words: make(map[string]struct{})}
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// NormalizeKeyword trims and case-folds a keyword
func NormalizeKeyword(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Add inserts a keyword. It returns the normalized form and false when the
// keyword is empty or already present.
func (s *KeywordSet) Add(word string) (string, bool) {
	kw := NormalizeKeyword(word)
	if kw == "" {
		return kw, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.words[kw]; ok {
		return kw, false
	}
	s.words[kw] = struct{}{}
	s.order = append(s.order, kw)
	return kw, true
}

// Remove deletes a keyword. It returns the normalized form and false when absent.
func (s *KeywordSet) Remove(word string) (string, bool) {
	kw := NormalizeKeyword(word)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.words[kw]; !ok {
		return kw, false
	}
	delete(s.words, kw)
	for i, w := range s.order {
		if w == kw {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return kw, true
}

// Contains checks membership
func (s *KeywordSet) Contains(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[NormalizeKeyword(word)]
	return ok
}

// Snapshot returns a copy of the keywords in insertion order
func (s *KeywordSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of keywords
func (s *KeywordSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
