// Package repository stores annotations and ranks them by rating.
package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/tiermark/internal/domain/model"
	"github.com/okian/tiermark/internal/domain/tier"
	"github.com/okian/tiermark/pkg/metrics"
)

// Store provides read/write access to annotations keyed by article URL.
type Store interface {
	// Put inserts or replaces the annotation for a.URL. The latest report wins:
	// an annotation submitted before the stored one is dropped.
	Put(ctx context.Context, a model.Annotation) error

	// Get returns the annotation for url or ErrNotFound.
	Get(ctx context.Context, url string) (model.Annotation, error)

	// TopN returns the n most rigorous annotations, rating desc then URL asc.
	TopN(ctx context.Context, n int) ([]model.RankedAnnotation, error)

	// ByTier returns every annotation in t, ordered like TopN.
	ByTier(ctx context.Context, t tier.Tier) ([]model.Annotation, error)

	// Count returns the number of annotated articles.
	Count(ctx context.Context) int
}

// MemoryStore is an in-memory Store. A slice kept in rank order backs the
// ranked reads; writes are O(n), reads of the top n are O(n).
type MemoryStore struct {
	mu     sync.RWMutex
	byURL  map[string]model.Annotation
	ranked []model.Annotation
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: make(map[string]model.Annotation)}
}

// less reports whether a ranks before b: higher rating first, URL asc on ties.
func less(a, b model.Annotation) bool { //nolint:gocritic // hugeParam
	if a.Rating != b.Rating {
		return a.Rating > b.Rating
	}
	return a.URL < b.URL
}

// Put implements Store.Put.
func (s *MemoryStore) Put(_ context.Context, a model.Annotation) error { //nolint:gocritic // hugeParam
	if a.URL == "" {
		return ErrMissingURL
	}
	if !a.Tier.Valid() {
		return ErrInvalidTier
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("put", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	if old, ok := s.byURL[a.URL]; ok {
		if old.SubmittedAt.After(a.SubmittedAt) {
			s.mu.Unlock()
			metrics.RecordErrorByComponent("repository", "stale_report")
			return nil
		}
		s.removeRanked(old)
	}
	s.byURL[a.URL] = a
	i := sort.Search(len(s.ranked), func(i int) bool { return !less(s.ranked[i], a) })
	s.ranked = append(s.ranked, model.Annotation{})
	copy(s.ranked[i+1:], s.ranked[i:])
	s.ranked[i] = a
	count := len(s.byURL)
	s.mu.Unlock()

	metrics.UpdateAnnotationsTotal(count)
	return nil
}

// removeRanked drops old from the ranked slice (lock held).
func (s *MemoryStore) removeRanked(old model.Annotation) { //nolint:gocritic // hugeParam
	i := sort.Search(len(s.ranked), func(i int) bool { return !less(s.ranked[i], old) })
	if i < len(s.ranked) && s.ranked[i].URL == old.URL {
		s.ranked = append(s.ranked[:i], s.ranked[i+1:]...)
	}
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, url string) (model.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byURL[url]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Annotation{}, ErrNotFound
	}
	return a, nil
}

// TopN implements Store.TopN. Equal ratings share a rank and the next
// distinct rating takes the following rank.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]model.RankedAnnotation, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryLatency("top_n", float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.ranked) {
		n = len(s.ranked)
	}
	out := make([]model.RankedAnnotation, n)
	rank := 0
	for i := 0; i < n; i++ {
		if i == 0 || s.ranked[i].Rating != s.ranked[i-1].Rating {
			rank++
		}
		out[i] = model.RankedAnnotation{Rank: rank, Annotation: s.ranked[i]}
	}
	return out, nil
}

// ByTier implements Store.ByTier.
func (s *MemoryStore) ByTier(_ context.Context, t tier.Tier) ([]model.Annotation, error) {
	if !t.Valid() {
		return nil, ErrInvalidTier
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Annotation, 0)
	for _, a := range s.ranked {
		if a.Tier == t {
			out = append(out, a)
		}
	}
	return out, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byURL)
}
