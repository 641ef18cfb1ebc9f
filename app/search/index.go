package search

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"blogapi/app/apperrors"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

var ErrEmptyQuery = apperrors.Validation(
	"search query must not be empty",
	map[string]string{"q": "is required"},
)

// Document is the searchable projection of a post.
type Document struct {
	ID        int
	Title     string
	Body      string
	CreatedAt time.Time
}

type entry struct {
	terms     []string
	createdAt time.Time
}

// Index maps each term to the posts containing it. Every mutation bumps a
// generation counter; cached results are keyed by generation, so a query
// issued after a mutation returns can never see results computed before it.
type Index struct {
	mu         sync.RWMutex
	postings   map[string]map[int]struct{}
	docs       map[int]entry
	generation uint64

	cache  *lru.Cache[string, []int]
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewIndex creates an empty index. A cacheSize of zero or less disables the
// result cache.
func NewIndex(cacheSize int) (*Index, error) {
	ix := &Index{
		postings: make(map[string]map[int]struct{}),
		docs:     make(map[int]entry),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, []int](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating search cache: %w", err)
		}
		ix.cache = cache
	}
	return ix, nil
}

// IndexPost adds or replaces the document. Terms from a previous version
// that no longer appear are dropped.
func (ix *Index) IndexPost(doc Document) {
	terms := Terms(doc.Title + " " + doc.Body)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(doc.ID)
	for _, term := range terms {
		ids, ok := ix.postings[term]
		if !ok {
			ids = make(map[int]struct{})
			ix.postings[term] = ids
		}
		ids[doc.ID] = struct{}{}
	}
	ix.docs[doc.ID] = entry{terms: terms, createdAt: doc.CreatedAt}
	ix.generation++
}

// RemovePost drops every posting for id. Removing an unknown id is a no-op.
func (ix *Index) RemovePost(id int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.removeLocked(id) {
		ix.generation++
	}
}

// Rebuild replaces the whole index with docs.
func (ix *Index) Rebuild(docs []Document) {
	postings := make(map[string]map[int]struct{})
	entries := make(map[int]entry, len(docs))
	for _, doc := range docs {
		terms := Terms(doc.Title + " " + doc.Body)
		for _, term := range terms {
			ids, ok := postings[term]
			if !ok {
				ids = make(map[int]struct{})
				postings[term] = ids
			}
			ids[doc.ID] = struct{}{}
		}
		entries[doc.ID] = entry{terms: terms, createdAt: doc.CreatedAt}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.postings = postings
	ix.docs = entries
	ix.generation++
}

func (ix *Index) removeLocked(id int) bool {
	old, ok := ix.docs[id]
	if !ok {
		return false
	}
	for _, term := range old.terms {
		ids := ix.postings[term]
		delete(ids, id)
		if len(ids) == 0 {
			delete(ix.postings, term)
		}
	}
	delete(ix.docs, id)
	return true
}

// Query returns the ids of posts containing at least one query term, best
// match first: more distinct matched terms, then newer, then lower id.
// A blank query is a validation error; a query with no searchable terms
// matches nothing.
func (ix *Index) Query(q string) ([]int, error) {
	if strings.TrimSpace(q) == "" {
		return nil, ErrEmptyQuery
	}
	terms := Terms(q)
	if len(terms) == 0 {
		return []int{}, nil
	}
	if ix.cache == nil {
		ix.mu.RLock()
		defer ix.mu.RUnlock()
		return ix.rankLocked(terms), nil
	}

	ix.mu.RLock()
	gen := ix.generation
	ix.mu.RUnlock()

	key := cacheKey(gen, terms)
	if ids, ok := ix.cache.Get(key); ok {
		ix.hits.Add(1)
		return clone(ids), nil
	}
	ix.misses.Add(1)

	v, err, _ := ix.group.Do(key, func() (any, error) {
		ix.mu.RLock()
		defer ix.mu.RUnlock()
		ids := ix.rankLocked(terms)
		ix.cache.Add(cacheKey(ix.generation, terms), ids)
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	ids, ok := v.([]int)
	if !ok {
		return nil, errors.New("search cache returned unexpected value")
	}
	return clone(ids), nil
}

type match struct {
	id        int
	matched   int
	createdAt time.Time
}

func (ix *Index) rankLocked(terms []string) []int {
	counts := make(map[int]int)
	for _, term := range terms {
		for id := range ix.postings[term] {
			counts[id]++
		}
	}

	matches := make([]match, 0, len(counts))
	for id, n := range counts {
		matches = append(matches, match{id: id, matched: n, createdAt: ix.docs[id].createdAt})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].matched != matches[j].matched {
			return matches[i].matched > matches[j].matched
		}
		if !matches[i].createdAt.Equal(matches[j].createdAt) {
			return matches[i].createdAt.After(matches[j].createdAt)
		}
		return matches[i].id < matches[j].id
	})

	ids := make([]int, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids
}

// Len reports how many posts are indexed.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Generation reports the mutation counter.
func (ix *Index) Generation() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generation
}

// CacheStats reports result cache hits and misses since creation.
func (ix *Index) CacheStats() (hits, misses int64) {
	return ix.hits.Load(), ix.misses.Load()
}

func cacheKey(gen uint64, terms []string) string {
	return fmt.Sprintf("%d|%s", gen, strings.Join(terms, " "))
}

func clone(ids []int) []int {
	out := make([]int, len(ids))
	copy(out, ids)
	return out
}
