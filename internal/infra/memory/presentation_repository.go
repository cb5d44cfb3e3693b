package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"eduslide-live/internal/domain"
)

// PresentationLoader fetches the deck behind a session code from a backing store.
type PresentationLoader interface {
	LoadPresentation(ctx context.Context, sessionCode string) (domain.Presentation, error)
}

// PresentationRepository caches presentations with TTL to avoid repeated DB hits.
type PresentationRepository struct {
	loader PresentationLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedPresentation
}

type cachedPresentation struct {
	presentation domain.Presentation
	expiresAt    time.Time
}

func NewPresentationRepository(loader PresentationLoader, ttl time.Duration) *PresentationRepository {
	return &PresentationRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedPresentation),
	}
}

func (r *PresentationRepository) GetPresentation(ctx context.Context, sessionCode string) (domain.Presentation, error) {
	if p, ok := r.cached(sessionCode); ok {
		return p, nil
	}

	result, err, _ := r.sf.Do(sessionCode, func() (interface{}, error) {
		if p, ok := r.cached(sessionCode); ok {
			return p, nil
		}
		p, err := r.loader.LoadPresentation(ctx, sessionCode)
		if err != nil {
			return domain.Presentation{}, err
		}
		p.SortSlides()

		r.mu.Lock()
		r.cache[sessionCode] = cachedPresentation{
			presentation: p,
			expiresAt:    r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return domain.Presentation{}, err
	}
	return result.(domain.Presentation), nil
}

// Invalidate drops the cached deck for sessionCode.
func (r *PresentationRepository) Invalidate(sessionCode string) {
	r.mu.Lock()
	delete(r.cache, sessionCode)
	r.mu.Unlock()
}

func (r *PresentationRepository) cached(sessionCode string) (domain.Presentation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[sessionCode]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Presentation{}, false
	}
	return entry.presentation, true
}

func (r *PresentationRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPresentationLoader serves presentations from memory, keyed by session code.
type StaticPresentationLoader struct {
	presentations map[string]domain.Presentation
}

func NewStaticPresentationLoader(presentations ...domain.Presentation) *StaticPresentationLoader {
	byCode := make(map[string]domain.Presentation, len(presentations))
	for _, p := range presentations {
		byCode[p.SessionCode] = p
	}
	return &StaticPresentationLoader{presentations: byCode}
}

// LoadStaticFile reads a YAML list of presentations.
func LoadStaticFile(path string) (*StaticPresentationLoader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presentations: %w", err)
	}
	var presentations []domain.Presentation
	if err := yaml.Unmarshal(data, &presentations); err != nil {
		return nil, fmt.Errorf("parse presentations: %w", err)
	}
	return NewStaticPresentationLoader(presentations...), nil
}

func (l *StaticPresentationLoader) LoadPresentation(_ context.Context, sessionCode string) (domain.Presentation, error) {
	if p, ok := l.presentations[sessionCode]; ok {
		return p, nil
	}
	return domain.Presentation{}, domain.ErrSessionNotFound
}
