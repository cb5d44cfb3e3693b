package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"eduslide-live/internal/domain"
)

// PresentationLoader fetches the deck behind a session code from a backing store.
type PresentationLoader interface {
	LoadPresentation(ctx context.Context, sessionCode string) (domain.Presentation, error)
}

const (
	metaField       = "meta"
	pageFieldPrefix = "page:"
)

// PresentationRepository caches presentations in Redis (hash per session code) and
// falls back to a loader on cache miss.
// Deck metadata is stored as: HSET {prefix}:presentation:{code} meta {json}
// Each slide is stored as:    HSET {prefix}:presentation:{code} page:{n} {json}
type PresentationRepository struct {
	client *redis.Client
	loader PresentationLoader
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

type presentationMeta struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	SessionCode string `json:"session_code"`
}

func NewPresentationRepository(client *redis.Client, loader PresentationLoader, prefix string, ttl time.Duration) *PresentationRepository {
	return &PresentationRepository{
		client: client,
		loader: loader,
		prefix: prefix,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PresentationRepository) GetPresentation(ctx context.Context, sessionCode string) (domain.Presentation, error) {
	key := r.key(sessionCode)

	if p, ok := r.cached(ctx, key); ok {
		return p, nil
	}

	result, err, _ := r.sf.Do(sessionCode, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if p, ok := r.cached(ctx, key); ok {
			return p, nil
		}

		p, err := r.loader.LoadPresentation(ctx, sessionCode)
		if err != nil {
			return domain.Presentation{}, err
		}
		p.SortSlides()

		fields, err := encodePresentation(p)
		if err != nil {
			return domain.Presentation{}, err
		}
		pipe := r.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		// best-effort; a failed write only costs a reload
		_, _ = pipe.Exec(ctx)

		return p, nil
	})
	if err != nil {
		return domain.Presentation{}, err
	}
	return result.(domain.Presentation), nil
}

func (r *PresentationRepository) key(sessionCode string) string {
	return r.prefix + ":presentation:" + sessionCode
}

func (r *PresentationRepository) cached(ctx context.Context, key string) (domain.Presentation, bool) {
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil || len(fields) == 0 {
		return domain.Presentation{}, false
	}
	p, err := decodePresentation(fields)
	if err != nil {
		return domain.Presentation{}, false
	}
	return p, true
}

func encodePresentation(p domain.Presentation) (map[string]interface{}, error) {
	fields := make(map[string]interface{}, len(p.Slides)+1)
	meta, err := json.Marshal(presentationMeta{ID: p.ID, Title: p.Title, SessionCode: p.SessionCode})
	if err != nil {
		return nil, fmt.Errorf("encode presentation meta: %w", err)
	}
	fields[metaField] = string(meta)
	for _, s := range p.Slides {
		raw, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encode slide %s: %w", s.ID, err)
		}
		fields[pageFieldPrefix+strconv.Itoa(s.PageNumber)] = string(raw)
	}
	return fields, nil
}

func decodePresentation(fields map[string]string) (domain.Presentation, error) {
	raw, ok := fields[metaField]
	if !ok {
		return domain.Presentation{}, fmt.Errorf("cached presentation has no %s field", metaField)
	}
	var meta presentationMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return domain.Presentation{}, err
	}
	p := domain.Presentation{ID: meta.ID, Title: meta.Title, SessionCode: meta.SessionCode}
	for field, value := range fields {
		if !strings.HasPrefix(field, pageFieldPrefix) {
			continue
		}
		var s domain.Slide
		if err := json.Unmarshal([]byte(value), &s); err != nil {
			return domain.Presentation{}, fmt.Errorf("cached %s: %w", field, err)
		}
		p.Slides = append(p.Slides, s)
	}
	p.SortSlides()
	return p, nil
}

func (r *PresentationRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
