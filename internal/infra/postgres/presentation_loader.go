package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"eduslide-live/internal/domain"
)

const (
	openSessionQuery = `
SELECT p.id, p.title
FROM sessions s
JOIN presentations p ON p.id = s.presentation_id
WHERE s.session_code = $1 AND s.ended_at IS NULL`

	slidesQuery = `
SELECT id, page_number, content_url, interactive_type
FROM slides
WHERE presentation_id = $1
ORDER BY page_number`
)

// PresentationLoader loads the deck behind an open session from Postgres.
type PresentationLoader struct {
	pool *pgxpool.Pool
}

func NewPresentationLoader(pool *pgxpool.Pool) *PresentationLoader {
	return &PresentationLoader{pool: pool}
}

func (l *PresentationLoader) LoadPresentation(ctx context.Context, sessionCode string) (domain.Presentation, error) {
	p := domain.Presentation{SessionCode: sessionCode}
	err := l.pool.QueryRow(ctx, openSessionQuery, sessionCode).Scan(&p.ID, &p.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Presentation{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Presentation{}, fmt.Errorf("load session %s: %w", sessionCode, err)
	}

	rows, err := l.pool.Query(ctx, slidesQuery, p.ID)
	if err != nil {
		return domain.Presentation{}, fmt.Errorf("load slides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			s    domain.Slide
			kind string
		)
		if err := rows.Scan(&s.ID, &s.PageNumber, &s.ContentURL, &kind); err != nil {
			return domain.Presentation{}, fmt.Errorf("scan slide: %w", err)
		}
		if k := domain.ActivityKind(kind); k.Valid() {
			s.InteractiveType = k
		}
		p.Slides = append(p.Slides, s)
	}
	if err := rows.Err(); err != nil {
		return domain.Presentation{}, fmt.Errorf("load slides: %w", err)
	}
	if len(p.Slides) == 0 {
		return domain.Presentation{}, fmt.Errorf("%w: %s has no slides", domain.ErrPresentationNotFound, p.ID)
	}
	return p, nil
}
