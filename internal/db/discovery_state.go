package db

import (
	"context"
	"database/sql"
	"fmt"
)

// GetDiscoveryPage returns the persisted discover page cursor, or 1 when no
// cursor has been written yet.
func (s *PostgresStore) GetDiscoveryPage(ctx context.Context) (int, error) {
	var page int
	err := s.db.QueryRowContext(ctx,
		`SELECT current_page FROM movie_discovery_state WHERE id = 1`).Scan(&page)
	if err == sql.ErrNoRows {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read discovery page: %w", err)
	}
	if page < 1 {
		page = 1
	}
	return page, nil
}

// SetDiscoveryPage persists the discover page cursor.
func (s *PostgresStore) SetDiscoveryPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO movie_discovery_state (id, current_page, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE
		SET current_page = EXCLUDED.current_page, updated_at = NOW()`,
		page,
	)
	if err != nil {
		return fmt.Errorf("failed to persist discovery page: %w", err)
	}
	return nil
}
