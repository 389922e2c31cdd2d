package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/saiteja-velpula/sagepick.core/internal/db"
	"github.com/saiteja-velpula/sagepick.core/internal/models"
)

var datasetHeader = []string{
	"tmdb_id", "title", "original_title", "original_language", "release_date",
	"runtime", "budget", "revenue", "vote_average", "vote_count", "popularity",
	"adult", "status", "hydrated",
}

// Builder streams the movie catalog as CSV. Rows come straight off the
// database cursor, so memory stays flat no matter how large the catalog is.
type Builder struct {
	store db.Store
}

func NewBuilder(store db.Store) *Builder {
	return &Builder{store: store}
}

func datasetRow(m *models.Movie) []string {
	releaseDate := ""
	if m.ReleaseDate != nil {
		releaseDate = m.ReleaseDate.Format("2006-01-02")
	}
	return []string{
		strconv.FormatInt(m.TMDBID, 10),
		m.Title,
		m.OriginalTitle,
		m.OriginalLanguage,
		releaseDate,
		strconv.Itoa(m.Runtime),
		strconv.FormatInt(m.Budget, 10),
		strconv.FormatInt(m.Revenue, 10),
		strconv.FormatFloat(m.VoteAverage, 'f', 3, 64),
		strconv.Itoa(m.VoteCount),
		strconv.FormatFloat(m.Popularity, 'f', 3, 64),
		strconv.FormatBool(m.Adult),
		m.Status,
		strconv.FormatBool(m.Hydrated),
	}
}

// Build writes the full catalog as CSV and returns the row count. The
// isCancelled check runs per row so a cancel lands mid-stream instead of
// after the whole table.
func (b *Builder) Build(ctx context.Context, w io.Writer, isCancelled func() bool) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(datasetHeader); err != nil {
		return 0, fmt.Errorf("failed to write dataset header: %w", err)
	}

	rows := 0
	err := b.store.StreamMovies(ctx, func(m *models.Movie) error {
		if isCancelled != nil && isCancelled() {
			return context.Canceled
		}
		if err := cw.Write(datasetRow(m)); err != nil {
			return fmt.Errorf("failed to write row for movie %d: %w", m.TMDBID, err)
		}
		rows++
		return nil
	})
	if err != nil {
		return rows, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return rows, fmt.Errorf("failed to flush dataset: %w", err)
	}
	return rows, nil
}
