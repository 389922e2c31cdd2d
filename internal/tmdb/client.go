package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/saiteja-velpula/sagepick.core/internal/config"
)

// Category names a TMDB curated movie list.
type Category string

const (
	CategoryPopular    Category = "popular"
	CategoryTopRated   Category = "top_rated"
	CategoryNowPlaying Category = "now_playing"
	CategoryUpcoming   Category = "upcoming"
)

// listEndpoints maps each category to its API path. The map is the single
// registry of supported categories; an unknown category is a caller bug,
// not a dynamic lookup failure.
var listEndpoints = map[Category]string{
	CategoryPopular:    "/movie/popular",
	CategoryTopRated:   "/movie/top_rated",
	CategoryNowPlaying: "/movie/now_playing",
	CategoryUpcoming:   "/movie/upcoming",
}

// Categories returns the supported list categories in a stable order.
func Categories() []Category {
	return []Category{CategoryPopular, CategoryTopRated, CategoryNowPlaying, CategoryUpcoming}
}

// Client exposes the TMDB endpoints the sync pipeline needs.
type Client struct {
	api      *APIClient
	language string
	region   string
}

func NewClient(cfg config.TMDBConfig, logger *logrus.Logger) *Client {
	return &Client{
		api:      NewAPIClient(cfg, logger),
		language: cfg.Language,
		region:   cfg.Region,
	}
}

func (c *Client) Close() {
	c.api.Close()
}

func (c *Client) baseQuery() url.Values {
	q := url.Values{}
	q.Set("language", c.language)
	return q
}

// GetMovie fetches full details for one movie.
func (c *Client) GetMovie(ctx context.Context, tmdbID int64) (*MovieDetails, error) {
	body, err := c.api.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), c.baseQuery())
	if err != nil {
		return nil, err
	}

	var details MovieDetails
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("failed to decode movie %d: %w", tmdbID, err)
	}
	return &details, nil
}

// GetMovieKeywords fetches the keyword list for one movie.
func (c *Client) GetMovieKeywords(ctx context.Context, tmdbID int64) ([]KeywordRef, error) {
	body, err := c.api.get(ctx, fmt.Sprintf("/movie/%d/keywords", tmdbID), nil)
	if err != nil {
		return nil, err
	}

	var resp MovieKeywordsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode keywords for movie %d: %w", tmdbID, err)
	}
	return resp.Keywords, nil
}

// GetGenres fetches the full movie genre list.
func (c *Client) GetGenres(ctx context.Context) ([]GenreRef, error) {
	body, err := c.api.get(ctx, "/genre/movie/list", c.baseQuery())
	if err != nil {
		return nil, err
	}

	var resp GenreListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode genre list: %w", err)
	}
	return resp.Genres, nil
}

// DiscoverMovies fetches one page of the discover feed, ordered by
// popularity so new catalog entries arrive most-relevant first.
func (c *Client) DiscoverMovies(ctx context.Context, page int) (*MovieListResponse, error) {
	q := c.baseQuery()
	q.Set("sort_by", "popularity.desc")
	q.Set("include_adult", "false")
	q.Set("page", strconv.Itoa(page))

	body, err := c.api.get(ctx, "/discover/movie", q)
	if err != nil {
		return nil, err
	}

	var resp MovieListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode discover page %d: %w", page, err)
	}
	return &resp, nil
}

// GetMovieChanges fetches one page of movie IDs changed on TMDB within the
// default change window.
func (c *Client) GetMovieChanges(ctx context.Context, page int) (*MovieChangesResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	body, err := c.api.get(ctx, "/movie/changes", q)
	if err != nil {
		return nil, err
	}

	var resp MovieChangesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode changes page %d: %w", page, err)
	}
	return &resp, nil
}

// ListByCategory fetches one page of a curated list.
func (c *Client) ListByCategory(ctx context.Context, category Category, page int) (*MovieListResponse, error) {
	path, ok := listEndpoints[category]
	if !ok {
		return nil, fmt.Errorf("unknown movie category %q", category)
	}

	q := c.baseQuery()
	q.Set("region", c.region)
	q.Set("page", strconv.Itoa(page))

	body, err := c.api.get(ctx, path, q)
	if err != nil {
		return nil, err
	}

	var resp MovieListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode %s page %d: %w", category, page, err)
	}
	return &resp, nil
}
