package models

import "time"

// Movie is a catalog entity keyed by its TMDB identifier. Rows created by the
// fast-insert path carry only list-response fields (Hydrated=false) until a
// discovery job or the background hydration worker fills in the rest.
type Movie struct {
	ID               int        `json:"id"`
	TMDBID           int64      `json:"tmdb_id"`
	Title            string     `json:"title"`
	OriginalTitle    string     `json:"original_title"`
	Overview         string     `json:"overview"`
	OriginalLanguage string     `json:"original_language"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	Runtime          int        `json:"runtime"`
	Budget           int64      `json:"budget"`
	Revenue          int64      `json:"revenue"`
	VoteAverage      float64    `json:"vote_average"`
	VoteCount        int        `json:"vote_count"`
	Popularity       float64    `json:"popularity"`
	PosterPath       string     `json:"poster_path,omitempty"`
	BackdropPath     string     `json:"backdrop_path,omitempty"`
	Adult            bool       `json:"adult"`
	Status           string     `json:"status,omitempty"`
	Hydrated         bool       `json:"hydrated"`
	HydrationSource  string     `json:"hydration_source,omitempty"`
	LastHydratedAt   *time.Time `json:"last_hydrated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Genre maps a TMDB genre to its local row.
type Genre struct {
	ID     int    `json:"id"`
	TMDBID int64  `json:"tmdb_id"`
	Name   string `json:"name"`
}

// Keyword maps a TMDB keyword to its local row.
type Keyword struct {
	ID     int    `json:"id"`
	TMDBID int64  `json:"tmdb_id"`
	Name   string `json:"name"`
}

// MediaCategory is a named movie listing (Trending, Popular, ...) whose
// membership the category-refresh job rewrites on each run.
type MediaCategory struct {
	ID        int       `json:"id"`
	Slug      string    `json:"slug"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryPair is an external (id, name) tuple awaiting resolution to a local
// row id, the unit of work for the batch upsert path.
type CategoryPair struct {
	TMDBID int64
	Name   string
}
