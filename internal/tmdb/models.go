package tmdb

// MovieSummary is the compact movie record returned by list endpoints
// (discover, popular, top rated, now playing, upcoming).
type MovieSummary struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	OriginalLanguage string  `json:"original_language"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	Adult            bool    `json:"adult"`
	GenreIDs         []int64 `json:"genre_ids"`
}

// MovieListResponse is the shared envelope for paginated list endpoints.
type MovieListResponse struct {
	Page         int            `json:"page"`
	Results      []MovieSummary `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// GenreRef is a genre as embedded in movie details and the genre list
// endpoint.
type GenreRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type GenreListResponse struct {
	Genres []GenreRef `json:"genres"`
}

// MovieDetails is the full record from /movie/{id}.
type MovieDetails struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	OriginalTitle    string     `json:"original_title"`
	Overview         string     `json:"overview"`
	OriginalLanguage string     `json:"original_language"`
	ReleaseDate      string     `json:"release_date"`
	Runtime          int        `json:"runtime"`
	Budget           int64      `json:"budget"`
	Revenue          int64      `json:"revenue"`
	VoteAverage      float64    `json:"vote_average"`
	VoteCount        int        `json:"vote_count"`
	Popularity       float64    `json:"popularity"`
	PosterPath       string     `json:"poster_path"`
	BackdropPath     string     `json:"backdrop_path"`
	Adult            bool       `json:"adult"`
	Status           string     `json:"status"`
	Genres           []GenreRef `json:"genres"`
}

// KeywordRef is a keyword as returned by /movie/{id}/keywords.
type KeywordRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type MovieKeywordsResponse struct {
	ID       int64        `json:"id"`
	Keywords []KeywordRef `json:"keywords"`
}

// ChangedMovie identifies a movie flagged by the changes feed.
type ChangedMovie struct {
	ID    int64 `json:"id"`
	Adult *bool `json:"adult"`
}

// MovieChangesResponse is the envelope for /movie/changes.
type MovieChangesResponse struct {
	Page         int            `json:"page"`
	Results      []ChangedMovie `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}
