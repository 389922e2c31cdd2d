package config

import "time"

// TMDBConfig holds TMDB API configuration
type TMDBConfig struct {
	BearerToken          string
	APIBaseURL           string
	Language             string
	Region               string
	Timeout              time.Duration
	MaxRequestsPerSecond int
	Retry                RetryConfig
}

// RetryConfig holds retry/backoff configuration for the API client
type RetryConfig struct {
	Attempts      int
	BackoffBase   time.Duration
	RetryOnStatus []int
}

// DefaultTMDBConfig returns the default TMDB configuration
func DefaultTMDBConfig() TMDBConfig {
	return TMDBConfig{
		APIBaseURL:           "https://api.themoviedb.org/3",
		Language:             "en-US",
		Region:               "US",
		Timeout:              15 * time.Second,
		MaxRequestsPerSecond: 15,
		Retry:                DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:      3,
		BackoffBase:   250 * time.Millisecond,
		RetryOnStatus: []int{408, 425, 429, 500, 502, 503, 504},
	}
}
