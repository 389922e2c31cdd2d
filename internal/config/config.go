package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration, loaded once at startup and passed
// by reference into every component.
type Config struct {
	Port               string
	DBConnectionString string
	RedisURL           string
	TMDB               TMDBConfig
	Jobs               JobsConfig
	Export             ExportConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		DBConnectionString: getEnv("DB_CONNECTION_STRING", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379/0"),
		TMDB:               DefaultTMDBConfig(),
		Jobs:               DefaultJobsConfig(),
		Export:             DefaultExportConfig(),
	}

	cfg.TMDB.BearerToken = getEnv("TMDB_BEARER_TOKEN", "")

	if v, err := getEnvInt("TMDB_MAX_REQUESTS_PER_SECOND"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.TMDB.MaxRequestsPerSecond = v
	}

	if v, err := getEnvInt("TMDB_KEYWORD_CACHE_MAX_ENTRIES"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.Jobs.KeywordCacheMaxEntries = v
	}

	if v, err := getEnvInt("MOVIE_DISCOVERY_START_DELAY_MINUTES"); err != nil {
		return nil, err
	} else if v > 0 {
		cfg.Jobs.DiscoveryStartDelay = time.Duration(v) * time.Minute
	}

	if v := os.Getenv("JOB_ERROR_RATE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, err
		}
		cfg.Jobs.ErrorRateThreshold = threshold
	}

	cfg.Export.Bucket = getEnv("DATASET_EXPORT_BUCKET", "")
	cfg.Export.Prefix = getEnv("DATASET_EXPORT_PREFIX", "datasets")
	cfg.Export.FileName = getEnv("DATASET_EXPORT_FILE_NAME", "movie_items")
	cfg.Export.EndpointURL = getEnv("DATASET_EXPORT_ENDPOINT_URL", "")
	cfg.Export.AccessKey = getEnv("DATASET_EXPORT_ACCESS_KEY", "")
	cfg.Export.SecretKey = getEnv("DATASET_EXPORT_SECRET_KEY", "")
	cfg.Export.Region = getEnv("DATASET_EXPORT_REGION", "us-east-1")
	cfg.Export.Enabled = getEnv("DATASET_EXPORT_ENABLED", "false") == "true"

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
