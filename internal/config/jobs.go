package config

import "time"

// JobsConfig holds scheduling and per-run budgets for the fixed job set
type JobsConfig struct {
	DiscoveryInterval      time.Duration
	DiscoveryStartDelay    time.Duration
	DiscoveryItemsPerRun   int
	ChangeTrackingSpec     string
	CategoryRefreshSpec    string
	DatasetExportSpec      string
	MoviesPerCategory      int
	ErrorRateThreshold     float64
	LockTTL                time.Duration
	KeywordCacheMaxEntries int
	HydrationBatchSize     int
	HydrationPollInterval  time.Duration
}

// ExportConfig holds dataset export (S3) configuration
type ExportConfig struct {
	Enabled     bool
	Bucket      string
	Prefix      string
	FileName    string
	EndpointURL string
	AccessKey   string
	SecretKey   string
	Region      string
	UseSSL      bool
}

// DefaultJobsConfig returns the default jobs configuration
func DefaultJobsConfig() JobsConfig {
	return JobsConfig{
		DiscoveryInterval:      5 * time.Minute,
		DiscoveryStartDelay:    10 * time.Minute,
		DiscoveryItemsPerRun:   20,
		ChangeTrackingSpec:     "0 2 * * *",
		CategoryRefreshSpec:    "0 5 * * *",
		DatasetExportSpec:      "30 3 * * *",
		MoviesPerCategory:      20,
		ErrorRateThreshold:     0.9,
		LockTTL:                5 * time.Minute,
		KeywordCacheMaxEntries: 500_000,
		HydrationBatchSize:     10,
		HydrationPollInterval:  time.Second,
	}
}

// DefaultExportConfig returns the default export configuration
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Prefix:   "datasets",
		FileName: "movie_items",
		Region:   "us-east-1",
		UseSSL:   true,
	}
}
