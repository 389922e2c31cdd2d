package tmdb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/saiteja-velpula/sagepick.core/internal/config"
	apperrors "github.com/saiteja-velpula/sagepick.core/internal/errors"
)

// APIClient is the low-level TMDB HTTP transport. It owns the bearer
// credentials, request retries, and response decoding; endpoint methods
// live on Client.
type APIClient struct {
	client  *http.Client
	baseURL string
	retry   config.RetryConfig
	logger  *logrus.Logger
}

func NewAPIClient(cfg config.TMDBConfig, logger *logrus.Logger) *APIClient {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.BearerToken},
	)
	httpClient := oauth2.NewClient(context.Background(), ts)
	httpClient.Timeout = cfg.Timeout

	return &APIClient{
		client:  httpClient,
		baseURL: cfg.APIBaseURL,
		retry:   cfg.Retry,
		logger:  logger,
	}
}

// Close releases pooled connections. The client is unusable afterwards.
func (c *APIClient) Close() {
	c.client.CloseIdleConnections()
}

func (c *APIClient) isRetryableStatus(status int) bool {
	for _, s := range c.retry.RetryOnStatus {
		if s == status {
			return true
		}
	}
	return false
}

// get performs a GET against a TMDB path with retries. Retryable statuses
// and transport errors back off exponentially from the configured base;
// all other non-2xx statuses fail immediately. An empty 2xx body decodes
// as an empty object.
func (c *APIClient) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error

	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			backoff := c.retry.BackoffBase * (1 << (attempt - 1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt + 1,
			}).WithError(err).Warn("TMDB request failed, will retry")
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = apperrors.NewHTTPError(resp.StatusCode, "failed to read response body", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if len(body) == 0 {
				body = []byte("{}")
			}
			return body, nil
		}

		lastErr = apperrors.NewHTTPError(resp.StatusCode, string(body), nil)
		if !c.isRetryableStatus(resp.StatusCode) {
			return nil, lastErr
		}

		c.logger.WithFields(logrus.Fields{
			"path":    path,
			"status":  resp.StatusCode,
			"attempt": attempt + 1,
		}).Warn("TMDB returned retryable status")
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
