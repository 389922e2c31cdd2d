package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/saiteja-velpula/sagepick.core/internal/config"
)

// S3Writer pushes dataset files to an S3-compatible bucket. Each export is
// written under a dated key, then copied over the stable "latest" key so
// consumers always have one fixed path to pull.
type S3Writer struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Writer(cfg config.ExportConfig) (*S3Writer, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			scheme := "http"
			if cfg.UseSSL {
				scheme = "https"
			}
			endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.EndpointURL, "https://"), "http://")
			endpoint = strings.TrimSuffix(endpoint, "/")
			o.BaseEndpoint = aws.String(fmt.Sprintf("%s://%s", scheme, endpoint))
			o.UsePathStyle = true
		}
	})

	return &S3Writer{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

func (w *S3Writer) key(name string) string {
	if w.prefix == "" {
		return name
	}
	return w.prefix + "/" + name
}

// Upload writes one object under the export prefix.
func (w *S3Writer) Upload(ctx context.Context, name string, body io.Reader, contentType string) error {
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(w.key(name)),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	return nil
}

// CopyToLatest copies an uploaded export over the stable latest key.
func (w *S3Writer) CopyToLatest(ctx context.Context, sourceName, latestName string) error {
	source := fmt.Sprintf("%s/%s", w.bucket, w.key(sourceName))
	_, err := w.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(w.bucket),
		Key:        aws.String(w.key(latestName)),
		CopySource: aws.String(source),
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", sourceName, latestName, err)
	}
	return nil
}
