package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps a MinIO client against the artifact bucket described in
// spec.md §6 (object-store layout).
type Client struct {
	mc     *minio.Client
	bucket string
}

var client *Client

// Connect initializes the process-wide object-store client and ensures the
// configured bucket exists.
func Connect(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	client = &Client{mc: mc, bucket: bucket}
	return client, nil
}

// Get returns the process-wide object-store client.
func Get() *Client {
	return client
}

// AnalyticsJobKey builds the object key for an analytics job artifact
// (spec.md §6: "<tenant_id>/analytics/<job_id>.json").
func AnalyticsJobKey(tenantID int64, jobID string) string {
	return fmt.Sprintf("%d/analytics/%s.json", tenantID, jobID)
}

// ReportKey builds the object key for a report artifact
// (spec.md §6: "<tenant_id>/reports/<report_id>.<ext>").
func ReportKey(tenantID int64, reportID, ext string) string {
	return fmt.Sprintf("%d/reports/%s.%s", tenantID, reportID, ext)
}

// Upload writes an artifact and returns a presigned GET URL valid for ttl.
func (c *Client) Upload(ctx context.Context, key string, body []byte, contentType string, ttl time.Duration) (string, error) {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload artifact %s: %w", key, err)
	}

	url, err := c.mc.PresignedGetObject(ctx, c.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign artifact %s: %w", key, err)
	}
	return url.String(), nil
}

// PresignedURL re-derives a presigned GET URL for an existing artifact,
// valid for ttl.
func (c *Client) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := c.mc.PresignedGetObject(ctx, c.bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("presign artifact %s: %w", key, err)
	}
	return url.String(), nil
}
