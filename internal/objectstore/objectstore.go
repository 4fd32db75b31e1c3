// Package objectstore wraps an S3-compatible bucket for blobstore's backing
// storage. It is deliberately provider-agnostic: Cloudflare R2, MinIO, and AWS
// S3 itself all speak the same API surface used here.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client wraps an S3-compatible object store client.
type Client struct {
	client     *s3.Client
	bucketName string
	publicURL  string
}

// New creates a client from OBJECT_STORE_* environment variables.
func New() (*Client, error) {
	accountID := os.Getenv("OBJECT_STORE_ACCOUNT_ID")
	accessKeyID := os.Getenv("OBJECT_STORE_ACCESS_KEY_ID")
	secretAccessKey := os.Getenv("OBJECT_STORE_SECRET_ACCESS_KEY")
	bucketName := os.Getenv("OBJECT_STORE_BUCKET_NAME")
	publicURL := os.Getenv("OBJECT_STORE_PUBLIC_URL")
	endpointOverride := os.Getenv("OBJECT_STORE_ENDPOINT")

	if accountID == "" || accessKeyID == "" || secretAccessKey == "" || bucketName == "" {
		return nil, fmt.Errorf("missing object store configuration environment variables")
	}

	endpoint := endpointOverride
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}

	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
	})

	return &Client{
		client:     client,
		bucketName: bucketName,
		publicURL:  publicURL,
	}, nil
}

// PresignPut creates a presigned URL for uploading an object.
func (c *Client) PresignPut(ctx context.Context, key, contentType string, maxSizeBytes int64) (string, error) {
	presignClient := s3.NewPresignClient(c.client)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}
	if maxSizeBytes > 0 {
		input.ContentLength = aws.Int64(maxSizeBytes)
	}

	request, err := presignClient.PresignPutObject(ctx, input, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to create presigned URL: %w", err)
	}

	return request.URL, nil
}

// PublicURL returns the public URL for a key.
func (c *Client) PublicURL(key string) string {
	if c.publicURL != "" {
		return fmt.Sprintf("%s/%s", c.publicURL, key)
	}
	return fmt.Sprintf("https://%s/%s", c.bucketName, key)
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	return err
}

// Exists reports whether an object is present at key.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		type apiError interface{ ErrorCode() string }
		if ae, ok := err.(apiError); ok && (ae.ErrorCode() == "NotFound" || ae.ErrorCode() == "NoSuchKey") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get retrieves an object's full contents.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return data, nil
}

// GetStream opens a readable stream for an object; the caller must Close it.
func (c *Client) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return result.Body, nil
}

// Put uploads an object, replacing any existing object at key.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Move relocates an object from srcKey to dstKey via copy-then-delete; S3 has
// no atomic rename primitive.
func (c *Client) Move(ctx context.Context, srcKey, dstKey string) error {
	copySource := fmt.Sprintf("%s/%s", c.bucketName, srcKey)
	_, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(c.bucketName),
		Key:        aws.String(dstKey),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return fmt.Errorf("failed to copy object: %w", err)
	}

	if err := c.Delete(ctx, srcKey); err != nil {
		return fmt.Errorf("failed to delete original after copy: %w", err)
	}

	return nil
}
