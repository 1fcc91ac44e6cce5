// Package imagestore hosts uploaded product pictures on an S3-compatible
// object store and hands back public URLs plus the keys needed to delete
// them again.
package imagestore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type UploadResult struct {
	URL string
	Key string
}

type Store interface {
	Upload(ctx context.Context, fileName, contentType string, content io.Reader) (*UploadResult, error)
	Destroy(ctx context.Context, key string) error
}

type s3Store struct {
	client         *s3.Client
	bucket         string
	folder         string
	publicEndpoint *url.URL
}

func New(client *s3.Client, bucket, folder, publicBaseURL string) (Store, error) {
	publicEndpoint, err := url.Parse(publicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse public base URL: %w", err)
	}
	return &s3Store{
		client:         client,
		bucket:         bucket,
		folder:         folder,
		publicEndpoint: publicEndpoint,
	}, nil
}

func (s *s3Store) Upload(ctx context.Context, fileName, contentType string, content io.Reader) (*UploadResult, error) {
	// Keys are random so re-uploads of the same filename never collide.
	key := s.folder + "/" + uuid.NewString() + path.Ext(fileName)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        content,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	uri := *s.publicEndpoint
	uri.Path = path.Join(uri.Path, key)
	return &UploadResult{URL: uri.String(), Key: key}, nil
}

func (s *s3Store) Destroy(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}
