// internal/photos/archive.go
package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mcp-glucose-log/internal/classifier"
)

var ErrEmptyPhoto = errors.New("photo has no data")

// ObjectPutter is the part of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive uploads meal photos to S3 under meals/YYYY/MM/DD/<uuid>.<ext>.
type Archive struct {
	client  ObjectPutter
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewArchive returns an archive for bucket. URLs are built from baseURL, or
// the bucket's virtual-hosted S3 address when baseURL is empty.
func NewArchive(client ObjectPutter, bucket, baseURL string) *Archive {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &Archive{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

func NewArchiveFromRegion(ctx context.Context, region, bucket, baseURL string) (*Archive, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewArchive(s3.NewFromConfig(cfg), bucket, baseURL), nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	}
	return ".bin"
}

// Put uploads img and returns its public URL.
func (a *Archive) Put(ctx context.Context, img classifier.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ErrEmptyPhoto
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("meals/%s/%s%s", a.now().UTC().Format("2006/01/02"), uuid.New().String(), extension(img.ContentType))

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	log.Debug().Str("bucket", a.bucket).Str("key", key).Msg("photo archived")
	return a.baseURL + "/" + key, nil
}
