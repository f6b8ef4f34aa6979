// Package storage provides S3-compatible object storage for profile avatars
// via presigned URLs; the API never proxies image bytes itself.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/diagnosis/cardlink/pkg/config"
)

const presignExpiry = 15 * time.Minute

type AvatarStore struct {
	cfg config.StorageConfig
}

func NewAvatarStore(cfg config.StorageConfig) *AvatarStore {
	return &AvatarStore{cfg: cfg}
}

func (a *AvatarStore) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(a.cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.cfg.AccessKey,
			a.cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(a.cfg.Endpoint)
		o.UsePathStyle = true
	})

	return s3.NewPresignClient(client), nil
}

func avatarKey(profileID string) string {
	return fmt.Sprintf("avatars/%s/%s", profileID, uuid.NewString())
}

// UploadURL returns a fresh object key and a presigned PUT URL the client
// uploads the avatar to directly.
func (a *AvatarStore) UploadURL(ctx context.Context, profileID string) (string, string, error) {
	presign, err := a.presignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := a.cfg.Bucket
	key := avatarKey(profileID)

	req, err := presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// DownloadURL returns a presigned GET URL for an avatar key.
func (a *AvatarStore) DownloadURL(ctx context.Context, key string) (string, error) {
	presign, err := a.presignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := a.cfg.Bucket

	req, err := presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
