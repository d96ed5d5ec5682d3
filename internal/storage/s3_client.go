package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"poll-service/internal/domain/poll"
	"poll-service/internal/transport/httpdto"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// objectPutter is the part of *s3.Client the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes a final snapshot of deleted polls to a bucket.
type Archiver struct {
	bucket string
	s3     objectPutter
}

func NewClient(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	var endpoint string
	if cfg.Endpoint != "" {
		parsed, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid s3 endpoint: %w", err)
		}
		endpoint = parsed.String()
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewArchiver builds an archiver backed by a real S3 client.
func NewArchiver(ctx context.Context, cfg S3Config) (*Archiver, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Archiver{bucket: cfg.Bucket, s3: client}, nil
}

func newArchiver(bucket string, putter objectPutter) *Archiver {
	return &Archiver{bucket: bucket, s3: putter}
}

// ObjectKey is where a poll's snapshot lands. The end time keeps a
// recreated poll with the same name from overwriting an older archive.
func ObjectKey(p *poll.Poll) string {
	return fmt.Sprintf("polls/%s/%d.json", url.PathEscape(p.Name), p.EndTime)
}

// Archive stores p as it looked at nowMs.
func (a *Archiver) Archive(ctx context.Context, p *poll.Poll, nowMs int64) error {
	if a == nil || a.s3 == nil {
		return errors.New("s3 client not initialized")
	}
	if p == nil {
		return errors.New("poll is required")
	}

	body, err := json.Marshal(httpdto.PollResponse{Poll: httpdto.FromPoll(p, nowMs)})
	if err != nil {
		return fmt.Errorf("failed to marshal poll: %w", err)
	}

	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(ObjectKey(p)),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("failed to archive poll %s: %w", p.Name, err)
	}
	return nil
}
