package s3

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Endpoints maps pseudo regions to S3 compatible providers.
var Endpoints = map[string]aws.Endpoint{
	"tebi": {
		PartitionID:   "aws",
		URL:           "https://s3.tebi.io",
		SigningRegion: "de",
	},
}

// New returns a store that keeps run artifacts in an S3 bucket.
func New(key, secret, region, bucket string, debug bool) (*Store, error) {
	s := &Store{
		key:    key,
		secret: secret,
		region: region,
		bucket: bucket,
		debug:  debug,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

type Store struct {
	key    string
	secret string
	region string
	bucket string
	debug  bool
	client *s3.Client
}

func (s *Store) start(ctx context.Context) error {
	var provider aws.CredentialsProvider
	if s.key == "" && s.secret == "" {
		provider = ec2rolecreds.New()
	} else {
		provider = credentials.NewStaticCredentialsProvider(s.key, s.secret, "")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithCredentialsProvider(provider),
	}
	if endpoint, ok := Endpoints[s.region]; ok {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return endpoint, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(resolver), config.WithRegion(endpoint.SigningRegion))
	} else {
		opts = append(opts, config.WithRegion(s.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("s3: couldn't load config for %s: %w", s.region, err)
	}
	s.client = s3.NewFromConfig(cfg)

	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	}); err != nil {
		return fmt.Errorf("s3: couldn't head bucket %s: %w", s.bucket, err)
	}
	return nil
}

// ContentType returns the content type used for an artifact.
func ContentType(path string) string {
	switch filepath.Ext(path) {
	case ".mp3":
		return "audio/mpeg"
	case ".json":
		return "application/json"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".csv":
		return "text/csv"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	reader, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't open file %s: %w", path, err)
	}
	defer reader.Close()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        reader,
		ContentType: aws.String(ContentType(path)),
	})
	if err != nil {
		return fmt.Errorf("s3: couldn't put object %s: %w", name, err)
	}
	if s.debug {
		js, _ := json.Marshal(out)
		log.Println("s3: put object", name, string(js))
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("s3: couldn't get object %s: %w", name, err)
	}
	defer out.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("s3: couldn't create %s: %w", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("s3: couldn't write %s: %w", path, err)
	}
	return nil
}
