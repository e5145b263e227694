package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/2beens/realestate/internal/telemetry/tracing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrEmptyUpload = errors.New("empty upload")

// ImageUploader is what content services need from the object storage.
type ImageUploader interface {
	Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Params struct {
	Region        string
	BaseEndpoint  string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

var _ ImageUploader = (*Uploader)(nil)

type Uploader struct {
	client        objectPutter
	bucket        string
	publicBaseURL string
	newKeyID      func() string
}

func NewUploader(ctx context.Context, params Params) (*Uploader, error) {
	if params.Bucket == "" {
		return nil, errors.New("s3 bucket not set")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			params.AccessKey,
			params.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if params.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(params.BaseEndpoint)
		}
		o.UsePathStyle = params.UsePathStyle
	})

	publicBaseURL := params.PublicBaseURL
	if publicBaseURL == "" {
		publicBaseURL = strings.TrimSuffix(params.BaseEndpoint, "/") + "/" + params.Bucket
	}

	return newUploader(client, params.Bucket, publicBaseURL), nil
}

func newUploader(client objectPutter, bucket, publicBaseURL string) *Uploader {
	return &Uploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		newKeyID:      func() string { return uuid.NewString() },
	}
}

// Upload stores body under <prefix>/<uuid>.<ext> and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, prefix, filename, contentType string, body io.Reader) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "storage.upload")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if body == nil {
		return "", ErrEmptyUpload
	}

	key := u.objectKey(prefix, filename)
	span.SetAttributes(attribute.String("object.key", key))

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	log.Debugf("storage: uploaded %s", key)
	return u.publicBaseURL + "/" + key, nil
}

func (u *Uploader) objectKey(prefix, filename string) string {
	key := u.newKeyID()
	if ext := strings.ToLower(path.Ext(filename)); ext != "" && ext != "." {
		key += ext
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
