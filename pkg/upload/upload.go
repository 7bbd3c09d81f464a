// Package upload stores rendered reports in an S3-compatible bucket.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ccollicutt/steptrace/pkg/config"
	"github.com/ccollicutt/steptrace/pkg/output"
)

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader renders reports and puts them into a bucket.
type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewUploader creates an uploader around an existing client.
func NewUploader(client PutObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewS3Uploader builds an S3 client from the upload configuration. Static
// credentials are used when configured, otherwise the AWS default chain.
func NewS3Uploader(ctx context.Context, cfg *config.UploadConfig) (*Uploader, error) {
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewUploader(client, cfg.Bucket, cfg.Prefix), nil
}

// Key returns the object key for a report rendered with the given
// extension: <prefix>/<report-id>.<ext>.
func (u *Uploader) Key(report *output.Report, ext string) string {
	name := report.Metadata.ReportID + "." + ext
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload renders report with f and stores it. It returns the object key.
func (u *Uploader) Upload(ctx context.Context, report *output.Report, f output.Formatter) (string, error) {
	var buf bytes.Buffer
	if err := f.Format(ctx, report, &buf); err != nil {
		return "", fmt.Errorf("rendering %s report: %w", f.Name(), err)
	}

	key := u.Key(report, f.Extension())
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(f.ContentType()),
		// S3 user metadata must be US-ASCII
		Metadata: map[string]string{
			"source":    url.PathEscape(report.Metadata.Source),
			"report-id": report.Metadata.ReportID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("put object s3://%s/%s: %w", u.bucket, key, err)
	}

	slog.Debug("uploaded report", "bucket", u.bucket, "key", key, "bytes", buf.Len())
	return key, nil
}
