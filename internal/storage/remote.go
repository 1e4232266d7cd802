package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"demix/internal/config"
	"demix/internal/fileutil"
	"demix/internal/jobs"
	"demix/internal/services"
	"demix/internal/textutil"
)

// objectAPI is the slice of the S3 client the gateway uses. Tests substitute
// an in-memory implementation.
type objectAPI interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// presignAPI generates temporary read URLs for source audio.
type presignAPI interface {
	PresignGetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*signedRequest, error)
}

// signedRequest mirrors the field of v4.PresignedHTTPRequest the gateway
// consumes.
type signedRequest struct {
	URL string
}

type presignAdapter struct {
	client *s3.PresignClient
}

func (p presignAdapter) PresignGetObject(ctx context.Context, input *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*signedRequest, error) {
	req, err := p.client.PresignGetObject(ctx, input, optFns...)
	if err != nil {
		return nil, err
	}
	return &signedRequest{URL: req.URL}, nil
}

// Remote uploads finished artifacts to an S3-compatible bucket and removes
// the local copies once the upload succeeds.
type Remote struct {
	cfg       *config.Config
	objects   objectAPI
	presigner presignAPI
}

// NewRemote builds the gateway for the configured S3 bucket.
func NewRemote(cfg *config.Config) (*Remote, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
			"",
		)),
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.Endpoint != ""
	})

	return &Remote{
		cfg:       cfg,
		objects:   client,
		presigner: presignAdapter{client: s3.NewPresignClient(client)},
	}, nil
}

func (r *Remote) Backend() string {
	return config.BackendS3
}

func (r *Remote) WorkDir(job *jobs.Job) string {
	return workDir(r.cfg, job)
}

// Commit uploads one artifact and deletes the local file. The object key is
// the ref, so local and remote layouts stay interchangeable.
func (r *Remote) Commit(ctx context.Context, job *jobs.Job, kind jobs.OutputKind, localPath string) (string, error) {
	if !fileutil.Exists(localPath) {
		return "", services.Wrap(services.ErrOutputMissing, "storage", "commit",
			fmt.Sprintf("artifact %s not found at %s", kind, localPath), nil)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "commit", "open artifact", err)
	}
	defer f.Close()

	ref := jobRef(kindRoot(r.cfg, job), job, kind)
	if _, err := r.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Storage.Bucket),
		Key:         aws.String(ref),
		Body:        f,
		ContentType: aws.String(contentTypeFor(localPath)),
	}); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "commit",
			fmt.Sprintf("upload %s", ref), err)
	}

	f.Close()
	if err := os.Remove(localPath); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "commit", "remove local copy", err)
	}
	return ref, nil
}

// ImportSource uploads a locally supplied audio file for the source record.
// Unlike Commit the original file stays in place.
func (r *Remote) ImportSource(ctx context.Context, src *jobs.Source, localPath string) (string, error) {
	if !fileutil.Exists(localPath) {
		return "", services.Wrap(services.ErrIOFailure, "storage", "import",
			fmt.Sprintf("no file at %s", localPath), nil)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "import", "open source audio", err)
	}
	defer f.Close()

	ref := path.Join(r.cfg.Paths.UploadsDir, src.ID, textutil.SanitizeFileName(filepath.Base(localPath)))
	if _, err := r.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.cfg.Storage.Bucket),
		Key:         aws.String(ref),
		Body:        f,
		ContentType: aws.String(contentTypeFor(localPath)),
	}); err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "import",
			fmt.Sprintf("upload %s", ref), err)
	}
	return ref, nil
}

func (r *Remote) CleanupWorkDir(job *jobs.Job) error {
	return fileutil.RemoveIfEmpty(r.WorkDir(job))
}

// ResolveSource hands back a URL the processing tools can stream from: the
// public CDN URL when one is configured, otherwise a presigned GET.
func (r *Remote) ResolveSource(ctx context.Context, src *jobs.Source) (string, error) {
	if src.OutputRef == "" {
		return "", services.Wrap(services.ErrIOFailure, "storage", "resolve",
			fmt.Sprintf("source %s has no audio", src.ID), nil)
	}
	if r.cfg.Storage.PublicURL != "" {
		return fmt.Sprintf("%s/%s", r.cfg.Storage.PublicURL, src.OutputRef), nil
	}

	expiry := time.Duration(r.cfg.Storage.PresignExpirySeconds) * time.Second
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.cfg.Storage.Bucket),
		Key:    aws.String(src.OutputRef),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", services.Wrap(services.ErrIOFailure, "storage", "resolve", "presign source", err)
	}
	return req.URL, nil
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
