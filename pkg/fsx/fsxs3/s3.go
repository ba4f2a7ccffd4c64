package fsxs3

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/Abraxas-365/placement/pkg/errx"
	"github.com/Abraxas-365/placement/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client the reader calls.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3FileSystem implements fsx.FileReader over a bucket and key prefix.
type S3FileSystem struct {
	client S3API
	bucket string
	prefix string
}

// NewS3FileSystem creates a reader for bucket. Keys are joined onto prefix.
func NewS3FileSystem(client S3API, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (f *S3FileSystem) key(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if f.prefix == "" {
		return p
	}
	return f.prefix + "/" + p
}

func (f *S3FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(p)),
	})
	if err != nil {
		return nil, f.mapErr(p, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fsx.ReadFailed(p, err)
	}
	return data, nil
}

func (f *S3FileSystem) Stat(ctx context.Context, p string) (fsx.FileInfo, error) {
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(f.key(p)),
	})
	if err != nil {
		return fsx.FileInfo{}, f.mapErr(p, err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" || contentType == "binary/octet-stream" {
		contentType = fsx.ContentTypeOf(p)
	}
	return fsx.FileInfo{
		Name:        path.Base(p),
		Size:        aws.ToInt64(out.ContentLength),
		ModTime:     aws.ToTime(out.LastModified),
		ContentType: contentType,
		Metadata:    out.Metadata,
	}, nil
}

func (f *S3FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := f.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errx.IsCode(err, fsx.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (f *S3FileSystem) mapErr(p string, err error) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		apiErr   smithy.APIError
	)
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fsx.NotFound(p)
	}
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return fsx.NotFound(p)
	}
	return fsx.ReadFailed(p, err).WithDetail("bucket", f.bucket)
}
