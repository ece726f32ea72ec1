package nfwrap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// MinioLogStore writes logs to a MinIO (or any S3-compatible) endpoint
type MinioLogStore struct {
	client objectPutter
	bucket string
}

// NewMinioLogStore ..
func NewMinioLogStore(conf StorageConfig) (*MinioLogStore, error) {
	if conf.Endpoint == "" {
		return nil, configErrorf("failed to set up minio log storage", "no endpoint; set %v", minioEndpointEnvVar)
	}
	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(conf.MinioAccessKey, conf.MinioSecretKey, ""),
		Secure:    conf.UseSSL,
		Region:    conf.Region,
		Transport: newTransport(),
	}
	client, err := minio.New(conf.Endpoint, opts)
	if err != nil {
		return nil, &ConfigurationError{err, "failed to set up minio log storage"}
	}
	return &MinioLogStore{client: client, bucket: conf.Bucket}, nil
}

// Put ..
func (s *MinioLogStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	info, err := s.client.PutObject(
		ctx,
		s.bucket,
		key,
		bytes.NewReader(body),
		int64(len(body)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%v/%v", info.Bucket, info.Key), nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
