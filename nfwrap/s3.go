package nfwrap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

// LogStore is durable storage for run logs
type LogStore interface {
	// Put stores body under key and returns the location of the stored object
	Put(ctx context.Context, key string, body []byte, contentType string) (location string, err error)
}

// NewLogStore builds the store the config asks for
func NewLogStore(conf StorageConfig) (LogStore, error) {
	switch conf.Backend {
	case S3:
		return NewS3LogStore(conf)
	case MINIO:
		return NewMinioLogStore(conf)
	}
	return nil, configErrorf("failed to set up log storage", "unknown storage backend %q", conf.Backend)
}

// S3LogStore ..
type S3LogStore struct {
	Uploader s3manageriface.UploaderAPI
	Bucket   string
}

type awsCredentials struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// creds is the AWSCREDS secret; without it the default credential chain applies
func loadAWSConfig(creds string, region string) (*aws.Config, error) {
	awsConfig := &aws.Config{
		Region: aws.String(region),
	}
	if creds == "" {
		return awsConfig, nil
	}
	c := &awsCredentials{}
	if err := json.Unmarshal([]byte(creds), c); err != nil {
		return nil, fmt.Errorf("error unmarshalling aws secret: %v", err)
	}
	awsConfig.Credentials = credentials.NewStaticCredentials(c.ID, c.Secret, "")
	return awsConfig, nil
}

// NewS3LogStore ..
func NewS3LogStore(conf StorageConfig) (*S3LogStore, error) {
	awsConfig, err := loadAWSConfig(conf.AWSCreds, conf.Region)
	if err != nil {
		return nil, &ConfigurationError{err, "failed to set up s3 log storage"}
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, &ConfigurationError{err, "failed to set up s3 log storage"}
	}
	return &S3LogStore{
		Uploader: s3manager.NewUploader(sess),
		Bucket:   conf.Bucket,
	}, nil
}

// Put ..
func (s *S3LogStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	result, err := s.Uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file, %v", err)
	}
	return result.Location, nil
}
