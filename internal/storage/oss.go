package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStorage implements Storage interface for Aliyun OSS
type OSSStorage struct {
	bucket   *oss.Bucket
	endpoint string
	name     string
}

// OSSConfig holds OSS configuration
type OSSConfig struct {
	Endpoint  string // OSS endpoint (e.g., "oss-cn-hangzhou")
	Bucket    string // Bucket name
	AccessKey string // Access key
	SecretKey string // Secret key
	Internal  bool   // Use internal endpoint
}

// endpointURL expands a region name into an OSS endpoint URL
func (cfg OSSConfig) endpointURL() string {
	endpoint := cfg.Endpoint
	if cfg.Internal {
		endpoint = endpoint + "-internal"
	}
	if !strings.HasPrefix(endpoint, "http") {
		endpoint = fmt.Sprintf("https://%s.aliyuncs.com", endpoint)
	}
	return endpoint
}

// NewOSSStorage creates a new OSS storage instance
func NewOSSStorage(cfg OSSConfig) (*OSSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("oss bucket must be set")
	}
	endpoint := cfg.endpointURL()

	client, err := oss.New(endpoint, cfg.AccessKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		bucket:   bucket,
		endpoint: endpoint,
		name:     cfg.Bucket,
	}, nil
}

func (s *OSSStorage) Put(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.PutObject(key, bytes.NewReader(data), oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

func (s *OSSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.GetObject(key, oss.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

func (s *OSSStorage) Delete(ctx context.Context, key string) error {
	return s.bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (s *OSSStorage) Exists(ctx context.Context, key string) (bool, error) {
	exists, err := s.bucket.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// List lists all keys with the given prefix, following pagination markers
func (s *OSSStorage) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	marker := ""

	for {
		result, err := s.bucket.ListObjects(oss.Prefix(prefix), oss.Marker(marker), oss.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range result.Objects {
			keys = append(keys, obj.Key)
		}
		if !result.IsTruncated {
			break
		}
		marker = result.NextMarker
	}

	return keys, nil
}

func (s *OSSStorage) Name() string {
	return "oss:" + s.name
}

func isNotFound(err error) bool {
	var serr oss.ServiceError
	if errors.As(err, &serr) {
		return serr.StatusCode == http.StatusNotFound
	}
	return false
}
