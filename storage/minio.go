package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"Musio/config"
	"Musio/logger"
	"Musio/metrics"
	"Musio/model"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	gobreaker "github.com/sony/gobreaker/v2"
)

// 对象存储中的目录
const (
	FolderSongs          = "songs"
	FolderSongCovers     = "song_covers"
	FolderPlaylistCovers = "playlist_covers"
)

var (
	// ErrForeignObject is returned when a URL does not point into our bucket.
	ErrForeignObject = errors.New("url does not reference a stored object")
	// ErrUnavailable is returned while the storage breaker is open.
	ErrUnavailable = errors.New("object storage temporarily unavailable")
)

// publicReadPolicy lets players fetch audio and covers without credentials.
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// ObjectStore is the subset of *minio.Client used by MediaStore.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// NewClient 创建 MinIO 客户端
func NewClient(cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return client, nil
}

// EnsureBucket creates the bucket when missing and makes its objects publicly readable.
func EnsureBucket(ctx context.Context, client *minio.Client, cfg *config.Config) error {
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("bucket created", logger.String("bucket", cfg.MinioBucket))
	}
	if err := client.SetBucketPolicy(ctx, cfg.MinioBucket, fmt.Sprintf(publicReadPolicy, cfg.MinioBucket)); err != nil {
		return fmt.Errorf("设置存储桶策略失败: %w", err)
	}
	return nil
}

// MediaStore uploads and deletes audio files and cover images.
type MediaStore struct {
	client     ObjectStore
	bucket     string
	publicBase string
	cb         *gobreaker.CircuitBreaker[interface{}]
	newName    func() string
}

// StoreOption configures a MediaStore.
type StoreOption func(*gobreaker.Settings)

// WithTripAfter opens the breaker after n consecutive failures.
func WithTripAfter(n uint32) StoreOption {
	return func(s *gobreaker.Settings) {
		s.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= n
		}
	}
}

// WithBreakerTimeout sets how long the breaker stays open.
func WithBreakerTimeout(d time.Duration) StoreOption {
	return func(s *gobreaker.Settings) { s.Timeout = d }
}

// NewMediaStore wraps client with a circuit breaker.
func NewMediaStore(client ObjectStore, bucket, publicBase string, opts ...StoreOption) *MediaStore {
	name := "minio-" + bucket
	metrics.StorageBreakerState.WithLabelValues(name).Set(0)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StorageBreakerState.WithLabelValues(name).Set(float64(to))
			logger.Warn("storage breaker state changed",
				logger.String("name", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}
	for _, opt := range opts {
		opt(&settings)
	}

	return &MediaStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		cb:         gobreaker.NewCircuitBreaker[interface{}](settings),
		newName:    func() string { return uuid.New().String() },
	}
}

// Upload stores r under folder and returns the public URL of the new object.
func (s *MediaStore) Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error) {
	objectName := s.objectName(folder, filename)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = inferContentType(filename)
	}

	_, err := s.cb.Execute(func() (interface{}, error) {
		return s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
	})
	metrics.RecordUpload(folder, err)
	if err != nil {
		return "", s.wrap("上传文件失败", err)
	}

	logger.Info("object uploaded",
		logger.String("object", objectName),
		logger.Int64("size", size))
	return s.publicBase + "/" + objectName, nil
}

// Delete removes the object behind a public URL.
func (s *MediaStore) Delete(ctx context.Context, objectURL string) error {
	key, err := s.ObjectKey(objectURL)
	if err != nil {
		return err
	}
	_, err = s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil {
		return s.wrap("删除文件失败", err)
	}
	logger.Info("object deleted", logger.String("object", key))
	return nil
}

// ObjectKey extracts the object name from a URL produced by Upload.
func (s *MediaStore) ObjectKey(objectURL string) (string, error) {
	if rest, ok := strings.CutPrefix(objectURL, s.publicBase+"/"); ok && rest != "" {
		return rest, nil
	}
	// Fall back to path-style URLs from another host, e.g. behind a proxy.
	u, err := url.Parse(objectURL)
	if err != nil || u.Path == "" {
		return "", ErrForeignObject
	}
	if rest, ok := strings.CutPrefix(u.Path, "/"+s.bucket+"/"); ok && rest != "" {
		return rest, nil
	}
	return "", ErrForeignObject
}

// IsDefaultImage reports whether url is one of the built-in cover images.
func IsDefaultImage(url string) bool {
	switch url {
	case "", model.DefaultCoverImage, model.DefaultPlaylistCover:
		return true
	}
	return false
}

func (s *MediaStore) objectName(folder, filename string) string {
	return folder + "/" + s.newName() + strings.ToLower(path.Ext(filename))
}

func (s *MediaStore) wrap(msg string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", msg, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
