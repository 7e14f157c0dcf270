package blobstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config — параметры подключения к S3-совместимому хранилищу.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// S3Store — blob-хранилище в S3/MinIO.
// Поток сначала пишется в локальную staging-область (хэш считается
// до загрузки), затем Commit выгружает готовый файл через PutObject.
type S3Store struct {
	*Staging

	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewS3Store создаёт клиент MinIO и при необходимости создаёт bucket.
func NewS3Store(ctx context.Context, cfg S3Config, stagingDir string, logger *slog.Logger) (*S3Store, error) {
	staging, err := NewStaging(stagingDir)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("создание клиента S3: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("проверка bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("создание bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("Bucket создан", slog.String("bucket", cfg.Bucket))
	}

	return &S3Store{
		Staging: staging,
		client:  client,
		bucket:  cfg.Bucket,
		logger:  logger.With(slog.String("component", "s3_store")),
	}, nil
}

// Commit выгружает staged-файл в bucket и удаляет локальную копию.
func (s3 *S3Store) Commit(ctx context.Context, s *Staged, contentHash string) (string, error) {
	location, err := NewLocation(contentHash)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return "", fmt.Errorf("staged-объект %s уже использован", s.ID)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("ошибка открытия staged-файла: %w", err)
	}
	defer f.Close()

	_, err = s3.client.PutObject(ctx, s3.bucket, location, f, s.Size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("ошибка загрузки объекта %s: %w", location, err)
	}

	s.done = true
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s3.logger.Warn("Не удалось удалить staged-файл",
			slog.String("staged_id", s.ID),
			slog.String("error", err.Error()),
		)
	}

	return location, nil
}

// Open открывает объект. *minio.Object поддерживает Seek.
func (s3 *S3Store) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	if err := ValidateLocation(location); err != nil {
		return nil, err
	}

	obj, err := s3.client.GetObject(ctx, s3.bucket, location, minio.GetObjectOptions{})
	if err != nil {
		return nil, s3.mapError(location, err)
	}
	// GetObject ленивый: отсутствие объекта проявляется только при Stat/Read
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, s3.mapError(location, err)
	}
	return obj, nil
}

// Remove удаляет объект. RemoveObject в S3 идемпотентен,
// поэтому отсутствие объекта определяется через StatObject.
func (s3 *S3Store) Remove(ctx context.Context, location string) error {
	if err := ValidateLocation(location); err != nil {
		return err
	}

	if _, err := s3.client.StatObject(ctx, s3.bucket, location, minio.StatObjectOptions{}); err != nil {
		return s3.mapError(location, err)
	}
	if err := s3.client.RemoveObject(ctx, s3.bucket, location, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("ошибка удаления объекта %s: %w", location, err)
	}
	return nil
}

// Exists проверяет наличие объекта.
func (s3 *S3Store) Exists(ctx context.Context, location string) (bool, error) {
	if err := ValidateLocation(location); err != nil {
		return false, err
	}

	_, err := s3.client.StatObject(ctx, s3.bucket, location, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, fmt.Errorf("ошибка проверки объекта %s: %w", location, err)
}

// Check проверяет доступность bucket.
func (s3 *S3Store) Check(ctx context.Context) error {
	exists, err := s3.client.BucketExists(ctx, s3.bucket)
	if err != nil {
		return fmt.Errorf("S3 недоступен: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s не существует", s3.bucket)
	}
	return nil
}

func (s3 *S3Store) mapError(location string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, location)
	}
	return fmt.Errorf("ошибка доступа к объекту %s: %w", location, err)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
