package s3minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"orderChat/internal/domain/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Host      string `yaml:"host" env:"ARCHIVE_HOST"`
	Port      string `yaml:"port" env:"ARCHIVE_PORT" env-default:"9000"`
	AccessKey string `yaml:"access_key" env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"ARCHIVE_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"ARCHIVE_BUCKET" env-default:"chat-transcripts"`
	UseSSL    bool   `yaml:"use_ssl" env:"ARCHIVE_USE_SSL" env-default:"false"`
}

func (c *Config) Enabled() bool {
	return c.Host != ""
}

func (c *Config) Endpoint() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func NewConn(config *Config) (*minio.Client, error) {
	minioClient, err := minio.New(
		config.Endpoint(), &minio.Options{
			Creds: credentials.NewStaticV4(
				config.AccessKey,
				config.SecretKey,
				"",
			),
			Secure: config.UseSSL,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	_, err = minioClient.ListBuckets(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to reach minio: %w", err)
	}

	return minioClient, nil
}

// ObjectStore is the subset of *minio.Client used for transcripts.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(
		ctx context.Context,
		bucketName, objectName string,
		reader io.Reader,
		objectSize int64,
		opts minio.PutObjectOptions,
	) (minio.UploadInfo, error)
}

type MinioRepository struct {
	store  ObjectStore
	bucket string
}

func New(store ObjectStore, bucket string) *MinioRepository {
	return &MinioRepository{
		store:  store,
		bucket: bucket,
	}
}

func (s *MinioRepository) ConfigureMinioStorage(ctx context.Context) error {
	found, err := s.store.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("s3minio.ConfigureMinioStorage: %w", err)
	}

	if found {
		return nil
	}

	if err := s.store.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("s3minio.ConfigureMinioStorage: %w", err)
	}

	return nil
}

type transcriptMessage struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type transcript struct {
	ChatRoomID string              `json:"chat_room_id"`
	OrderID    string              `json:"order_id"`
	Summary    string              `json:"summary"`
	ClosedAt   time.Time           `json:"closed_at"`
	Messages   []transcriptMessage `json:"messages"`
}

func ObjectName(room models.ChatRoom) string {
	return fmt.Sprintf("chat-rooms/%s.json", room.ID)
}

// ArchiveTranscript stores the closed room together with its full history.
func (s *MinioRepository) ArchiveTranscript(
	ctx context.Context,
	room models.ChatRoom,
	messages []models.Message,
) error {
	const op = "s3minio.ArchiveTranscript"

	t := transcript{
		ChatRoomID: room.ID.String(),
		OrderID:    room.OrderID.String(),
		Summary:    room.Summary,
		ClosedAt:   room.UpdatedAt,
		Messages:   make([]transcriptMessage, 0, len(messages)),
	}

	for _, m := range messages {
		t.Messages = append(t.Messages, transcriptMessage{
			ID:        m.ID.String(),
			SenderID:  m.SenderID.String(),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}

	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.store.PutObject(
		ctx,
		s.bucket,
		ObjectName(room),
		bytes.NewReader(body),
		int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
