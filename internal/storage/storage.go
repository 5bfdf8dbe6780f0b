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

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/vietanh2810/rally-api/internal/config"
)

var (
	ErrNotConfigured     = errors.New("upload storage is not configured")
	ErrInvalidCollection = errors.New("invalid upload collection")
	ErrEmptyFilename     = errors.New("filename is required")
)

// Collections that accept uploads.
var Collections = map[string]bool{
	"events":      true,
	"gallery":     true,
	"merchandise": true,
}

type Uploader interface {
	Upload(ctx context.Context, collection, filename, contentType string, r io.Reader) (string, error)
}

// ObjectKey names an uploaded object "<collection>/<unix-millis>-<filename>".
// Only the base name of filename is kept.
func ObjectKey(collection, filename string, now time.Time) (string, error) {
	if !Collections[collection] {
		return "", fmt.Errorf("%w: %q", ErrInvalidCollection, collection)
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return "", ErrEmptyFilename
	}

	return fmt.Sprintf("%s/%d-%s", collection, now.UnixMilli(), name), nil
}

// DownloadURL is the public Firebase Storage URL of an object carrying the
// given download token.
func DownloadURL(bucket, key, token string) string {
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(key), token)
}

type FirebaseUploader struct {
	bucketName string
	bucket     *gcs.BucketHandle
	now        func() time.Time
}

func NewFirebaseUploader(ctx context.Context, conf *config.FirebaseConfig) (*FirebaseUploader, error) {
	if conf.StorageBucket == "" {
		return nil, ErrNotConfigured
	}

	var opts []option.ClientOption
	if conf.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: conf.StorageBucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp -> %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Storage -> %w", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("client.DefaultBucket -> %w", err)
	}

	return &FirebaseUploader{
		bucketName: conf.StorageBucket,
		bucket:     bucket,
		now:        time.Now,
	}, nil
}

func (u *FirebaseUploader) Upload(ctx context.Context, collection, filename, contentType string, r io.Reader) (string, error) {
	key, err := ObjectKey(collection, filename, u.now())
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	token := uuid.NewString()
	w := u.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}

	if err = writeObject(w, cancel, r); err != nil {
		return "", fmt.Errorf("writeObject %s -> %w", key, err)
	}

	return DownloadURL(u.bucketName, key, token), nil
}

// writeObject copies r into w and commits it. A failed copy cancels the
// writer's context before closing, so the partial object is discarded.
func writeObject(w io.WriteCloser, cancel context.CancelFunc, r io.Reader) error {
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("io.Copy -> %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("w.Close -> %w", err)
	}
	return nil
}
