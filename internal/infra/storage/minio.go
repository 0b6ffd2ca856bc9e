package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/plantcare/internal/domain/plants"
)

type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	publicURL  string
}

// New buat koneksi MinIO dan pastikan bucket ada
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return &Store{
		client:     cli,
		bucketName: bucket,
		region:     region,
		publicURL:  fmt.Sprintf("%s://%s/%s", scheme, cli.EndpointURL().Host, bucket),
	}, nil
}

// PutImage uploads an analyzed photo and returns its URL. The URL is only
// directly readable when the bucket is public; otherwise clients presign it.
func (s *Store) PutImage(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", err
	}
	return s.publicURL + "/" + key, nil
}

// Slot returns the profile collection blob stored as one object.
func (s *Store) Slot(name string) *ObjectSlot {
	return &ObjectSlot{store: s, key: "slots/" + name + ".json"}
}

// Check is used by the health endpoint.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

// ObjectSlot is a Slot backed by a single object. S3 PUT replaces an object
// as a whole, which gives the required all-or-nothing write.
type ObjectSlot struct {
	store *Store
	key   string
}

func (o *ObjectSlot) Read(ctx context.Context) ([]byte, error) {
	obj, err := o.store.client.GetObject(ctx, o.store.bucketName, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, notFoundAsEmpty(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFoundAsEmpty(err)
	}
	return data, nil
}

func (o *ObjectSlot) Write(ctx context.Context, data []byte) error {
	_, err := o.store.client.PutObject(ctx, o.store.bucketName, o.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func notFoundAsEmpty(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return domain.ErrSlotEmpty
	}
	return err
}
