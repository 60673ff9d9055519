package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"sst-backend/internal/shared/storage/object"
)

type fakeS3 struct {
	objects map[string][]byte
	puts    []*s3.PutObjectInput
	deleted []string
}

func newFake() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	key := aws.ToString(in.Key)
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestObjectKeyPrefix(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{prefix: "", key: "documents/rendered/acta.pdf", want: "documents/rendered/acta.pdf"},
		{prefix: "sst", key: "documents/rendered/acta.pdf", want: "sst/documents/rendered/acta.pdf"},
		{prefix: "/sst/prod/", key: "/uploads/u-1/firma.png", want: "sst/prod/uploads/u-1/firma.png"},
		{prefix: "sst", key: "", want: "sst"},
	}
	for _, tt := range tests {
		s := newStore(newFake(), Config{Bucket: "b", Prefix: tt.prefix})
		if got := s.objectKey(tt.key); got != tt.want {
			t.Fatalf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestSaveDetectsTypeAndEncrypts(t *testing.T) {
	fake := newFake()
	s := newStore(fake, Config{Bucket: "sst-docs", Prefix: "prod", KMSKeyID: "kms-1"})

	pdf := []byte("%PDF-1.4\n%test\n")
	key, size, mimeType, err := s.Save(context.Background(), "documents/rendered", "Acta 07.pdf", bytes.NewReader(pdf))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(key, "documents/rendered/") || strings.HasPrefix(key, "prod/") {
		t.Fatalf("expected relative key, got %q", key)
	}
	if size != int64(len(pdf)) || mimeType != "application/pdf" {
		t.Fatalf("unexpected size/type: %d %s", size, mimeType)
	}
	put := fake.puts[0]
	if aws.ToString(put.Key) != "prod/"+key || aws.ToString(put.Bucket) != "sst-docs" {
		t.Fatalf("unexpected put target: %s/%s", aws.ToString(put.Bucket), aws.ToString(put.Key))
	}
	if put.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms || aws.ToString(put.SSEKMSKeyId) != "kms-1" {
		t.Fatalf("expected kms encryption, got %s", put.ServerSideEncryption)
	}
	if aws.ToInt64(put.ContentLength) != int64(len(pdf)) {
		t.Fatalf("expected content length %d, got %d", len(pdf), aws.ToInt64(put.ContentLength))
	}
}

func TestSaveWithKeyOpenDelete(t *testing.T) {
	fake := newFake()
	s := newStore(fake, Config{Bucket: "sst-docs"})
	ctx := context.Background()

	if _, err := s.SaveWithKey(ctx, "documents/signed/acta-firmado.pdf", "application/pdf", strings.NewReader("%PDF-signed")); err != nil {
		t.Fatalf("save with key: %v", err)
	}
	if fake.puts[0].ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256 without kms key")
	}

	rc, err := s.Open(ctx, "documents/signed/acta-firmado.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-signed" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := s.Delete(ctx, "documents/signed/acta-firmado.pdf"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Open(ctx, "documents/signed/acta-firmado.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "documents/signed/acta-firmado.pdf"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if len(fake.deleted) != 1 {
		t.Fatalf("expected a single DeleteObject call, got %d", len(fake.deleted))
	}
}

func TestSaveWithKeyRejectsTraversal(t *testing.T) {
	s := newStore(newFake(), Config{Bucket: "b"})
	if _, err := s.SaveWithKey(context.Background(), "../etc/passwd", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
