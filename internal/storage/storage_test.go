package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLocal(dir, "http://localhost:3000/files/")
	require.NoError(t, err)

	key := "7d9c/abc.png"
	require.NoError(t, l.Put(context.Background(), key, "image/png", strings.NewReader("png-bytes"), 9))

	data, err := os.ReadFile(filepath.Join(dir, "7d9c", "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "http://localhost:3000/files/7d9c/abc.png", l.PublicURL(key))
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "http://localhost/files")
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "/abs/path", "."} {
		err := l.Put(context.Background(), key, "image/png", strings.NewReader("x"), 1)
		assert.Error(t, err, key)
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	f.body, _ = io.ReadAll(params.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Put(t *testing.T) {
	fake := &fakeS3{}
	s := &S3{
		client:    fake,
		bucket:    "chat-images",
		publicURL: "https://project.supabase.co/storage/v1/object/public/chat-images",
	}

	require.NoError(t, s.Put(context.Background(), "t1/a.webp", "image/webp", bytes.NewReader([]byte("webp")), 4))
	assert.Equal(t, "chat-images", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "t1/a.webp", aws.ToString(fake.input.Key))
	assert.Equal(t, "image/webp", aws.ToString(fake.input.ContentType))
	assert.Equal(t, int64(4), aws.ToInt64(fake.input.ContentLength))
	assert.Equal(t, "webp", string(fake.body))
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/chat-images/t1/a.webp", s.PublicURL("t1/a.webp"))

	fake.err = errors.New("bucket not found")
	err := s.Put(context.Background(), "t1/b.webp", "image/webp", bytes.NewReader(nil), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket not found")
}
