package artifactstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "run-1/docs/Architecture.md", objectKey("run-1", "/docs/Architecture.md"))
	assert.Equal(t, "run-1/guidance.toml", objectKey(" run-1 ", " guidance.toml "))
}

func TestMirrorDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Architecture.md"), []byte("arch"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "logger.py"), []byte("code"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0o644))

	s := NewMemoryStore()
	ctx := context.Background()
	paths, err := MirrorDir(ctx, s, "run-1", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Architecture.md", "src/logger.py"}, paths)

	listed, err := s.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, paths, listed)

	b, err := s.Get(ctx, "run-1", "src/logger.py")
	require.NoError(t, err)
	assert.Equal(t, "code", string(b))

	_, err = s.Get(ctx, "run-2", "src/logger.py")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryStoreValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	assert.Error(t, s.Put(ctx, "", "a", nil))
	assert.Error(t, s.Put(ctx, "r", " ", nil))
	_, err := s.List(ctx, "")
	assert.Error(t, err)
	_, err = MirrorDir(ctx, nil, "r", t.TempDir())
	assert.Error(t, err)
}

func TestNewS3StoreValidation(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000"})
	assert.ErrorContains(t, err, "access key")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "sparc"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
	// key validation happens before any network call
	assert.Error(t, s.Put(context.Background(), "", "x", nil))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown", contentType("Architecture.md"))
	assert.Equal(t, "application/toml", contentType("guidance.toml"))
	assert.Equal(t, "application/json", contentType("report.json"))
	assert.Equal(t, "application/octet-stream", contentType("src/logger.py"))
}
