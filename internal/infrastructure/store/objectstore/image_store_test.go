package objectstore

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/internal/domain/entity"
)

func TestNewImageStoreValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name   string
		cfg    Config
		errMsg string
	}{
		{name: "no endpoint", cfg: Config{AccessKey: "a", SecretKey: "s", Bucket: "b"}, errMsg: "endpoint"},
		{name: "no keys", cfg: Config{Endpoint: "localhost:9000", Bucket: "b"}, errMsg: "access key"},
		{name: "no bucket", cfg: Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, errMsg: "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImageStore(tt.cfg, logger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	s, err := NewImageStore(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b", Prefix: "/images/"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "images/abc.png", s.objectKey("abc.png"))
	assert.Equal(t, "us-east-1", s.region)
}

func TestInvalidNamesRejectedBeforeNetwork(t *testing.T) {
	s, err := NewImageStore(Config{Endpoint: "localhost:1", AccessKey: "a", SecretKey: "s", Bucket: "b"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, _, err = s.Open(context.Background(), "../secret.png")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
	assert.ErrorIs(t, s.Delete(context.Background(), "notes.txt"), entity.ErrInvalidInput)
}

func TestNormalizePrefix(t *testing.T) {
	assert.Equal(t, "", normalizePrefix(" "))
	assert.Equal(t, "a/b/", normalizePrefix("/a/b/"))
}
