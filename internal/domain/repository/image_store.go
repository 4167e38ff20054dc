package repository

import (
	"context"
	"io"
)

type ImageStore interface {
	// Publish takes ownership of a rendered file and returns the name it is served under.
	Publish(ctx context.Context, localPath string) (string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}
