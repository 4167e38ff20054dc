package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

// ImageStore serves rendered images from a local directory.
type ImageStore struct {
	basePath string
}

var _ repository.ImageStore = (*ImageStore)(nil)

func NewImageStore(basePath string) (*ImageStore, error) {
	info, err := os.Stat(basePath)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(basePath, 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", basePath, mkErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to check directory %s: %w", basePath, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %s exists but is not a directory", basePath)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory %s: %w", basePath, err)
	}

	return &ImageStore{
		basePath: abs,
	}, nil
}

// Publish moves a rendered file into the store unless it already lives there.
func (s *ImageStore) Publish(ctx context.Context, localPath string) (string, error) {
	metrics.IncImageOp("filesystem", "publish")

	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve image path: %w", err)
	}
	name := filepath.Base(abs)
	if filepath.Dir(abs) == s.basePath {
		if _, err := os.Stat(abs); err != nil {
			metrics.IncError("image_store", "publish_stat")
			return "", fmt.Errorf("failed to stat image %s: %w", name, err)
		}
		return name, nil
	}

	if err := copyFile(abs, filepath.Join(s.basePath, name)); err != nil {
		metrics.IncError("image_store", "publish_copy")
		return "", err
	}
	_ = os.Remove(abs)
	return name, nil
}

func (s *ImageStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	metrics.IncImageOp("filesystem", "open")

	path, err := s.resolve(name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("image %s: %w", name, entity.ErrNotFound)
		}
		metrics.IncError("image_store", "open")
		return nil, 0, fmt.Errorf("failed to open image %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("failed to stat image %s: %w", name, err)
	}
	return f, info.Size(), nil
}

func (s *ImageStore) Delete(ctx context.Context, name string) error {
	metrics.IncImageOp("filesystem", "delete")

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("image %s: %w", name, entity.ErrNotFound)
		}
		return fmt.Errorf("failed to delete image %s: %w", name, err)
	}
	return nil
}

// List returns the published image names in lexical order.
func (s *ImageStore) List(ctx context.Context) ([]string, error) {
	var images []string

	err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != s.basePath {
			return filepath.SkipDir
		}
		if !d.IsDir() && isImageName(d.Name()) {
			images = append(images, d.Name())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(images)
	return images, nil
}

func (s *ImageStore) resolve(name string) (string, error) {
	if !isImageName(name) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: invalid image name %q", entity.ErrInvalidInput, name)
	}
	return filepath.Join(s.basePath, name), nil
}

func isImageName(name string) bool {
	return strings.HasSuffix(name, ".png") && !strings.HasPrefix(name, ".")
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(fmt.Errorf("failed to copy image: %w", err), os.Remove(dst))
	}
	return nil
}
