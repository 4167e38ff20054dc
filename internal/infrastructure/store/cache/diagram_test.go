package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/store/memory"
	"archdiagram/internal/infrastructure/store/storetest"
)

type countingRepo struct {
	repository.DiagramRepository
	finds int
}

func (c *countingRepo) FindByID(ctx context.Context, id entity.DiagramID) (*entity.Diagram, error) {
	c.finds++
	return c.DiagramRepository.FindByID(ctx, id)
}

func TestCachedRepoContract(t *testing.T) {
	storetest.RunRepositoryContract(t, func(t *testing.T) repository.DiagramRepository {
		r, err := NewDiagramRepo(memory.NewDiagramRepo(), 8)
		require.NoError(t, err)
		return r
	})
}

func TestCacheServesRepeatedReads(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{DiagramRepository: memory.NewDiagramRepo()}
	r, err := NewDiagramRepo(backing, 8)
	require.NoError(t, err)

	d := storetest.NewDiagram(t, "Cached")
	require.NoError(t, backing.Save(ctx, d))

	for i := 0; i < 3; i++ {
		got, err := r.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
	}
	assert.Equal(t, 1, backing.finds)
	assert.Equal(t, 1, r.Len())
}

func TestCacheEvictsOnDelete(t *testing.T) {
	ctx := context.Background()
	r, err := NewDiagramRepo(memory.NewDiagramRepo(), 8)
	require.NoError(t, err)

	d := storetest.NewDiagram(t, "Gone")
	require.NoError(t, r.Save(ctx, d))
	require.NoError(t, r.Delete(ctx, d.ID))

	_, err = r.FindByID(ctx, d.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.Equal(t, 0, r.Len())
}

// stallingRepo reads the record, then waits on gate before returning it.
type stallingRepo struct {
	repository.DiagramRepository
	started chan struct{}
	gate    chan struct{}
}

func (s *stallingRepo) FindByID(ctx context.Context, id entity.DiagramID) (*entity.Diagram, error) {
	d, err := s.DiagramRepository.FindByID(ctx, id)
	close(s.started)
	<-s.gate
	return d, err
}

func TestCacheDeleteDuringMiss(t *testing.T) {
	ctx := context.Background()
	backing := &stallingRepo{
		DiagramRepository: memory.NewDiagramRepo(),
		started:           make(chan struct{}),
		gate:              make(chan struct{}),
	}
	r, err := NewDiagramRepo(backing, 8)
	require.NoError(t, err)

	d := storetest.NewDiagram(t, "Racy")
	require.NoError(t, backing.Save(ctx, d))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = r.FindByID(ctx, d.ID)
	}()
	<-backing.started
	go func() {
		defer wg.Done()
		assert.NoError(t, r.Delete(ctx, d.ID))
	}()
	close(backing.gate)
	wg.Wait()

	assert.Equal(t, 0, r.Len())
	_, err = backing.DiagramRepository.FindByID(ctx, d.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCacheBoundedSize(t *testing.T) {
	ctx := context.Background()
	r, err := NewDiagramRepo(memory.NewDiagramRepo(), 2)
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, r.Save(ctx, storetest.NewDiagram(t, name)))
	}
	assert.Equal(t, 2, r.Len())

	all, err := r.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
