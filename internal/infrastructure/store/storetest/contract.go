// Package storetest holds the behaviour every DiagramRepository must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/domain/service"
)

func NewDiagram(t *testing.T, name string) *entity.Diagram {
	t.Helper()
	d, err := service.NewSpecificationBuilder().Build(entity.Specification{
		Name: name,
		Nodes: []entity.NodeSpec{
			{ID: "web", Type: "aws_ec2", Label: "Web"},
			{ID: "db", Type: "aws_rds", Label: "DB", Cluster: "Data"},
		},
		Connections: []entity.ConnectionSpec{{Source: "web", Target: "db", Label: "SQL"}},
	})
	require.NoError(t, err)
	return d
}

// RunRepositoryContract exercises save/find/list/delete semantics.
func RunRepositoryContract(t *testing.T, newRepo func(t *testing.T) repository.DiagramRepository) {
	ctx := context.Background()

	t.Run("save then find by id", func(t *testing.T) {
		repo := newRepo(t)
		d := NewDiagram(t, "Web App")
		require.NoError(t, repo.Save(ctx, d))

		got, err := repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.ID, got.ID)
		assert.Equal(t, d.Name, got.Name)
		assert.Equal(t, d.Nodes, got.Nodes)
		assert.Equal(t, d.Connections, got.Connections)
		assert.Equal(t, d.Clusters, got.Clusters)
		assert.WithinDuration(t, d.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		repo := newRepo(t)
		d := NewDiagram(t, "Web App")
		require.NoError(t, repo.Save(ctx, d))

		d.AttachImage("abc.png")
		require.NoError(t, repo.Save(ctx, d))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "abc.png", all[0].Image)
	})

	t.Run("find by name returns first match", func(t *testing.T) {
		repo := newRepo(t)
		first := NewDiagram(t, "Dup")
		second := NewDiagram(t, "Dup")
		second.CreatedAt = first.CreatedAt.Add(time.Second)
		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, repo.Save(ctx, second))

		got, err := repo.FindByName(ctx, "Dup")
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)

		_, err = repo.FindByName(ctx, "nope")
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("find all and delete", func(t *testing.T) {
		repo := newRepo(t)
		a := NewDiagram(t, "A")
		b := NewDiagram(t, "B")
		b.CreatedAt = a.CreatedAt.Add(time.Second)
		require.NoError(t, repo.Save(ctx, a))
		require.NoError(t, repo.Save(ctx, b))

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, a.ID, all[0].ID)
		assert.Equal(t, b.ID, all[1].ID)

		require.NoError(t, repo.Delete(ctx, a.ID))
		_, err = repo.FindByID(ctx, a.ID)
		assert.ErrorIs(t, err, entity.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, a.ID), entity.ErrNotFound)

		all, err = repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("missing id", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("returned diagrams are copies", func(t *testing.T) {
		repo := newRepo(t)
		d := NewDiagram(t, "Copy")
		require.NoError(t, repo.Save(ctx, d))

		got, err := repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		got.Nodes[0].Label = "mutated"

		again, err := repo.FindByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "Web", again.Nodes[0].Label)
	})

	t.Run("concurrent saves", func(t *testing.T) {
		repo := newRepo(t)
		diagrams := make([]*entity.Diagram, 16)
		for i := range diagrams {
			diagrams[i] = NewDiagram(t, fmt.Sprintf("D%d", i))
		}

		var wg sync.WaitGroup
		for _, d := range diagrams {
			wg.Add(1)
			go func(d *entity.Diagram) {
				defer wg.Done()
				assert.NoError(t, repo.Save(ctx, d))
			}(d)
		}
		wg.Wait()

		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 16)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newRepo(t).Ping(ctx))
	})
}
