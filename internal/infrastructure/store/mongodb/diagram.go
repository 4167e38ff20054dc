package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

type MongoDiagramRepo struct {
	col    *mongo.Collection
	logger *slog.Logger
}

var _ repository.DiagramRepository = (*MongoDiagramRepo)(nil)

func NewMongoDiagramRepo(db *mongo.Database, logger *slog.Logger) *MongoDiagramRepo {
	return &MongoDiagramRepo{
		col:    db.Collection("diagrams"),
		logger: logger,
	}
}

// EnsureIndexes creates the lookup indexes used by FindByName and FindAll.
func (r *MongoDiagramRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "name", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "created_at", Value: 1}}},
	})
	if err != nil {
		metrics.IncError("mongo_diagram_repo", "create_index_error")
		return fmt.Errorf("create diagram indexes: %w", err)
	}
	return nil
}

func (r *MongoDiagramRepo) Save(ctx context.Context, d *entity.Diagram) error {
	metrics.IncRepositoryOp("mongo", "save")

	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": d.ID}, d, options.Replace().SetUpsert(true))
	if err != nil {
		metrics.IncError("mongo_diagram_repo", "save_error")
		return fmt.Errorf("save diagram %s: %w", d.ID, err)
	}
	return nil
}

func (r *MongoDiagramRepo) FindByID(ctx context.Context, id entity.DiagramID) (*entity.Diagram, error) {
	metrics.IncRepositoryOp("mongo", "get")

	var d entity.Diagram
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("diagram %s: %w", id, entity.ErrNotFound)
		}
		metrics.IncError("mongo_diagram_repo", "get_error")
		return nil, fmt.Errorf("find diagram %s: %w", id, err)
	}
	return &d, nil
}

func (r *MongoDiagramRepo) FindByName(ctx context.Context, name string) (*entity.Diagram, error) {
	metrics.IncRepositoryOp("mongo", "get")

	opts := options.FindOne().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	var d entity.Diagram
	err := r.col.FindOne(ctx, bson.M{"name": name}, opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("diagram named %q: %w", name, entity.ErrNotFound)
		}
		metrics.IncError("mongo_diagram_repo", "get_by_name_error")
		return nil, fmt.Errorf("find diagram named %q: %w", name, err)
	}
	return &d, nil
}

func (r *MongoDiagramRepo) FindAll(ctx context.Context) ([]*entity.Diagram, error) {
	metrics.IncRepositoryOp("mongo", "list")

	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		metrics.IncError("mongo_diagram_repo", "list_error")
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			r.logger.Warn("close cursor failed", "err", err)
		}
	}()

	diagrams := []*entity.Diagram{}
	for cur.Next(ctx) {
		var d entity.Diagram
		if err := cur.Decode(&d); err != nil {
			metrics.IncError("mongo_diagram_repo", "list_decode_error")
			return nil, fmt.Errorf("decode diagram: %w", err)
		}
		diagrams = append(diagrams, &d)
	}
	if err := cur.Err(); err != nil {
		metrics.IncError("mongo_diagram_repo", "list_cursor_error")
		return nil, fmt.Errorf("iterate diagrams: %w", err)
	}
	return diagrams, nil
}

func (r *MongoDiagramRepo) Delete(ctx context.Context, id entity.DiagramID) error {
	metrics.IncRepositoryOp("mongo", "delete")

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		metrics.IncError("mongo_diagram_repo", "delete_error")
		return fmt.Errorf("delete diagram %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("diagram %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

func (r *MongoDiagramRepo) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, readpref.Primary())
}
