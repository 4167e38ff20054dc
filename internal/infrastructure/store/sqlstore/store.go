package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store is a DiagramRepository backed by sqlite3 or postgres.
// Nodes, connections and clusters are stored as JSON text columns.
type Store struct {
	db     *sqlx.DB
	driver string
}

var _ repository.DiagramRepository = (*Store)(nil)

// New connects and runs migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if driver == "sqlite3" {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db.DB, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type diagramRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Nodes       string    `db:"nodes"`
	Connections string    `db:"connections"`
	Clusters    string    `db:"clusters"`
	Image       string    `db:"image"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func toRow(d *entity.Diagram) (diagramRow, error) {
	nodes, err := json.Marshal(d.Nodes)
	if err != nil {
		return diagramRow{}, fmt.Errorf("encoding nodes: %w", err)
	}
	connections, err := json.Marshal(d.Connections)
	if err != nil {
		return diagramRow{}, fmt.Errorf("encoding connections: %w", err)
	}
	clusters, err := json.Marshal(d.Clusters)
	if err != nil {
		return diagramRow{}, fmt.Errorf("encoding clusters: %w", err)
	}
	return diagramRow{
		ID:          d.ID.String(),
		Name:        d.Name,
		Nodes:       string(nodes),
		Connections: string(connections),
		Clusters:    string(clusters),
		Image:       d.Image,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func (r diagramRow) toDiagram() (*entity.Diagram, error) {
	d := &entity.Diagram{
		ID:        entity.DiagramID(r.ID),
		Name:      r.Name,
		Image:     r.Image,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Nodes), &d.Nodes); err != nil {
		return nil, fmt.Errorf("decoding nodes of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Connections), &d.Connections); err != nil {
		return nil, fmt.Errorf("decoding connections of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Clusters), &d.Clusters); err != nil {
		return nil, fmt.Errorf("decoding clusters of %s: %w", r.ID, err)
	}
	return d, nil
}

func (s *Store) Save(ctx context.Context, d *entity.Diagram) error {
	metrics.IncRepositoryOp("sql", "save")

	row, err := toRow(d)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO diagrams (id, name, nodes, connections, clusters, image, created_at, updated_at)
		 VALUES (:id, :name, :nodes, :connections, :clusters, :image, :created_at, :updated_at)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   nodes = excluded.nodes,
		   connections = excluded.connections,
		   clusters = excluded.clusters,
		   image = excluded.image,
		   updated_at = excluded.updated_at`,
		row)
	if err != nil {
		metrics.IncError("sql_diagram_repo", "save_error")
		return fmt.Errorf("saving diagram %s: %w", d.ID, err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id entity.DiagramID) (*entity.Diagram, error) {
	metrics.IncRepositoryOp("sql", "get")

	var row diagramRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM diagrams WHERE id = $1`, id.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("diagram %s: %w", id, entity.ErrNotFound)
		}
		metrics.IncError("sql_diagram_repo", "get_error")
		return nil, fmt.Errorf("getting diagram %s: %w", id, err)
	}
	return row.toDiagram()
}

func (s *Store) FindByName(ctx context.Context, name string) (*entity.Diagram, error) {
	metrics.IncRepositoryOp("sql", "get")

	var row diagramRow
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM diagrams WHERE name = $1 ORDER BY created_at, id LIMIT 1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("diagram named %q: %w", name, entity.ErrNotFound)
		}
		metrics.IncError("sql_diagram_repo", "get_by_name_error")
		return nil, fmt.Errorf("getting diagram named %q: %w", name, err)
	}
	return row.toDiagram()
}

func (s *Store) FindAll(ctx context.Context) ([]*entity.Diagram, error) {
	metrics.IncRepositoryOp("sql", "list")

	var rows []diagramRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM diagrams ORDER BY created_at, id`); err != nil {
		metrics.IncError("sql_diagram_repo", "list_error")
		return nil, fmt.Errorf("listing diagrams: %w", err)
	}

	diagrams := make([]*entity.Diagram, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDiagram()
		if err != nil {
			metrics.IncError("sql_diagram_repo", "list_decode_error")
			return nil, err
		}
		diagrams = append(diagrams, d)
	}
	return diagrams, nil
}

func (s *Store) Delete(ctx context.Context, id entity.DiagramID) error {
	metrics.IncRepositoryOp("sql", "delete")

	res, err := s.db.ExecContext(ctx, `DELETE FROM diagrams WHERE id = $1`, id.String())
	if err != nil {
		metrics.IncError("sql_diagram_repo", "delete_error")
		return fmt.Errorf("deleting diagram %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting diagram %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("diagram %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
