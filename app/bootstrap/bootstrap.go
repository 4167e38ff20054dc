// Package bootstrap assembles the application from configuration. Both the
// HTTP server and the Lambda entrypoint start from here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"archdiagram/app/config"
	"archdiagram/app/usecase"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/llm"
	"archdiagram/internal/infrastructure/render"
	"archdiagram/internal/infrastructure/store/cache"
	"archdiagram/internal/infrastructure/store/filesystem"
	"archdiagram/internal/infrastructure/store/memory"
	mongorepo "archdiagram/internal/infrastructure/store/mongodb"
	"archdiagram/internal/infrastructure/store/objectstore"
	"archdiagram/internal/infrastructure/store/sqlstore"
	"archdiagram/internal/infrastructure/transport"
)

type App struct {
	Handler  http.Handler
	Diagrams *usecase.DiagramService
	Chat     *usecase.ChatService
	Health   *usecase.HealthService

	closers []func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{}

	completer, err := newCompleter(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	gateway := llm.NewGateway(completer, logger)

	repo, err := app.newRepository(ctx, cfg, logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	images, err := newImageStore(cfg, logger)
	if err != nil {
		_ = app.Close(ctx)
		return nil, err
	}

	catalog := render.NewCatalog()
	imageDir := cfg.Render.ImageDir
	pool := usecase.NewAgentPool(cfg.Pool.Size, func() (*usecase.Agent, error) {
		return &usecase.Agent{
			LLM:      gateway,
			Renderer: render.NewGraphvizRenderer(imageDir, logger),
		}, nil
	}, logger)

	app.Diagrams = usecase.NewDiagramService(repo, images, catalog, pool, logger)
	app.Chat = usecase.NewChatService(app.Diagrams, logger)
	app.Health = usecase.NewHealthService(pool, repo, catalog, logger)

	handler := transport.NewDiagramHandler(app.Diagrams, app.Chat, app.Health, logger)
	app.Handler = transport.NewRouter(handler, logger)

	logger.Info("application assembled",
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"storage_backend", cfg.Storage.Backend,
		"image_store", cfg.Storage.ImageStore,
		"pool_size", pool.Size(),
		"cache_size", cfg.Cache.Size,
	)
	return app, nil
}

// Close releases backend connections in reverse order of creation.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newCompleter(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		c, err := llm.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
		return c, nil
	case config.ProviderOpenAI:
		return llm.NewChatCompletionsCompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func (a *App) newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.DiagramRepository, error) {
	var repo repository.DiagramRepository

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		// A cache in front of the memory store would only duplicate it.
		return memory.NewDiagramRepo(), nil

	case config.BackendMongo:
		mongoCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongo.Connect(mongoCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		a.closers = append(a.closers, client.Disconnect)
		if err := client.Ping(mongoCtx, nil); err != nil {
			return nil, fmt.Errorf("mongo ping: %w", err)
		}
		logger.Info("connected to mongo", "database", cfg.Mongo.Database)

		mongoRepo := mongorepo.NewMongoDiagramRepo(client.Database(cfg.Mongo.Database), logger)
		if err := mongoRepo.EnsureIndexes(mongoCtx); err != nil {
			return nil, err
		}
		repo = mongoRepo

	case config.BackendSQL:
		if err := ensureSQLiteDir(cfg.SQL); err != nil {
			return nil, err
		}
		store, err := sqlstore.New(cfg.SQL.Driver, cfg.SQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sql store: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		logger.Info("opened sql store", "driver", cfg.SQL.Driver)
		repo = store

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	if cfg.Cache.Size == 0 {
		return repo, nil
	}
	cached, err := cache.NewDiagramRepo(repo, cfg.Cache.Size)
	if err != nil {
		return nil, fmt.Errorf("init diagram cache: %w", err)
	}
	return cached, nil
}

func ensureSQLiteDir(cfg config.SQLConfig) error {
	if cfg.Driver != "sqlite3" || cfg.DSN == ":memory:" || strings.HasPrefix(cfg.DSN, "file:") {
		return nil
	}
	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite directory %s: %w", dir, err)
	}
	return nil
}

func newImageStore(cfg *config.Config, logger *slog.Logger) (repository.ImageStore, error) {
	switch cfg.Storage.ImageStore {
	case config.ImageStoreFilesystem:
		store, err := filesystem.NewImageStore(cfg.Render.ImageDir)
		if err != nil {
			return nil, fmt.Errorf("init image dir: %w", err)
		}
		return store, nil
	case config.ImageStoreS3:
		store, err := objectstore.NewImageStore(objectstore.Config{
			Endpoint:  cfg.ObjectStore.Endpoint,
			Region:    cfg.ObjectStore.Region,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			Bucket:    cfg.ObjectStore.Bucket,
			Prefix:    cfg.ObjectStore.Prefix,
			UseSSL:    cfg.ObjectStore.UseSSL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.Storage.ImageStore)
	}
}
