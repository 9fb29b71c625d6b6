package bootstrap

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"foodassist-backend/internal/engine"
	"foodassist-backend/internal/history"
	"foodassist-backend/internal/prefs"
	"foodassist-backend/internal/recommend"
	"foodassist-backend/internal/shared/config"
	"foodassist-backend/internal/shared/server"
	"foodassist-backend/internal/shared/storage/db"
	"foodassist-backend/internal/shared/storage/object"
	localstore "foodassist-backend/internal/shared/storage/object/local"
	s3store "foodassist-backend/internal/shared/storage/object/s3"
	"foodassist-backend/internal/shared/telemetry"
)

// App holds shared dependencies built once at startup.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Photos       object.ObjectStore
	Engine       engine.Engine
	PrefsRepo    prefs.Repo
	HistoryRepo  history.Repo
	Orchestrator *recommend.Orchestrator
}

// Build prepares shared dependencies and the router. Engine initialization
// is left to the caller so servers can run it in the background while tests
// run it synchronously.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, prefsRepo, historyRepo := buildStores(ctx, cfg)

	photos, err := buildPhotoStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	eng := buildEngine(cfg)

	orch := recommend.New(recommend.Config{
		Prefs:   prefsRepo,
		History: historyRepo,
		Engine:  eng,
	})
	orch.Subscribe(func(t recommend.Transition) {
		telemetry.Info("pipeline.transition", map[string]any{
			"state":   t.State.String(),
			"message": t.Message,
		})
	})

	app := &App{
		Config:       cfg,
		DB:           sqlDB,
		Photos:       photos,
		Engine:       eng,
		PrefsRepo:    prefsRepo,
		HistoryRepo:  historyRepo,
		Orchestrator: orch,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             cfg,
		RecommendHandler:   recommend.NewHandler(orch, eng, photos),
		PreferencesHandler: prefs.NewHandler(prefsRepo, orch),
		HistoryHandler:     history.NewHandler(historyRepo),
	})

	return app, nil
}

func buildStores(ctx context.Context, cfg config.Config) (*sql.DB, prefs.Repo, history.Repo) {
	switch cfg.Store {
	case "postgres":
		dbConn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("bootstrap: database connect failed, using in-memory stores: %v", err)
			break
		}
		if err := db.RunMigrations(ctx, dbConn); err != nil {
			log.Printf("bootstrap: migrations failed, using in-memory stores: %v", err)
			break
		}
		return dbConn, &prefs.PGRepo{DB: dbConn}, &history.PGRepo{DB: dbConn}
	case "sqlite":
		dbConn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Printf("bootstrap: sqlite open failed, using in-memory stores: %v", err)
			break
		}
		prefsRepo := &prefs.SQLiteRepo{DB: dbConn}
		historyRepo := &history.SQLiteRepo{DB: dbConn}
		if err := initSQLiteSchema(ctx, prefsRepo, historyRepo); err != nil {
			log.Printf("bootstrap: sqlite schema init failed, using in-memory stores: %v", err)
			break
		}
		return dbConn, prefsRepo, historyRepo
	}
	return nil, prefs.NewMemoryRepo(), history.NewMemoryRepo()
}

func initSQLiteSchema(ctx context.Context, prefsRepo *prefs.SQLiteRepo, historyRepo *history.SQLiteRepo) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := prefsRepo.InitSchema(ctx); err != nil {
		return err
	}
	return historyRepo.InitSchema(ctx)
}

func buildPhotoStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildEngine(cfg config.Config) engine.Engine {
	if cfg.Engine == "model" {
		return engine.NewModel(engine.ModelConfig{
			Path:     cfg.ModelPath,
			MinBytes: cfg.ModelMinBytes,
			BaseURL:  cfg.LLMBaseURL,
			Model:    cfg.LLMModel,
		})
	}
	return engine.NewReference(cfg.InferLatency)
}
