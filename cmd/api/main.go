package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-cms-go/internal/blog"
	blogrepo "github.com/ovaphlow/pitchfork/service-cms-go/internal/blog/repo"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/page"
	pagerepo "github.com/ovaphlow/pitchfork/service-cms-go/internal/page/repo"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-cms-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-cms-go/internal/usertype"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-cms-go/pkg/utilities"
)

// repos bundles the three storage backends plus their teardown.
type repos struct {
	users user.Repository
	blog  blog.Repository
	pages page.Repository
	close func()
}

func openStorage(ctx context.Context, cfg config.Config, types *usertype.Map, sugar *zap.SugaredLogger) (repos, error) {
	if cfg.StorageDriver == config.DriverPostgres {
		db, err := database.Connect(database.Config{
			DSN:      cfg.DatabaseURL,
			MaxConns: cfg.DatabaseMaxConns,
		})
		if err != nil {
			return repos{}, err
		}
		users := userrepo.NewPostgresRepo(db, types)
		posts := blogrepo.NewPostgresRepo(db)
		pages := pagerepo.NewPostgresRepo(db)
		for _, ensure := range []func(context.Context) error{
			users.EnsureTable, posts.EnsureTable, pages.EnsureTable,
		} {
			if err := ensure(ctx); err != nil {
				db.Close()
				return repos{}, fmt.Errorf("ensure tables: %w", err)
			}
		}
		return repos{users: users, blog: posts, pages: pages, close: func() { db.Close() }}, nil
	}

	users, err := userrepo.NewFileRepo(cfg.DataDir, types, sugar)
	if err != nil {
		return repos{}, err
	}
	posts, err := blogrepo.NewFileRepo(cfg.DataDir, sugar)
	if err != nil {
		return repos{}, err
	}
	pages, err := pagerepo.NewFileRepo(cfg.DataDir, sugar)
	if err != nil {
		return repos{}, err
	}
	return repos{users: users, blog: posts, pages: pages, close: func() {
		users.Close()
		posts.Close()
		pages.Close()
	}}, nil
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	_ = godotenv.Load()

	lg, err := utilities.InitLogger(utilities.LoggerConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-cms-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	if cfg.UsingInsecureSecret() {
		sugar.Warn("JWT_SECRET is unset, signing tokens with the insecure default secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	types := usertype.NewMap()
	signer := token.NewSigner(cfg.JWTSecret)

	store, err := openStorage(ctx, cfg, types, sugar)
	if err != nil {
		sugar.Fatalf("storage (%s): %v", cfg.StorageDriver, err)
	}
	defer store.close()
	sugar.Infow("storage ready", "driver", cfg.StorageDriver)

	userSvc := user.NewService(store.users, types, signer, nil, sugar)
	if err := userSvc.EnsureAdmin(ctx, cfg.AdminInitialPassword); err != nil {
		sugar.Fatalf("seed admin: %v", err)
	}

	handler := router.RegisterRoutes(sugar, signer, types,
		user.NewHandler(userSvc, types, sugar),
		blog.NewHandler(blog.NewService(store.blog, sugar), sugar),
		page.NewHandler(page.NewService(store.pages, sugar), sugar),
	)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}

	go func() {
		sugar.Infow("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
