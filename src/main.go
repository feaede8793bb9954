package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"restaurantfinder/src/config"
	"restaurantfinder/src/db"
	"restaurantfinder/src/finder"
	"restaurantfinder/src/graceful"
	"restaurantfinder/src/handlers"
	"restaurantfinder/src/token"
	"restaurantfinder/src/types"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type closer interface {
	Close(ctx context.Context) error
}

func main() {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	configureLogging(cfg)

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func configureLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)
	log.SetLevel(cfg.LogLevel)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	startCtx, startCancel := context.WithTimeout(ctx, startupTimeout)
	defer startCancel()

	store, users, conn, err := openStores(startCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer closeCancel()
		if err := conn.Close(closeCtx); err != nil {
			log.WithError(err).Warn("Closing store failed")
		}
	}()

	if cfg.SeedFile != "" {
		restaurants, err := db.ReadRestaurants(cfg.SeedFile)
		if err != nil {
			return errors.Wrap(err, "load seed data")
		}
		if err := store.Seed(startCtx, restaurants); err != nil {
			return errors.Wrap(err, "seed store")
		}
	}

	auth := token.NewAuth(users, cfg.SigningKey, cfg.TokenTTL)
	var handler http.Handler = handlers.NewRouter(finder.NewService(store), auth)
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler(handler)
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Server shutdown failed")
		}
	}()

	log.WithFields(log.Fields{"addr": cfg.HTTPAddr, "store": cfg.StoreBackend}).Info("Server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serve http")
	}
	log.Info("Server stopped")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config) (types.DataStore, types.UserStore, closer, error) {
	if cfg.StoreBackend == config.BackendElastic {
		es, err := db.NewElasticStore(cfg.Elastic.URL, cfg.Elastic.Index)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := es.CreateIndexWithMapping(ctx, cfg.Elastic.Mapping); err != nil {
			es.Client.Stop()
			return nil, nil, nil, err
		}
		return es, db.NewStaticUserStore(cfg.AuthUsers), es, nil
	}

	ms, err := db.NewMongoStore(ctx, cfg.Mongo)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := ms.EnsureIndexes(ctx); err != nil {
		log.WithError(err).Warn("Could not ensure indexes, spherical queries will run unindexed")
	}

	if cfg.UserBackend == config.BackendStatic {
		return ms, db.NewStaticUserStore(cfg.AuthUsers), ms, nil
	}
	if len(cfg.AuthUsers) > 0 {
		if err := ms.UpsertUsers(ctx, db.UsersFromMap(cfg.AuthUsers)); err != nil {
			_ = ms.Close(ctx)
			return nil, nil, nil, err
		}
	}
	return ms, ms, ms, nil
}
