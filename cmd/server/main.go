package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/meghatales/bookstore/internal/blobstore"
	"github.com/meghatales/bookstore/internal/cart"
	"github.com/meghatales/bookstore/internal/clock"
	"github.com/meghatales/bookstore/internal/config"
	"github.com/meghatales/bookstore/internal/db"
	"github.com/meghatales/bookstore/internal/docstore"
	"github.com/meghatales/bookstore/internal/events"
	"github.com/meghatales/bookstore/internal/handlers"
	"github.com/meghatales/bookstore/internal/logging"
	"github.com/meghatales/bookstore/internal/mail"
	"github.com/meghatales/bookstore/internal/preview"
	"github.com/meghatales/bookstore/internal/search"
	"github.com/meghatales/bookstore/internal/service/token"
	httpserver "github.com/meghatales/bookstore/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(configuration.REFRESH_SECRET, "REFRESH_SECRET")

	logger := logging.New(configuration.LOG_LEVEL)

	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DSN(
		configuration.DB_USER, configuration.DB_PASSWORD,
		configuration.DB_HOST, configuration.DB_PORT, configuration.DB_NAME,
	))
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	mongoClient, mongoDB, err := blobstore.Connect(ctx, configuration.MONGO_URI, configuration.MONGO_DB)
	if err != nil {
		log.Fatalf("mongo init error: %v", err)
	}
	blobs, err := blobstore.NewGridFSStore(mongoDB, configuration.PUBLIC_URL)
	if err != nil {
		log.Fatal(err)
	}

	var searchSvc *search.Service
	if configuration.ES_URL != "" {
		esClient, err := search.NewClient(configuration.ES_URL, configuration.ES_USER, configuration.ES_PASSWORD)
		if err != nil {
			log.Fatal(err)
		}
		searchSvc = search.NewService(esClient, search.Index)
	}

	var producer *events.Producer
	if configuration.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{configuration.KAFKA_ADDRESS})
	}

	store := docstore.NewGormStore(gdb)
	clk := clock.System{}
	tracker := preview.NewTracker(store, clk, configuration.PREVIEW_QUOTA)
	sender := mail.NewSender(configuration.SENDGRID_KEY, configuration.MAIL_FROM)

	jwtSecret := []byte(configuration.JWT_SECRET)
	refreshSecret := []byte(configuration.REFRESH_SECRET)
	tokenService := &token.TokenService{DB: gdb, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		AuthHandler:      &handlers.AuthHandler{DB: gdb, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: producer},
		CatalogHandler:   &handlers.CatalogHandler{Store: store, Search: searchSvc, Producer: producer, Clock: clk},
		LibraryHandler:   &handlers.LibraryHandler{Store: store, Blobs: blobs, Producer: producer},
		CartHandler:      &handlers.CartHandler{Sessions: cart.NewSessionStore(), Store: store, DB: gdb, Producer: producer, Mail: sender, Clock: clk},
		PreviewHandler:   &handlers.PreviewHandler{Tracker: tracker, Producer: producer},
		DashboardHandler: &handlers.DashboardHandler{DB: gdb, Tracker: tracker},
		SearchHandler:    &handlers.SearchHandler{Service: searchSvc},
		TokenService:     tokenService,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", configuration.PORT)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}
	if err := mongoClient.Disconnect(shutdownCtx); err != nil {
		logger.Error("mongo close error", "error", err)
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
