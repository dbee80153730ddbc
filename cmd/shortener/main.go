package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/shortlink/internal/app/server"
	shortgrpc "github.com/atinyakov/shortlink/internal/app/server/grpc"
	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/config"
	"github.com/atinyakov/shortlink/internal/logger"
	"github.com/atinyakov/shortlink/internal/repository"
	"github.com/atinyakov/shortlink/internal/storage"
)

var buildVersion string
var buildDate string
var buildCommit string

func main() {
	printBuildInfo(os.Stdout)

	options, err := config.Parse()
	if err != nil {
		panic(err)
	}

	log := logger.New()
	if err := log.Init(options.LogLevel, options.Env); err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Fatal("shortener stopped with error", zap.Error(err))
	}
}

func printBuildInfo(w io.Writer) {
	orNA := func(s string) string {
		if s == "" {
			return "N/A"
		}
		return s
	}

	fmt.Fprintf(w, "Build version: %s\n", orNA(buildVersion))
	fmt.Fprintf(w, "Build date: %s\n", orNA(buildDate))
	fmt.Fprintf(w, "Build commit: %s\n", orNA(buildCommit))
}

// openStorage connects the backend selected by the options. The returned
// closer releases it.
func openStorage(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (service.Storage, func() error, error) {
	kind := options.StorageKind()
	zapLogger.Info("opening storage", zap.String("kind", kind))

	switch kind {
	case "postgres":
		db, err := repository.InitDB(ctx, repository.Postgres, options.DatabaseDSN, zapLogger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewURLRepository(db, repository.Postgres, zapLogger), db.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     options.RedisAddr,
			Password: options.RedisPassword,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		s := storage.NewRedisStorage(client, storage.DefaultRedisPrefix)
		return s, s.Close, nil

	case "sqlite":
		db, err := repository.InitDB(ctx, repository.SQLite, options.DatabasePath, zapLogger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewURLRepository(db, repository.SQLite, zapLogger), db.Close, nil

	default:
		return storage.CreateMemoryStorage(), func() error { return nil }, nil
	}
}

func newAuth(options *config.Options) (*service.Auth, error) {
	users := service.NewInMemoryUsers()
	if options.AdminUser != "" {
		if err := users.Add(options.AdminUser, options.AdminPassword); err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
	}
	return service.NewAuth(users, options.SecretKey, options.TokenTTL), nil
}

// run serves HTTP, and gRPC when configured, until ctx is cancelled, then
// shuts everything down in reverse order.
func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	store, closeStore, err := openStorage(ctx, options, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			zapLogger.Error("cannot close storage", zap.Error(err))
		}
	}()

	auth, err := newAuth(options)
	if err != nil {
		return err
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	urlService := service.NewURL(workerCtx, store, nil, zapLogger, service.Options{
		BaseURL:      options.BaseURL,
		CodeLength:   options.CodeLength,
		MaxURLLength: options.MaxURLLength,
		MaxAttempts:  options.MaxAttempts,
	})

	if options.EnablePprof {
		go func() {
			zapLogger.Info("starting pprof server", zap.String("addr", "localhost:6060"))
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				zapLogger.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              options.Port,
		Handler:           server.Init(urlService, auth, options.TrustedSubnet, zapLogger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)

	var grpcServer *shortgrpc.Server
	if options.GRPCAddr != "" {
		grpcServer = shortgrpc.New(options.GRPCAddr, options.TrustedSubnet, urlService, auth, zapLogger)
		go grpcServer.WatchHealth(ctx, 30*time.Second)
		go func() {
			if err := grpcServer.Start(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	go func() {
		var err error
		if options.EnableHTTPS {
			manager := &autocert.Manager{
				Cache:      autocert.DirCache("cache-dir"),
				Prompt:     autocert.AcceptTOS,
				HostPolicy: autocert.HostWhitelist(options.TLSHost),
			}
			httpServer.Addr = ":443"
			httpServer.TLSConfig = manager.TLSConfig()
			zapLogger.Info("server is running with TLS", zap.String("host", options.TLSHost))
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			zapLogger.Info("server is running", zap.String("addr", options.Port))
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		zapLogger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("http shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	stopWorker()
	urlService.Wait()

	zapLogger.Info("server stopped")
	return runErr
}
