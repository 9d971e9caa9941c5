package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deskpilot/deskpilot/internal/auth"
	"github.com/deskpilot/deskpilot/internal/booking"
	"github.com/deskpilot/deskpilot/internal/checkin"
	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/deskpilot/deskpilot/internal/db"
	"github.com/deskpilot/deskpilot/internal/desk"
	"github.com/deskpilot/deskpilot/internal/http/api/automation"
	"github.com/deskpilot/deskpilot/internal/identity"
	"github.com/deskpilot/deskpilot/internal/jobs"
	"github.com/deskpilot/deskpilot/internal/logging"
	"github.com/deskpilot/deskpilot/internal/preferences"
	"github.com/deskpilot/deskpilot/internal/remote"
	"github.com/deskpilot/deskpilot/internal/reservation"
	"github.com/deskpilot/deskpilot/internal/roster"
	"github.com/deskpilot/deskpilot/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 30 * time.Second

// Migrate opens the configured database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	if cfg.Storage.Driver != config.StorageDatabase {
		return errors.New("app: migrations require storage.driver=database")
	}
	conn, err := db.Open(cfg.Storage.DSN, cfg.Remote.TimeZone)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// RunServer wires every component, starts the cadences and serves HTTP until ctx is cancelled.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	buffer, logCloser, errLog := logging.Setup(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		BufferSize: cfg.Log.BufferSize,
	})
	if errLog != nil {
		return errLog
	}
	defer func() {
		if errClose := logCloser.Close(); errClose != nil {
			log.WithError(errClose).Warn("app: close log file")
		}
	}()

	if cfg.Server.Mode == gin.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	remoteLoc, err := cfg.RemoteLocation()
	if err != nil {
		return err
	}
	scheduleLoc, err := cfg.ScheduleLocation()
	if err != nil {
		return err
	}

	client, err := remote.NewClient(remote.Options{
		BaseURL:        cfg.Remote.BaseURL,
		MaxRetries:     cfg.Remote.MaxRetries,
		RetryDelay:     cfg.Remote.RetryDelay,
		RequestTimeout: cfg.Remote.RequestTimeout,
	})
	if err != nil {
		return err
	}
	resolver := identity.NewResolver(client)

	persister, conn, err := openPersister(cfg)
	if err != nil {
		return err
	}
	cache := roster.NewCache(persister, resolver)
	if errLoad := cache.Load(ctx); errLoad != nil {
		return fmt.Errorf("app: load roster: %w", errLoad)
	}
	defer cache.Flush()

	desks := desk.NewClient(client, cache, desk.Options{LocatorNode: cfg.Remote.LocatorNode, Location: remoteLoc})
	reservations := reservation.NewClient(client, remoteLoc)
	orchestrator := booking.New(cache, desks, reservations, booking.Options{Location: remoteLoc})
	checkIns := checkin.New(cache, reservations, remoteLoc, nil)
	authService := auth.NewService(cache, resolver, client)

	locker, closeLocker, err := openLocker(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeLocker()

	runner, err := jobs.NewRunner(cache, orchestrator, checkIns, authService, jobs.Options{
		BookAndCheckIn: cfg.Schedule.BookAndCheckIn,
		AuthCheck:      cfg.Schedule.AuthCheck,
		Location:       scheduleLoc,
		Locker:         locker,
		LockTTL:        cfg.Redis.LockTTL,
	})
	if err != nil {
		return err
	}
	runner.Start()

	engine := automation.NewEngine(automation.Services{
		Roster:       cache,
		Desks:        desks,
		Booker:       orchestrator,
		Reservations: reservations,
		Users:        resolver,
		Auth:         authService,
		Preferences:  preferences.NewService(cache),
		Logs:         buffer,
		DB:           conn,
		Location:     remoteLoc,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Server is running on port %d", cfg.Server.Port)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			serveErr <- errServe
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("app: http shutdown")
	}
	runner.Stop(shutdownCtx)
	log.Info("app: stopped")
	return runErr
}

func openPersister(cfg config.AppConfig) (roster.Persister, *gorm.DB, error) {
	if cfg.Storage.Driver != config.StorageDatabase {
		fileStore := roster.NewFileStore(cfg.DataPath)
		log.Infof("app: roster file %s", fileStore.Path())
		return fileStore, nil, nil
	}
	conn, err := db.Open(cfg.Storage.DSN, cfg.Remote.TimeZone)
	if err != nil {
		return nil, nil, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, nil, errMigrate
	}
	log.Infof("app: roster database dialect=%s", db.DialectName(conn))
	return store.NewGormStore(conn), conn, nil
}

func openLocker(ctx context.Context, cfg config.RedisConfig) (jobs.Locker, func(), error) {
	if cfg.Addr == "" {
		return jobs.NoopLocker{}, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if errPing := rdb.Ping(pingCtx).Err(); errPing != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("app: redis ping %s: %w", cfg.Addr, errPing)
	}
	log.Infof("app: cadence lock via redis %s", cfg.Addr)
	closeFn := func() {
		if errClose := rdb.Close(); errClose != nil {
			log.WithError(errClose).Warn("app: close redis")
		}
	}
	return jobs.NewRedisLocker(rdb), closeFn, nil
}
