package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"classtrack/internal/auth"
	"classtrack/internal/cache"
	"classtrack/internal/config"
	"classtrack/internal/logger"
	"classtrack/internal/queue"
	"classtrack/internal/remote"
	"classtrack/internal/tracker"
)

// Worker keeps the snapshot cache warm: it syncs with the remote store on a
// fixed interval and immediately when the API publishes a sync request.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)
	log := logger.WithComponent("worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	session := auth.NewTokenSession(cfg.JWTSigningKey, cfg.JWTIssuer)
	if !cfg.GuestMode {
		tokens, err := auth.Issue("sync-worker", "service", cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			log.WithError(err).Fatal("service token issue failed")
		}
		if err := session.SetToken(tokens.AccessToken); err != nil {
			log.WithError(err).Fatal("service session install failed")
		}
	}

	rc := remote.New(cfg.RemoteBaseURL, session)
	if err := rc.Health(ctx); err != nil {
		log.WithError(err).Warn("remote store not reachable, will retry on each sync")
	}

	var (
		snapshots cache.Store
		redisC    *cache.Redis
	)
	switch cfg.CacheBackend {
	case "memory":
		snapshots = cache.NewMemory()
	case "postgres":
		pg, err := cache.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("postgres cache init failed")
		}
		defer pg.Close()
		snapshots = pg
	default:
		redisC = cache.NewRedis(cfg.RedisAddr, "classtrack")
		snapshots = redisC
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" || redisC == nil {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisC.Client(), "classtrack:queue")
	}

	store := tracker.New(tracker.Options{
		Cache:   snapshots,
		Session: session,
		Gateway: tracker.Gateway{
			Subjects: rc.Subjects(),
			Slots:    rc.Slots(),
			Records:  rc.Records(),
		},
	})
	if err := store.Load(ctx); err != nil {
		log.WithError(err).Warn("initial load incomplete")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.WithError(err).Fatal("queue consume init failed")
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()

	log.Infof("worker started, syncing every %s", cfg.SyncInterval)
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			if err := store.SyncWithRemote(ctx); err != nil {
				log.WithError(err).Warn("interval sync failed")
			}
		case msg, ok := <-messages:
			if !ok {
				log.Info("worker stopped")
				return
			}
			if msg.Type != queue.TypeSyncRequested {
				continue
			}
			log.WithField("user", string(msg.Body)).Info("sync requested")
			if err := store.SyncWithRemote(ctx); err != nil {
				log.WithError(err).Warn("requested sync failed")
			}
		}
	}
}
