// Command relay runs the zero-knowledge relay server: HTTP+WS API,
// in-memory store, and background janitor. Grounded on the teacher's
// cmd/server/main.go (Mongo/Redis bring-up, signal-based shutdown),
// generalized per SPEC_FULL.md's AMBIENT STACK to env-var config
// (HOST, PORT, LOG_LEVEL, RATE_LIMIT_REDIS_ADDR) instead of hardcoded
// addresses, since this process owns no per-user directory the
// teacher's Mongo/Redis bring-up existed to serve.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostwire/internal/log"
	"ghostwire/internal/service/ratelimit"
	"ghostwire/internal/service/relay"
	"ghostwire/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log.SetLevel(os.Getenv("LOG_LEVEL"))
	defer log.Sync()

	addr := hostPort()
	limiter := buildLimiter()

	st := store.New()
	janitor := store.NewJanitor(st, store.DefaultSweepInterval)

	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	go janitor.Run(janitorCtx)

	srv := relay.New(st, limiter)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Router(),
		ReadTimeout:  relay.RequestTimeout,
		WriteTimeout: relay.RequestTimeout,
	}

	go func() {
		log.Info("relay listening", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("relay: listen failed", zap.Error(err))
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done

	log.Info("relay shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("relay: graceful shutdown failed", zap.Error(err))
	}

	cancelJanitor()
	janitor.WaitDone(5 * time.Second)
}

func hostPort() string {
	host := os.Getenv("HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}
	return host + ":" + port
}

func buildLimiter() ratelimit.Limiter {
	addr := os.Getenv("RATE_LIMIT_REDIS_ADDR")
	if addr == "" {
		return ratelimit.NoOp{}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return ratelimit.NewRedisLimiter(rdb, 100, time.Minute)
}
