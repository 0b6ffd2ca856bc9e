package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/plantcare/internal/bootstrap"
	"github.com/bryanwahyu/plantcare/internal/config"
	"github.com/bryanwahyu/plantcare/internal/infra/httpserver"
	"github.com/bryanwahyu/plantcare/internal/logging"
	"github.com/bryanwahyu/plantcare/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.WithError(err).Fatal("config load error")
	}
	logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("bootstrap error")
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	stopSweep := make(chan struct{})
	go limiter.Run(stopSweep)
	defer close(stopSweep)

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(app.Store, app.Service, httpserver.Options{
		MaxUploadBytes: cfg.UploadLimit(),
		APIKeys:        cfg.Auth.APIKeys,
		Limiter:        limiter,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Checkers:       app.Checkers,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.WithError(err).Error("shutdown error")
	}
}
