package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"campus/internal/api"
	"campus/internal/app"
	"campus/internal/campus"
	"campus/internal/cloudinary"
	"campus/internal/config"
	"campus/internal/metrics"
	"campus/internal/queue"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	backends, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backends.Close()

	q, err := backends.Queue(cfg)
	if err != nil {
		return err
	}
	verifier, err := backends.Verifier(ctx, cfg)
	if err != nil {
		return err
	}
	m := metrics.New(prometheus.DefaultRegisterer)
	jobsCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()

	// the in-memory queue has no other consumer, so uploads then run in this process
	var jobs queue.Queue
	inProcess := false
	switch {
	case cfg.QueueBackend == "redis":
		jobs = q
	case cfg.CloudinaryConfigured():
		jobs, inProcess = q, true
	default:
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set); report images are dropped")
	}

	svc := campus.New(backends.Store, campus.Options{Queue: jobs, PollVoteDedup: cfg.PollVoteDedup})

	var images api.ImageUploader
	var cdn *cloudinary.Client
	if cfg.CloudinaryConfigured() {
		cdn = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		images = cdn
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	}
	if inProcess {
		w := &app.ImageWorker{Items: svc.LostFound, Uploader: cdn, Metrics: m}
		go func() {
			if err := w.Run(jobsCtx, q); err != nil {
				log.Printf("image jobs stopped: %v", err)
			}
		}()
	}

	r := api.NewRouter(api.Deps{
		Services:    svc,
		Store:       backends.Store,
		Redis:       backends.Redis,
		Verifier:    verifier,
		Limiter:     backends.Limiter(cfg),
		Metrics:     m,
		Images:      images,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (store=%s auth=%s)", cfg.HTTPPort, cfg.StoreBackend, cfg.AuthProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}
