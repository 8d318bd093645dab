package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/app"
	"campus/internal/campus"
	"campus/internal/cloudinary"
	"campus/internal/config"
	"campus/internal/metrics"
)

// Worker consumes lost-and-found image jobs, uploads the photos and attaches their URLs.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker needs QUEUE_BACKEND=redis; the in-memory queue is consumed inside the api process")
	}
	if !cfg.CloudinaryConfigured() {
		log.Fatalf("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	backends, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store connect failed: %v", err)
	}
	defer backends.Close()

	q, err := backends.Queue(cfg)
	if err != nil {
		log.Fatalf("queue init failed: %v", err)
	}

	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)

	m := metrics.New(prometheus.DefaultRegisterer)
	go serveMetrics(cfg.WorkerMetricsPort)

	svc := campus.New(backends.Store, campus.Options{})
	w := &app.ImageWorker{Items: svc.LostFound, Uploader: cdn, Metrics: m}

	log.Println("worker started, waiting for messages...")
	if err := w.Run(ctx, q); err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}
	log.Println("worker stopped")
}

func serveMetrics(port string) {
	if port == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("metrics server: %v", err)
	}
}
