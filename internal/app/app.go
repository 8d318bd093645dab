// Package app turns configuration into the backends shared by the api and worker binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"

	"campus/internal/auth"
	"campus/internal/config"
	"campus/internal/httpmiddleware"
	"campus/internal/queue"
	"campus/internal/store"
)

// Backends are the opened connections of one process.
type Backends struct {
	Store    store.Store
	Redis    *store.Redis
	Firebase *firebase.App
}

// Open connects the configured document store and redis.
func Open(ctx context.Context, cfg config.App) (*Backends, error) {
	b := &Backends{Redis: store.NewRedis(cfg.RedisAddr)}

	switch cfg.StoreBackend {
	case "firestore":
		fb, err := store.OpenFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials, cfg.FirebaseConfigJSON)
		if err != nil {
			return nil, err
		}
		fs, err := store.NewFirestore(ctx, fb)
		if err != nil {
			return nil, err
		}
		b.Firebase, b.Store = fb, fs
	case "postgres":
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.Store = pg
	case "memory", "":
		log.Println("using in-memory store; data is lost on restart")
		b.Store = store.NewMemory()
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return b, nil
}

// Close releases the store and redis connections.
func (b *Backends) Close() {
	if err := b.Store.Close(); err != nil {
		log.Printf("store close: %v", err)
	}
	if err := b.Redis.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
}

// Queue selects the image job queue. A redis queue needs REDIS_ADDR.
func (b *Backends) Queue(cfg config.App) (queue.Queue, error) {
	switch cfg.QueueBackend {
	case "redis":
		if b.Redis == nil {
			return nil, fmt.Errorf("QUEUE_BACKEND=redis requires REDIS_ADDR")
		}
		return queue.NewRedisQueue(b.Redis.Client, queue.DefaultKey), nil
	case "memory", "":
		return queue.NewInMemory(64), nil
	}
	return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
}

// Verifier selects how bearer tokens are checked.
func (b *Backends) Verifier(ctx context.Context, cfg config.App) (auth.Verifier, error) {
	switch cfg.AuthProvider {
	case "firebase":
		fb := b.Firebase
		if fb == nil {
			var err error
			fb, err = store.OpenFirebaseApp(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentials, cfg.FirebaseConfigJSON)
			if err != nil {
				return nil, err
			}
		}
		return auth.NewFirebaseVerifier(ctx, fb, auth.StoreRoles(b.Store))
	case "jwt", "":
		if cfg.JWTSigningKey == "" {
			return nil, errors.New("JWT_SIGNING_KEY is empty")
		}
		if cfg.Production() && cfg.JWTSigningKey == config.DevSigningKey {
			return nil, errors.New("JWT_SIGNING_KEY must be set in production")
		}
		return auth.NewJWTVerifier(cfg.JWTSigningKey, cfg.JWTIssuer), nil
	}
	return nil, fmt.Errorf("unknown AUTH_PROVIDER %q", cfg.AuthProvider)
}

// Limiter selects the request rate limiter; a zero rate disables limiting.
func (b *Backends) Limiter(cfg config.App) httpmiddleware.Limiter {
	if cfg.RateLimitPerMin <= 0 {
		return nil
	}
	if cfg.RateLimitBackend == "redis" && b.Redis != nil {
		return httpmiddleware.NewRedisWindow(b.Redis.Client, cfg.RateLimitPerMin)
	}
	return httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
}
