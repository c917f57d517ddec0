package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/fortuna/hoopsdaily/internal/backfill"
	"github.com/fortuna/hoopsdaily/internal/cache"
	"github.com/fortuna/hoopsdaily/internal/config"
	"github.com/fortuna/hoopsdaily/internal/ingest"
	"github.com/fortuna/hoopsdaily/internal/ingest/espn"
	"github.com/fortuna/hoopsdaily/internal/ledger"
	"github.com/fortuna/hoopsdaily/internal/publisher"
	"github.com/fortuna/hoopsdaily/internal/store"
)

// deps holds the shared collaborators every command builds from config.
type deps struct {
	cfg    *config.Config
	docs   *store.DocumentStore
	ledger ledger.Store
	db     *store.Database   // nil with the file backend
	redis  *cache.RedisCache // nil when redis_url is unset
}

// openDeps connects the configured backends. redisAttempts > 1 retries the
// Redis connection, which the server uses to wait for a starting container.
func openDeps(ctx context.Context, cfg *config.Config, redisAttempts int) (*deps, error) {
	d := &deps{cfg: cfg, docs: store.NewDocumentStore(cfg.DataDir)}

	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		db, err := store.NewDatabase(cfg.LedgerDSN)
		if err != nil {
			return nil, fmt.Errorf("connect ledger database: %w", err)
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate ledger database: %w", err)
		}
		log.Println("✓ Connected to ledger database")
		d.db = db
		d.ledger = ledger.NewPostgresStore(db)
	default:
		d.ledger = ledger.NewFileStore(cfg.LedgerPath())
	}

	if cfg.RedisURL != "" {
		rc, err := connectRedis(ctx, cfg.RedisURL, redisAttempts)
		if err != nil {
			d.Close()
			return nil, err
		}
		log.Println("✓ Connected to Redis")
		d.redis = rc
	}
	return d, nil
}

func connectRedis(ctx context.Context, url string, attempts int) (*cache.RedisCache, error) {
	const retryDelay = 2 * time.Second
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		rc, err := cache.NewRedisCache(url)
		if err == nil {
			return rc, nil
		}
		lastErr = err
		if i < attempts-1 {
			log.Printf("Redis connection attempt %d/%d failed: %v (retrying in %v)", i+1, attempts, err, retryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("connect redis after %d attempt(s): %w", attempts, lastErr)
}

// Close releases every backend connection.
func (d *deps) Close() error {
	var errs []error
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	if d.db != nil {
		errs = append(errs, d.db.Close())
	}
	return errors.Join(errs...)
}

// ingester builds the ESPN-backed ingester, caching completed summaries in
// Redis when available.
func (d *deps) ingester() *ingest.Ingester {
	client := espn.New(d.cfg.ESPNBaseURL)
	if d.redis != nil {
		client = client.WithCache(d.redis, d.cfg.CacheTTL)
	}
	return ingest.NewIngester(client, d.cfg.RequestDelay)
}

// runner wires the backfill runner. Blurb events go to the Redis stream when
// configured and to any extra publishers.
func (d *deps) runner(extra ...publisher.Publisher) *backfill.Runner {
	var fanout publisher.Fanout
	if d.redis != nil {
		fanout = append(fanout, publisher.NewRedisStreamPublisher(d.redis.Client()))
	}
	fanout = append(fanout, extra...)

	cfg := backfill.RunnerConfig{
		Ingester:  d.ingester(),
		Ledger:    d.ledger,
		Documents: d.docs,
		DayPause:  d.cfg.DayPause,
	}
	if len(fanout) > 0 {
		cfg.Publisher = fanout
	}
	return backfill.NewRunner(cfg)
}
