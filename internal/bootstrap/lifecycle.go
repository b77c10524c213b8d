package bootstrap

import (
	"context"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"phi/internal/adapters/kafka"
	pgclient "phi/internal/adapters/postgres"
	redisclient "phi/internal/adapters/redis"
	"phi/internal/api"
	"phi/pkg/errors"
	"phi/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 30 * time.Second,
	}
}

// ShutdownTargets lists what Shutdown closes. Nil members are skipped.
type ShutdownTargets struct {
	WG            *sync.WaitGroup
	HTTPServer    *api.Server
	KafkaProducer *kafka.Producer
	LedgerDB      *badger.DB
	ContentDB     *badger.DB
	PG            *pgclient.Client
	Redis         *redisclient.Client
	ErrorTracker  errors.Tracker
}

// Shutdown performs coordinated cleanup in order:
// 1. No new requests accepted
// 2. In-flight forecasts finish
// 3. Producer flushes pending events
// 4. Errors and logs flushed
// 5. Stores closed last (in-flight anchoring may still write)
func (l *Lifecycle) Shutdown(t ShutdownTargets, log *logger.Logger) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Info("[1/5] Stopping HTTP server...")
	if t.HTTPServer != nil {
		httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
		if err := t.HTTPServer.Shutdown(httpCtx); err != nil {
			log.Errorw("HTTP server shutdown failed", "error", err)
		}
		httpCancel()
	}

	log.Info("[2/5] Waiting for goroutines...")
	if t.WG != nil {
		l.waitForGoroutines(t.WG, 10*time.Second, log)
	}

	log.Info("[3/5] Closing Kafka producer...")
	if t.KafkaProducer != nil {
		if err := t.KafkaProducer.Close(); err != nil {
			log.Errorw("Kafka producer close failed", "error", err)
		}
	}

	log.Info("[4/5] Flushing error tracker and logs...")
	l.flushErrorTracker(shutdownCtx, t.ErrorTracker, log)
	_ = logger.Sync()

	log.Info("[5/5] Closing stores...")
	l.closeStores(t, log)

	log.Info("Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Warnw("Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Errorw("Error tracker flush failed", "error", err)
	}
}

func (l *Lifecycle) closeStores(t ShutdownTargets, log *logger.Logger) {
	var merr errors.MultiError

	if t.LedgerDB != nil {
		merr.Add(errors.Wrap(t.LedgerDB.Close(), "ledger"))
	}
	if t.ContentDB != nil {
		merr.Add(errors.Wrap(t.ContentDB.Close(), "content store"))
	}
	if t.PG != nil {
		merr.Add(errors.Wrap(t.PG.Close(), "postgres"))
	}
	if t.Redis != nil {
		merr.Add(errors.Wrap(t.Redis.Close(), "redis"))
	}

	if err := merr.ToError(); err != nil {
		log.Errorw("Store close errors", "error", err)
	}
}
