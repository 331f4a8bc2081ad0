// cmd/pipeline-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rfq-pipeline/internal/common/aws"
	"rfq-pipeline/internal/common/config"
	"rfq-pipeline/internal/common/database"
	httpclient "rfq-pipeline/internal/common/http"
	"rfq-pipeline/internal/common/logger"
	"rfq-pipeline/internal/common/observability"
	"rfq-pipeline/internal/httpapi"
	"rfq-pipeline/internal/models"
	"rfq-pipeline/internal/pipeline/dispatcher"
	"rfq-pipeline/internal/pipeline/orchestrator"
	"rfq-pipeline/internal/pipeline/persister"
	"rfq-pipeline/internal/pipeline/scorer"
	"rfq-pipeline/internal/pipeline/supplierindex"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// observedPipeline records run count and duration around each pipeline run.
type observedPipeline struct {
	inner *orchestrator.Orchestrator
	obs   *observability.Observability
}

func (w *observedPipeline) Run(ctx context.Context, rfq models.RFQRequest) orchestrator.Summary {
	start := time.Now()
	summary := w.inner.Run(ctx, rfq)
	w.obs.RecordRun(ctx, string(summary.FinalState))
	w.obs.RecordRunDuration(ctx, time.Since(start), string(summary.FinalState))
	return summary
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Supplier index driver ---
	var index supplierindex.Index
	switch cfg.SupplierIndex.Driver {
	case "elasticsearch":
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")
		index = supplierindex.NewElasticIndex(
			es.Client, cfg.SupplierIndex.IndexName, cfg.SupplierIndex.PageSize,
			config.GetDuration(cfg.SupplierIndex.QueryTimeout), log)
	default:
		index = supplierindex.NewPostgresIndex(
			pg.GetDB(), rdb.GetClient(), cfg.SupplierIndex.PageSize,
			config.GetDuration(cfg.SupplierIndex.CacheTTL),
			config.GetDuration(cfg.SupplierIndex.QueryTimeout), log)
	}

	// --- Notification channels, priority order ---
	var channels []dispatcher.Channel
	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		channels = append(channels, dispatcher.NewEmailChannel(sesClient, cfg.Notifications.Email.FromEmail))
	}
	if cfg.Notifications.SMS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		channels = append(channels, dispatcher.NewSMSChannel(snsClient, cfg.Notifications.SMS.SenderID))
	}
	if cfg.Notifications.Webhook.Enabled {
		channels = append(channels, dispatcher.NewWebhookChannel(
			httpclient.NewClient(config.GetDuration(cfg.Notifications.CallTimeout))))
	}
	if len(channels) == 0 {
		zapLog.Warn("no notification channels enabled, all notifications will fail")
	}

	// --- Wire the pipeline ---
	sc := scorer.New(cfg.Matching, log)
	p := persister.New(pg.GetDB(), cfg.Persistence, log)
	d := dispatcher.New(channels, dispatcher.NewPostgresRecordStore(pg.GetDB()), cfg.Notifications, log)
	o := orchestrator.New(index, sc, p, d, log)

	runner := &observedPipeline{inner: o, obs: obs}

	srv := &http.Server{
		Addr: cfg.Server.Address,
		Handler: httpapi.NewServer(runner, p, map[string]httpapi.Pinger{
			"postgres": pg,
			"redis":    rdb,
		}, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("server stopped")
}
