package worker

// retry_cron.go
// Background goroutine that periodically re-enqueues render jobs for
// Z-reports stuck without a PDF (lost job, crashed worker, transient
// filesystem failure). Reports that keep failing go to the DLQ.

import (
	"context"
	"fmt"
	"time"

	"github.com/zolijavos/KGC-3-sub017/internal/model"
	"github.com/zolijavos/KGC-3-sub017/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
	// MaxRenderRetries is the attempt cap before a report moves to the DLQ.
	MaxRenderRetries = 5
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	ZReportRepo repository.ZReportRepository
	Dispatcher  *Dispatcher
	RDB         *redis.Client
}

// StartRetryCron launches a background goroutine that ticks every 30s and
// re-enqueues pending or failed renders. It respects the context for
// graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) {
	reports, err := cfg.ZReportRepo.ListPendingRender(ctx, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending renders")
		return
	}
	if len(reports) == 0 {
		return
	}

	log.Info().Int("count", len(reports)).Msg("retry_cron: re-enqueueing pending renders")

	for i := range reports {
		report := &reports[i]

		if report.RetryCount >= MaxRenderRetries {
			reason := "unknown"
			if report.RenderError != nil {
				reason = *report.RenderError
			}
			payload := fmt.Sprintf(`{"zreport_id":"%s"}`, report.ID)
			SendToDLQ(ctx, cfg.RDB, QueueZReport, "zreport_render", []byte(payload),
				fmt.Sprintf("max render retries (%d) exceeded: %s", MaxRenderRetries, reason),
				report.RetryCount)

			report.RenderStatus = model.RenderAbandoned
			if err := cfg.ZReportRepo.UpdateRender(ctx, report); err != nil {
				log.Error().Err(err).Str("zreport_id", report.ID.String()).Msg("retry_cron: failed to mark report abandoned")
			}
			continue
		}

		if err := cfg.Dispatcher.EnqueueZReportRender(ctx, report.ID); err != nil {
			log.Error().Err(err).Str("zreport_id", report.ID.String()).Msg("retry_cron: failed to re-enqueue render")
		}
	}
}
