package main

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"practice_service/internal/domain"
	"practice_service/internal/service"
	"practice_service/pkg/ctxdata"
	"practice_service/pkg/logger"
)

// OrphanWorker sweeps the roster for orphaned submission documents on a
// schedule and publishes the findings. It only reports; deletion stays a
// deliberate operator action through the API.
type OrphanWorker struct {
	orphans    *service.OrphanService
	producer   service.EventProducer
	logger     *logger.Logger
	windowDays int
	scheduler  *gocron.Scheduler
}

func NewOrphanWorker(
	orphans *service.OrphanService,
	producer service.EventProducer,
	logger *logger.Logger,
	windowDays int,
	period time.Duration,
) *OrphanWorker {
	s := gocron.NewScheduler(time.UTC)
	w := &OrphanWorker{
		orphans:    orphans,
		producer:   producer,
		logger:     logger,
		windowDays: windowDays,
		scheduler:  s,
	}
	s.Every(period).Do(w.sweep)
	return w
}

func (w *OrphanWorker) Start() {
	w.scheduler.StartAsync()
}

func (w *OrphanWorker) Stop() {
	w.scheduler.Stop()
	w.logger.Info("Orphan worker stopped")
}

func (w *OrphanWorker) sweep() {
	// The sweep acts with teacher authority; the scan entry points are
	// role-gated like the rest of the maintenance surface.
	ctx := ctxdata.WithUserRole(context.Background(), string(domain.RoleTeacher))
	ctx = ctxdata.WithUserID(ctx, "orphan-worker")

	orphans, err := w.orphans.ScanAll(ctx, w.windowDays)
	if err != nil {
		w.logger.Error("orphan sweep failed", zap.Error(err))
		return
	}
	if len(orphans) == 0 {
		return
	}

	w.logger.Warn("orphan sweep found stale submissions",
		zap.Int("count", len(orphans)),
	)

	if w.producer == nil {
		return
	}
	if err := w.producer.Send(ctx, service.TopicOrphanReport, "orphan-worker", map[string]interface{}{
		"count":   len(orphans),
		"orphans": orphans,
	}); err != nil {
		w.logger.Error("failed to publish orphan report", zap.Error(err))
	}
}
