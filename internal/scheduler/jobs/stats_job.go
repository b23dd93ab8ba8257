package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"qualityhair-hub/internal/metrics"
	"qualityhair-hub/internal/service"
)

// StatsJob refreshes the pending-consultation and active-code gauges.
type StatsJob struct {
	consultationService *service.ConsultationService
	codeService         *service.CodeService
	logger              *zap.Logger
}

func NewStatsJob(
	consultationService *service.ConsultationService,
	codeService *service.CodeService,
	logger *zap.Logger,
) *StatsJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatsJob{
		consultationService: consultationService,
		codeService:         codeService,
		logger:              logger,
	}
}

func (j *StatsJob) RefreshGauges() {
	if j == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if j.consultationService != nil {
		if pending, err := j.consultationService.CountPending(ctx); err == nil {
			metrics.SetPendingConsultations(pending)
		} else {
			j.logger.Warn("pending consultation count failed", zap.Error(err))
		}
	}

	if j.codeService != nil {
		if active, err := j.codeService.CountActive(ctx); err == nil {
			metrics.SetActiveCodes(active)
		} else {
			j.logger.Warn("active code count failed", zap.Error(err))
		}
	}
}
