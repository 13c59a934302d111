/**
 * @description
 * Scheduled job implementations for the onboarding service.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/oliveiradevtech/onboarding-service/internal/config"
	"github.com/oliveiradevtech/onboarding-service/internal/store"
)

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo    store.Repository
	service *Service
	logger  *slog.Logger
	config  config.Config
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo store.Repository, service *Service, logger *slog.Logger, cfg config.Config) *Jobs {
	return &Jobs{
		repo:    repo,
		service: service,
		logger:  logger,
		config:  cfg,
	}
}

// SweepExpiredAnalyses finds customers whose last credit analysis is past its
// recommended revisit date and republishes the analysis-request event for
// each. Failures are per-customer: one broker hiccup does not stop the sweep.
func (j *Jobs) SweepExpiredAnalyses() {
	j.logger.Info("starting expired analysis sweep")
	ctx := context.Background()

	profiles, err := j.repo.ListAnalysisExpired(ctx, time.Now().UTC(), j.config.ReanalysisSweepBatchSize)
	if err != nil {
		j.logger.Error("failed to list expired analyses", "error", err)
		return
	}

	if len(profiles) == 0 {
		j.logger.Info("no expired analyses to process")
		return
	}

	j.logger.Info("found expired analyses to process", "count", len(profiles))

	requested := 0
	for _, p := range profiles {
		if err := j.service.RequestReanalysis(ctx, p.CustomerID); err != nil {
			j.logger.Error("failed to request reanalysis", "customer_id", p.CustomerID, "error", err)
			continue
		}
		requested++
		j.logger.Info("requested reanalysis", "customer_id", p.CustomerID)
	}

	j.logger.Info("expired analysis sweep finished", "requested", requested)
}
