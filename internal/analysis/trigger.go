// Package analysis asks an external service for a booking recommendation and
// records the outcome, which may be absent.
package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/navid-fn/fareradar/internal/faulttolerance"
	"github.com/navid-fn/fareradar/internal/models"
)

// ReasonNoOffers marks runs that were not sent for analysis.
const ReasonNoOffers = "no offers"

type Trigger struct {
	service Service
	retryer *faulttolerance.Retryer
	model   string
	logger  *logrus.Logger
	now     func() time.Time
}

func NewTrigger(service Service, retry faulttolerance.RetryConfig, model string, logger *logrus.Logger) *Trigger {
	if retry.Classify == nil {
		retry.Classify = faulttolerance.IsRetryable
	}
	return &Trigger{
		service: service,
		retryer: faulttolerance.NewRetryer(retry, logger),
		model:   model,
		logger:  logger,
		now:     time.Now,
	}
}

// Analyze never returns an error: every failure ends in an absent record
// carrying the reason.
func (t *Trigger) Analyze(ctx context.Context, run *models.SearchRun, series models.PriceSeries) models.AnalysisRecord {
	record := models.AnalysisRecord{
		RunID: run.ID,
		Model: t.model,
	}
	log := t.logger.WithField("run_id", run.ID)

	if len(run.Offers) == 0 {
		log.Warn("No offers to analyze")
		return t.absent(record, ReasonNoOffers)
	}

	payload := BuildPayload(run, series)
	var text string
	attempts, err := t.retryer.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = t.service.Submit(ctx, payload)
		return err
	})
	record.Attempts = attempts

	if err != nil {
		log.WithError(err).WithField("attempts", attempts).Error("Analysis failed")
		return t.absent(record, reason(err))
	}

	log.WithField("attempts", attempts).Info("Analysis completed")
	record.Status = models.AnalysisOK
	record.Recommendation = text
	record.CreatedAt = t.now().UTC()
	return record
}

func (t *Trigger) absent(record models.AnalysisRecord, reason string) models.AnalysisRecord {
	record.Status = models.AnalysisAbsent
	record.Reason = reason
	record.CreatedAt = t.now().UTC()
	return record
}

func reason(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		prefix := ""
		if errors.Is(err, faulttolerance.ErrAttemptsExhausted) {
			prefix = "retries exhausted: "
		}
		return prefix + string(se.Kind) + ": " + truncate(se.Err.Error(), 200)
	}
	return truncate(err.Error(), 200)
}
