// Package analysis exposes the analysis-versioning operations to the HTTP
// layer: appending immutable versions and reading version history.
package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/policypulse/policypulse/internal/model"
	"github.com/policypulse/policypulse/internal/storage"
	"github.com/policypulse/policypulse/internal/telemetry"
)

// Service coordinates analysis writes against the storage layer.
type Service struct {
	db     *storage.DB
	logger *slog.Logger

	created  metric.Int64Counter
	duration metric.Float64Histogram
}

// New builds an analysis service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	s := &Service{db: db, logger: logger}

	meter := telemetry.Meter("policypulse/analysis")
	var err error
	s.created, err = meter.Int64Counter("policypulse.analysis.versions",
		metric.WithDescription("Analysis versions appended"))
	if err != nil {
		logger.Warn("analysis: versions counter init failed", "error", err)
	}
	s.duration, err = meter.Float64Histogram("policypulse.analysis.record_duration",
		metric.WithDescription("Time to append one analysis version"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("analysis: duration histogram init failed", "error", err)
	}
	return s
}

// Record appends a new analysis version for a bill. Version allocation races
// with concurrent analyzers surface as retriable conflicts; they are retried
// here so each caller lands on its own consecutive version.
func (s *Service) Record(ctx context.Context, legislationID int64, payload model.AnalysisPayload) (model.Analysis, error) {
	start := time.Now()

	var a model.Analysis
	err := storage.WithRetry(ctx, 3, 25*time.Millisecond, func() error {
		var err error
		a, err = s.db.CreateAnalysis(ctx, legislationID, payload)
		return err
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if s.created != nil && err == nil {
		s.created.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if err != nil {
		return model.Analysis{}, err
	}

	s.logger.Info("analysis: version recorded",
		"legislation_id", legislationID,
		"analysis_version", a.AnalysisVersion,
		"has_changes", a.ChangesFromPrevious != nil)
	return a, nil
}

// Latest returns the newest analysis version for a bill.
func (s *Service) Latest(ctx context.Context, legislationID int64) (model.Analysis, error) {
	return s.db.GetLatestAnalysis(ctx, legislationID)
}

// History returns every analysis version for a bill, oldest first.
func (s *Service) History(ctx context.Context, legislationID int64) ([]model.Analysis, error) {
	return s.db.ListAnalyses(ctx, legislationID)
}
